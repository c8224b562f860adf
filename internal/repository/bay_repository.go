package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/parkshare/internal/model"
)

// BayRepo provides data access to the bays table.  Every write that is
// scoped to an owner is a single conditional statement so the ownership
// check and the change cannot interleave with another request.
type BayRepo struct {
	db *sql.DB
}

// NewBayRepo returns a new BayRepo bound to the provided database.
func NewBayRepo(db *sql.DB) *BayRepo { return &BayRepo{db: db} }

// CreateWithInitialWindow registers a bay for ownerID together with its
// first, closed availability row.  Both inserts share one transaction.
// The owner and label checks run first so the caller gets the most
// specific error; the uq_bays_owner and uq_bays_label keys still decide
// when two registrations race past the checks.
func (r *BayRepo) CreateWithInitialWindow(ctx context.Context, ownerID uint64, label string, now time.Time) (*model.Bay, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var existing uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM bays WHERE owner_id = ? LIMIT 1`, ownerID).Scan(&existing)
	switch {
	case err == nil:
		return nil, ErrDuplicateOwner
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check owner: %w", err)
	}
	err = tx.QueryRowContext(ctx, `SELECT id FROM bays WHERE label = ? LIMIT 1`, label).Scan(&existing)
	switch {
	case err == nil:
		return nil, ErrDuplicateLabel
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check label: %w", err)
	}

	now = now.UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bays (label, is_visible, owner_id, created_at, updated_at) VALUES (?, 1, ?, ?, ?)`,
		label, ownerID, now, now)
	if err != nil {
		return nil, mapBayDuplicate(err, "insert bay")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("bay id: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO availabilities (bay_id, is_available, created_at, updated_at) VALUES (?, 0, ?, ?)`,
		id, now, now); err != nil {
		return nil, fmt.Errorf("insert initial availability: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return &model.Bay{
		ID:        uint64(id),
		Label:     label,
		IsVisible: true,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByID returns the bay with the given id or ErrNotFound.
func (r *BayRepo) GetByID(ctx context.Context, id uint64) (*model.Bay, error) {
	return r.getOne(ctx, `SELECT `+bayColumns+` FROM bays b WHERE b.id = ?`, id)
}

// GetByOwner returns the bay owned by ownerID or ErrNotFound.
func (r *BayRepo) GetByOwner(ctx context.Context, ownerID uint64) (*model.Bay, error) {
	return r.getOne(ctx, `SELECT `+bayColumns+` FROM bays b WHERE b.owner_id = ?`, ownerID)
}

func (r *BayRepo) getOne(ctx context.Context, q string, arg uint64) (*model.Bay, error) {
	var row bayRow
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(row.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query bay: %w", err)
	}
	b := row.bay()
	return &b, nil
}

// UpdateLabel renames a bay.  Another bay already using the label is
// reported as ErrDuplicateLabel via the unique key.
func (r *BayRepo) UpdateLabel(ctx context.Context, bayID, ownerID uint64, label string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bays SET label = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		label, now.UTC(), bayID, ownerID)
	if err != nil {
		return mapBayDuplicate(err, "update label")
	}
	return r.matched(ctx, res, bayID)
}

// UpdateNote sets or clears (nil) the owner's note.
func (r *BayRepo) UpdateNote(ctx context.Context, bayID, ownerID uint64, note *string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bays SET note = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		nullString(note), now.UTC(), bayID, ownerID)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return r.matched(ctx, res, bayID)
}

// SetVisibility toggles public discoverability of a bay.
func (r *BayRepo) SetVisibility(ctx context.Context, bayID, ownerID uint64, visible bool, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bays SET is_visible = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		visible, now.UTC(), bayID, ownerID)
	if err != nil {
		return fmt.Errorf("update visibility: %w", err)
	}
	return r.matched(ctx, res, bayID)
}

// matched turns a zero-row owner-scoped update into ErrNotFound or
// ErrForbidden.  The DSN sets clientFoundRows so an update that leaves
// the row unchanged still reports one row.
func (r *BayRepo) matched(ctx context.Context, res sql.Result, bayID uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var owner uint64
	err = r.db.QueryRowContext(ctx, `SELECT owner_id FROM bays WHERE id = ?`, bayID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}
	return ErrForbidden
}

func mapBayDuplicate(err error, op string) error {
	switch {
	case violates(err, "uq_bays_owner"):
		return ErrDuplicateOwner
	case violates(err, "uq_bays_label"):
		return ErrDuplicateLabel
	}
	return fmt.Errorf("%s: %w", op, err)
}
