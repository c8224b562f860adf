package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/parkshare/internal/model"
)

// AvailabilityRepo provides data access to the availabilities table.
// Ownership of a window is resolved transitively through its bay.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns a new AvailabilityRepo bound to the given database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

// Create inserts a new window for bayID.  The window opens for claims
// only when the bay is visible at creation time.  The bay row is read
// under a shared lock so a concurrent visibility change cannot slip
// between the read and the insert.
func (r *AvailabilityRepo) Create(ctx context.Context, bayID, ownerID uint64, from, until *time.Time, now time.Time) (*model.Availability, error) {
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

	var owner uint64
	var visible bool
	err = tx.QueryRowContext(ctx,
		`SELECT owner_id, is_visible FROM bays WHERE id = ? FOR SHARE`, bayID).Scan(&owner, &visible)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bay: %w", err)
	}
	if owner != ownerID {
		return nil, ErrForbidden
	}

	now = now.UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO availabilities (bay_id, is_available, available_from, available_until, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		bayID, visible, nullTime(from), nullTime(until), now, now)
	if checkFailed(err, "chk_availabilities_window") {
		return nil, ErrInvalidWindow
	}
	if err != nil {
		return nil, fmt.Errorf("insert availability: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("availability id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return &model.Availability{
		ID:             uint64(id),
		BayID:          bayID,
		IsAvailable:    visible,
		AvailableFrom:  utcPtr(from),
		AvailableUntil: utcPtr(until),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// GetByID returns a single window or ErrNotFound.
func (r *AvailabilityRepo) GetByID(ctx context.Context, id uint64) (*model.Availability, error) {
	var row availabilityRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+availabilityColumns+` FROM availabilities a WHERE a.id = ?`, id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	a := row.availability()
	return &a, nil
}

// UpdateWindow replaces both bounds of an existing window in place.
func (r *AvailabilityRepo) UpdateWindow(ctx context.Context, id, ownerID uint64, from, until *time.Time, now time.Time) (*model.Availability, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE availabilities a
         JOIN bays b ON b.id = a.bay_id
         SET a.available_from = ?, a.available_until = ?, a.updated_at = ?
         WHERE a.id = ? AND b.owner_id = ?`,
		nullTime(from), nullTime(until), now.UTC(), id, ownerID)
	if checkFailed(err, "chk_availabilities_window") {
		return nil, ErrInvalidWindow
	}
	if err != nil {
		return nil, fmt.Errorf("update window: %w", err)
	}
	if err := r.matched(ctx, res, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetAvailable opens or closes a window for claims.
func (r *AvailabilityRepo) SetAvailable(ctx context.Context, id, ownerID uint64, available bool, now time.Time) (*model.Availability, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE availabilities a
         JOIN bays b ON b.id = a.bay_id
         SET a.is_available = ?, a.updated_at = ?
         WHERE a.id = ? AND b.owner_id = ?`,
		available, now.UTC(), id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update availability flag: %w", err)
	}
	if err := r.matched(ctx, res, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// ListByBay returns every window of a bay, oldest update first.
func (r *AvailabilityRepo) ListByBay(ctx context.Context, bayID uint64) ([]model.Availability, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+availabilityColumns+` FROM availabilities a
         WHERE a.bay_id = ?
         ORDER BY a.updated_at ASC, a.id ASC`, bayID)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	defer rows.Close()
	out := make([]model.Availability, 0)
	for rows.Next() {
		var row availabilityRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		out = append(out, row.availability())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availabilities: %w", err)
	}
	return out, nil
}

func (r *AvailabilityRepo) matched(ctx context.Context, res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var owner uint64
	err = r.db.QueryRowContext(ctx,
		`SELECT b.owner_id FROM availabilities a JOIN bays b ON b.id = a.bay_id WHERE a.id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}
	return ErrForbidden
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Second)
	return &v
}
