package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/parkshare/internal/model"
)

// ClaimRepo provides data access to the claims table.  Exclusivity is
// enforced twice: the availability and bay rows are locked for the
// duration of the check and insert, and uq_claims_active rejects a
// second unreleased claim for the same availability even if the lock
// were bypassed.
type ClaimRepo struct {
	db *sql.DB
}

// NewClaimRepo returns a new ClaimRepo bound to the given database.
func NewClaimRepo(db *sql.DB) *ClaimRepo { return &ClaimRepo{db: db} }

// Create claims availabilityID for claimerID.  It returns ErrNotFound
// when the window does not exist, ErrNotAvailable when it is switched
// off or its bay is hidden, and ErrAlreadyClaimed when an unreleased
// claim already holds it or another window of the same bay.
func (r *ClaimRepo) Create(ctx context.Context, availabilityID, claimerID uint64, expected *uint32, now time.Time) (*model.Claim, error) {
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

	var (
		bayID              uint64
		available, visible bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT a.bay_id, a.is_available, b.is_visible
         FROM availabilities a
         JOIN bays b ON b.id = a.bay_id
         WHERE a.id = ?
         FOR UPDATE`, availabilityID).Scan(&bayID, &available, &visible)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock availability: %w", err)
	}
	if !available || !visible {
		return nil, ErrNotAvailable
	}

	// The bay row is locked too, so this check covers every window of
	// the bay: one physical spot is never held by two claims.
	var holder uint64
	err = tx.QueryRowContext(ctx,
		`SELECT c.id FROM claims c
         JOIN availabilities a ON a.id = c.availability_id
         WHERE a.bay_id = ? AND c.released_at IS NULL
         LIMIT 1`, bayID).Scan(&holder)
	switch {
	case err == nil:
		return nil, ErrAlreadyClaimed
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check active claim: %w", err)
	}

	now = now.UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO claims (availability_id, claimer_id, claimed_at, expected_duration, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		availabilityID, claimerID, now, nullUint32(expected), now, now)
	if err != nil {
		if violates(err, "uq_claims_active") {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("insert claim: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("claim id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return &model.Claim{
		ID:               uint64(id),
		AvailabilityID:   availabilityID,
		ClaimerID:        claimerID,
		ClaimedAt:        now,
		ExpectedDuration: expected,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// GetByID returns a single claim or ErrNotFound.
func (r *ClaimRepo) GetByID(ctx context.Context, id uint64) (*model.Claim, error) {
	var row claimRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims c WHERE c.id = ?`, id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query claim: %w", err)
	}
	c := row.claim()
	return &c, nil
}

// Release ends an active claim held by requesterID.  The update only
// matches an unreleased claim of the requester, so two concurrent
// releases cannot both succeed.
func (r *ClaimRepo) Release(ctx context.Context, claimID, requesterID uint64, now time.Time) (*model.Claim, error) {
	now = now.UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE claims SET released_at = ?, updated_at = ?
         WHERE id = ? AND claimer_id = ? AND released_at IS NULL`,
		now, now, claimID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("release claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	c, err := r.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return c, nil
	}
	if c.ClaimerID != requesterID {
		return nil, ErrNotClaimer
	}
	return nil, ErrAlreadyReleased
}

// ListActiveByClaimer returns the unreleased claims of claimerID, newest
// first, with the claimed window, its bay and the owner's name.
func (r *ClaimRepo) ListActiveByClaimer(ctx context.Context, claimerID uint64) ([]model.ActiveClaim, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+claimColumns+`, `+availabilityColumns+`, `+bayColumns+`, u.name
         FROM claims c
         JOIN availabilities a ON a.id = c.availability_id
         JOIN bays b ON b.id = a.bay_id
         JOIN users u ON u.id = b.owner_id
         WHERE c.claimer_id = ? AND c.released_at IS NULL
         ORDER BY c.claimed_at DESC, c.id ASC`, claimerID)
	if err != nil {
		return nil, fmt.Errorf("list active claims: %w", err)
	}
	defer rows.Close()

	out := make([]model.ActiveClaim, 0)
	for rows.Next() {
		var (
			c     claimRow
			a     availabilityRow
			b     bayRow
			owner string
		)
		dest := append(append(append(c.dest(), a.dest()...), b.dest()...), &owner)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan active claim: %w", err)
		}
		out = append(out, model.ActiveClaim{
			Claim:        c.claim(),
			Availability: a.availability(),
			Bay:          b.bay(),
			OwnerName:    owner,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active claims: %w", err)
	}
	return out, nil
}

// ActiveForBay returns the unreleased claim on any window of bayID, or
// nil when there is none.  Two rows mean the store lost the exclusivity
// guarantee and are reported as ErrInvariantViolated.
func (r *ClaimRepo) ActiveForBay(ctx context.Context, bayID uint64) (*model.BayClaim, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+claimColumns+`, `+availabilityColumns+`, u.name, u.email
         FROM claims c
         JOIN availabilities a ON a.id = c.availability_id
         JOIN users u ON u.id = c.claimer_id
         WHERE a.bay_id = ? AND c.released_at IS NULL
         ORDER BY c.claimed_at DESC, c.id ASC
         LIMIT 2`, bayID)
	if err != nil {
		return nil, fmt.Errorf("active claim for bay: %w", err)
	}
	defer rows.Close()

	var found []model.BayClaim
	for rows.Next() {
		var (
			c           claimRow
			a           availabilityRow
			name, email string
		)
		dest := append(append(c.dest(), a.dest()...), &name, &email)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan bay claim: %w", err)
		}
		found = append(found, model.BayClaim{
			Claim:        c.claim(),
			Availability: a.availability(),
			ClaimerName:  name,
			ClaimerEmail: email,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bay claims: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("bay %d: %w", bayID, ErrInvariantViolated)
	}
}
