package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/parkshare/internal/model"
)

// BoardRepo serves the read side of the public board.  It only
// pre-filters in SQL; the caller classifies each row against now.
type BoardRepo struct {
	db *sql.DB
}

func NewBoardRepo(db *sql.DB) *BoardRepo { return &BoardRepo{db: db} }

// ListVisibleWindows returns every switched-on window of a visible bay
// that has not ended before now.  ActiveClaimID is set when any window
// of the same bay is currently held.  Rows are ordered by start time
// with unbounded starts first, then by id.
func (r *BoardRepo) ListVisibleWindows(ctx context.Context, now time.Time) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+availabilityColumns+`, `+bayColumns+`, u.name,
                (SELECT c.id FROM claims c
                 JOIN availabilities ca ON ca.id = c.availability_id
                 WHERE ca.bay_id = a.bay_id AND c.released_at IS NULL
                 LIMIT 1) AS active_claim_id
         FROM availabilities a
         JOIN bays b ON b.id = a.bay_id
         JOIN users u ON u.id = b.owner_id
         WHERE b.is_visible = 1
           AND a.is_available = 1
           AND (a.available_until IS NULL OR a.available_until >= ?)
         ORDER BY a.available_from IS NULL DESC, a.available_from ASC, a.id ASC`,
		now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list board windows: %w", err)
	}
	defer rows.Close()

	out := make([]model.Listing, 0)
	for rows.Next() {
		var (
			a     availabilityRow
			b     bayRow
			owner string
			claim sql.NullInt64
		)
		dest := append(append(a.dest(), b.dest()...), &owner, &claim)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan board window: %w", err)
		}
		l := model.Listing{
			Bay:          b.bay(),
			Availability: a.availability(),
			OwnerName:    owner,
		}
		if claim.Valid {
			id := uint64(claim.Int64)
			l.ActiveClaimID = &id
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board windows: %w", err)
	}
	return out, nil
}
