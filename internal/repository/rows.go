package repository

import (
	"database/sql"
	"time"

	"github.com/iliyamo/parkshare/internal/model"
)

// Column lists shared by every query that scans a full entity. Aliases
// are fixed: b = bays, a = availabilities, c = claims.
const (
	bayColumns          = `b.id, b.label, b.note, b.is_visible, b.owner_id, b.created_at, b.updated_at`
	availabilityColumns = `a.id, a.bay_id, a.is_available, a.available_from, a.available_until, a.created_at, a.updated_at`
	claimColumns        = `c.id, c.availability_id, c.claimer_id, c.claimed_at, c.expected_duration, c.released_at, c.created_at, c.updated_at`
)

type bayRow struct {
	model.Bay
	note sql.NullString
}

func (r *bayRow) dest() []any {
	return []any{&r.ID, &r.Label, &r.note, &r.IsVisible, &r.OwnerID, &r.CreatedAt, &r.UpdatedAt}
}

func (r *bayRow) bay() model.Bay {
	b := r.Bay
	if r.note.Valid {
		n := r.note.String
		b.Note = &n
	}
	return b
}

type availabilityRow struct {
	model.Availability
	from, until sql.NullTime
}

func (r *availabilityRow) dest() []any {
	return []any{&r.ID, &r.BayID, &r.IsAvailable, &r.from, &r.until, &r.CreatedAt, &r.UpdatedAt}
}

func (r *availabilityRow) availability() model.Availability {
	a := r.Availability
	a.AvailableFrom = timePtr(r.from)
	a.AvailableUntil = timePtr(r.until)
	return a
}

type claimRow struct {
	model.Claim
	expected sql.NullInt64
	released sql.NullTime
}

func (r *claimRow) dest() []any {
	return []any{&r.ID, &r.AvailabilityID, &r.ClaimerID, &r.ClaimedAt, &r.expected, &r.released, &r.CreatedAt, &r.UpdatedAt}
}

func (r *claimRow) claim() model.Claim {
	c := r.Claim
	if r.expected.Valid {
		d := uint32(r.expected.Int64)
		c.ExpectedDuration = &d
	}
	c.ReleasedAt = timePtr(r.released)
	return c
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// nullTime converts an optional bound into a driver value.  DATETIME
// columns hold whole seconds, so the fraction is dropped here instead of
// letting the server round it.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Truncate(time.Second)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullUint32(v *uint32) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}
