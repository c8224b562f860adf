package model

import "time"

// Claim is one resident's hold on one availability window.  At most one
// claim per availability may have a nil ReleasedAt; once released a
// claim is immutable.
//
// Fields:
//
//   - ID: primary key identifier.
//   - AvailabilityID: window being claimed.
//   - ClaimerID: user who claimed it.
//   - ClaimedAt: when the claim was made.
//   - ExpectedDuration: optional expected use in minutes.
//   - ReleasedAt: when the claim was released (nil while active).
//   - CreatedAt: creation timestamp.
//   - UpdatedAt: last update timestamp.
type Claim struct {
	ID               uint64     `json:"id"`                // claims.id
	AvailabilityID   uint64     `json:"availability_id"`   // claims.availability_id
	ClaimerID        uint64     `json:"claimer_id"`        // claims.claimer_id
	ClaimedAt        time.Time  `json:"claimed_at"`        // claims.claimed_at
	ExpectedDuration *uint32    `json:"expected_duration"` // claims.expected_duration (nullable)
	ReleasedAt       *time.Time `json:"released_at"`       // claims.released_at (nullable)
	CreatedAt        time.Time  `json:"created_at"`        // claims.created_at
	UpdatedAt        time.Time  `json:"updated_at"`        // claims.updated_at
}

// IsActive reports whether the claim still holds its window.
func (c Claim) IsActive() bool { return c.ReleasedAt == nil }
