package model

import "time"

// Availability is a time window during which the owner offers a bay.
// A nil bound leaves that side of the window unconstrained.  Windows
// are superseded rather than deleted.
//
// Fields:
//
//   - ID: primary key identifier.
//   - BayID: bay the window belongs to.
//   - IsAvailable: owner switch; a closed window is never claimable.
//   - AvailableFrom: window start (nullable).
//   - AvailableUntil: window end (nullable).
//   - CreatedAt: creation timestamp.
//   - UpdatedAt: last update timestamp.
type Availability struct {
	ID             uint64     `json:"id"`              // availabilities.id
	BayID          uint64     `json:"bay_id"`          // availabilities.bay_id
	IsAvailable    bool       `json:"is_available"`    // availabilities.is_available
	AvailableFrom  *time.Time `json:"available_from"`  // availabilities.available_from (nullable)
	AvailableUntil *time.Time `json:"available_until"` // availabilities.available_until (nullable)
	CreatedAt      time.Time  `json:"created_at"`      // availabilities.created_at
	UpdatedAt      time.Time  `json:"updated_at"`      // availabilities.updated_at
}
