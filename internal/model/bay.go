package model

import "time"

// Bay is a physical parking spot registered by the resident who owns it.
// Each owner has at most one bay and labels are unique across the
// community.  Bays are never deleted; owners hide them instead.
//
// Fields:
//
//   - ID: primary key identifier.
//   - Label: trimmed, unique label painted on the bay (e.g. "A23").
//   - Note: optional free text from the owner.
//   - IsVisible: whether the bay is publicly discoverable.
//   - OwnerID: user ID of the owner.
//   - CreatedAt: creation timestamp.
//   - UpdatedAt: last update timestamp.
type Bay struct {
	ID        uint64    `json:"id"`         // bays.id
	Label     string    `json:"label"`      // bays.label
	Note      *string   `json:"note"`       // bays.note (nullable)
	IsVisible bool      `json:"is_visible"` // bays.is_visible
	OwnerID   uint64    `json:"owner_id"`   // bays.owner_id
	CreatedAt time.Time `json:"created_at"` // bays.created_at
	UpdatedAt time.Time `json:"updated_at"` // bays.updated_at
}
