package model

import "time"

// Listing is one window on the public board together with its bay and
// the owner's display name.  ActiveClaimID is set when the window is
// currently held by someone.
type Listing struct {
	Bay           Bay          `json:"bay"`
	Availability  Availability `json:"availability"`
	OwnerName     string       `json:"owner_name"`
	ActiveClaimID *uint64      `json:"active_claim_id,omitempty"`
}

// ActiveClaim is an unreleased claim seen from the claimer's side.
type ActiveClaim struct {
	Claim        Claim        `json:"claim"`
	Availability Availability `json:"availability"`
	Bay          Bay          `json:"bay"`
	OwnerName    string       `json:"owner_name"`
}

// BayClaim is an unreleased claim seen from the bay owner's side.
type BayClaim struct {
	Claim        Claim        `json:"claim"`
	Availability Availability `json:"availability"`
	ClaimerName  string       `json:"claimer_name"`
	ClaimerEmail string       `json:"claimer_email"`
}

// WindowState classifies a window relative to a given instant.
type WindowState string

const (
	WindowClosed  WindowState = "CLOSED"
	WindowOpen    WindowState = "OPEN"
	WindowFuture  WindowState = "FUTURE"
	WindowExpired WindowState = "EXPIRED"
)

// WindowView pairs a window with its state at read time.
type WindowView struct {
	Availability
	State WindowState `json:"state"`
}

// BayOverview is everything the owner's dashboard needs about their bay.
type BayOverview struct {
	Bay         Bay          `json:"bay"`
	Windows     []WindowView `json:"windows"`
	ActiveClaim *BayClaim    `json:"active_claim"`
}

// Board groups the public listings shown to claimers.  Taken holds
// windows that are open right now but already claimed; clients render
// them disabled.  NextChange is the first window boundary after the
// read instant, nil when no visible window has one ahead.
type Board struct {
	OpenNow    []Listing  `json:"open_now"`
	OpenFuture []Listing  `json:"open_future"`
	Taken      []Listing  `json:"taken"`
	NextChange *time.Time `json:"-"`
}
