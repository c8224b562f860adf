package handler

import (
	"context"
	"time"

	"github.com/iliyamo/parkshare/internal/model"
)

// The handler layer depends on these narrow views of the services so it
// can be exercised without a database.

type BayAPI interface {
	RegisterBay(ctx context.Context, ownerID uint64, label string, confirmOwnership bool) (*model.Bay, error)
	GetBay(ctx context.Context, bayID uint64) (*model.Bay, error)
	UpdateLabel(ctx context.Context, bayID, ownerID uint64, label string) error
	UpdateNote(ctx context.Context, bayID, ownerID uint64, note string) error
	SetVisibility(ctx context.Context, bayID, ownerID uint64, visible bool) error
}

type WindowAPI interface {
	CreateWindow(ctx context.Context, bayID, ownerID uint64, from, until *time.Time) (*model.Availability, error)
	UpdateWindow(ctx context.Context, availabilityID, ownerID uint64, from, until *time.Time) (*model.Availability, error)
	SetWindowAvailable(ctx context.Context, availabilityID, ownerID uint64, available bool) (*model.Availability, error)
}

type ClaimAPI interface {
	Claim(ctx context.Context, availabilityID, claimerID uint64, expectedMinutes *int) (*model.Claim, error)
	Release(ctx context.Context, claimID, requesterID uint64) (*model.Claim, error)
	ListActiveClaimsForUser(ctx context.Context, userID uint64) ([]model.ActiveClaim, error)
	ActiveClaimForBay(ctx context.Context, bayID uint64) (*model.BayClaim, error)
}

// BoardAPI serves the board partitions from one read so the open-now
// and open-future routes share a freshness bound.
type BoardAPI interface {
	Board(ctx context.Context, now time.Time) (*model.Board, error)
	MyBay(ctx context.Context, ownerID uint64, now time.Time) (*model.BayOverview, error)
}
