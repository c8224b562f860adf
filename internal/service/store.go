package service

import (
	"context"
	"time"

	"github.com/iliyamo/parkshare/internal/model"
	"github.com/iliyamo/parkshare/internal/queue"
)

// BayStore is the persistence the bay registry needs.
// *repository.BayRepo implements it.
type BayStore interface {
	CreateWithInitialWindow(ctx context.Context, ownerID uint64, label string, now time.Time) (*model.Bay, error)
	GetByID(ctx context.Context, id uint64) (*model.Bay, error)
	GetByOwner(ctx context.Context, ownerID uint64) (*model.Bay, error)
	UpdateLabel(ctx context.Context, bayID, ownerID uint64, label string, now time.Time) error
	UpdateNote(ctx context.Context, bayID, ownerID uint64, note *string, now time.Time) error
	SetVisibility(ctx context.Context, bayID, ownerID uint64, visible bool, now time.Time) error
}

// AvailabilityStore is implemented by *repository.AvailabilityRepo.
type AvailabilityStore interface {
	Create(ctx context.Context, bayID, ownerID uint64, from, until *time.Time, now time.Time) (*model.Availability, error)
	GetByID(ctx context.Context, id uint64) (*model.Availability, error)
	UpdateWindow(ctx context.Context, id, ownerID uint64, from, until *time.Time, now time.Time) (*model.Availability, error)
	SetAvailable(ctx context.Context, id, ownerID uint64, available bool, now time.Time) (*model.Availability, error)
	ListByBay(ctx context.Context, bayID uint64) ([]model.Availability, error)
}

// ClaimStore is implemented by *repository.ClaimRepo.  Create must
// check and insert atomically.
type ClaimStore interface {
	Create(ctx context.Context, availabilityID, claimerID uint64, expected *uint32, now time.Time) (*model.Claim, error)
	GetByID(ctx context.Context, id uint64) (*model.Claim, error)
	Release(ctx context.Context, claimID, requesterID uint64, now time.Time) (*model.Claim, error)
	ListActiveByClaimer(ctx context.Context, claimerID uint64) ([]model.ActiveClaim, error)
	ActiveForBay(ctx context.Context, bayID uint64) (*model.BayClaim, error)
}

// BoardStore is implemented by *repository.BoardRepo.
type BoardStore interface {
	ListVisibleWindows(ctx context.Context, now time.Time) ([]model.Listing, error)
}

// EventPublisher receives claim activity after it is committed.
// *queue.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ClaimEvent) error
}
