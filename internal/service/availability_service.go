package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/model"
)

// AvailabilityService is the availability ledger: owners publish and
// edit time windows for their bay.
type AvailabilityService struct {
	windows AvailabilityStore
	bays    BayStore
	log     *zap.Logger
	now     func() time.Time
}

func NewAvailabilityService(windows AvailabilityStore, bays BayStore, log *zap.Logger) *AvailabilityService {
	return &AvailabilityService{windows: windows, bays: bays, log: log, now: time.Now}
}

// CreateWindow publishes a new window on the owner's bay.  The window is
// open for claims only if the bay is visible.  Bounds are kept to whole
// seconds.
func (s *AvailabilityService) CreateWindow(ctx context.Context, bayID, ownerID uint64, from, until *time.Time) (*model.Availability, error) {
	from, until = wholeSecond(from), wholeSecond(until)
	if err := ValidateWindow(from, until); err != nil {
		if oerr := s.ownBay(ctx, bayID, ownerID); oerr != nil {
			return nil, oerr
		}
		return nil, err
	}
	a, err := s.windows.Create(ctx, bayID, ownerID, from, until, s.now())
	if err != nil {
		return nil, logFailure(s.log, "create window", translate(err), zap.Uint64("bay_id", bayID))
	}
	s.log.Info("window created", zap.Uint64("availability_id", a.ID), zap.Uint64("bay_id", bayID), zap.Bool("available", a.IsAvailable))
	return a, nil
}

// UpdateWindow replaces the bounds of an existing window in place.
func (s *AvailabilityService) UpdateWindow(ctx context.Context, availabilityID, ownerID uint64, from, until *time.Time) (*model.Availability, error) {
	from, until = wholeSecond(from), wholeSecond(until)
	if err := ValidateWindow(from, until); err != nil {
		a, gerr := s.windows.GetByID(ctx, availabilityID)
		if gerr != nil {
			return nil, translate(gerr)
		}
		if oerr := s.ownBay(ctx, a.BayID, ownerID); oerr != nil {
			return nil, oerr
		}
		return nil, err
	}
	a, err := s.windows.UpdateWindow(ctx, availabilityID, ownerID, from, until, s.now())
	if err != nil {
		return nil, logFailure(s.log, "update window", translate(err), zap.Uint64("availability_id", availabilityID))
	}
	s.log.Info("window updated", zap.Uint64("availability_id", availabilityID))
	return a, nil
}

// SetWindowAvailable opens or closes a window for claims.  Closing a
// window does not end a claim that already holds it.
func (s *AvailabilityService) SetWindowAvailable(ctx context.Context, availabilityID, ownerID uint64, available bool) (*model.Availability, error) {
	a, err := s.windows.SetAvailable(ctx, availabilityID, ownerID, available, s.now())
	if err != nil {
		return nil, logFailure(s.log, "set window availability", translate(err), zap.Uint64("availability_id", availabilityID))
	}
	s.log.Info("window availability changed", zap.Uint64("availability_id", availabilityID), zap.Bool("available", available))
	return a, nil
}

// ownBay resolves NotFound and NotOwner for bayID, so a rejected window
// reports them ahead of InvalidWindow.
func (s *AvailabilityService) ownBay(ctx context.Context, bayID, ownerID uint64) error {
	b, err := s.bays.GetByID(ctx, bayID)
	if err != nil {
		return translate(err)
	}
	if b.OwnerID != ownerID {
		return fail(KindNotOwner, "bay %d belongs to another user", bayID)
	}
	return nil
}

func wholeSecond(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Second)
	return &v
}

// ValidateWindow rejects a window whose start is not before its end.
// An open bound on either side is always valid.
func ValidateWindow(from, until *time.Time) error {
	if from != nil && until != nil && !from.Before(*until) {
		return fail(KindInvalidWindow, "available_from %s is not before available_until %s",
			from.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339))
	}
	return nil
}

// IsCurrentlyOpen reports whether a is switched on and now lies within
// its bounds (both inclusive).  A missing bound does not constrain.
func IsCurrentlyOpen(a model.Availability, now time.Time) bool {
	if !a.IsAvailable {
		return false
	}
	if a.AvailableFrom != nil && now.Before(*a.AvailableFrom) {
		return false
	}
	if a.AvailableUntil != nil && now.After(*a.AvailableUntil) {
		return false
	}
	return true
}

// IsFuture reports whether a starts after now.
func IsFuture(a model.Availability, now time.Time) bool {
	return a.AvailableFrom != nil && a.AvailableFrom.After(now)
}

// IsExpired reports whether a ended before now.
func IsExpired(a model.Availability, now time.Time) bool {
	return a.AvailableUntil != nil && a.AvailableUntil.Before(now)
}

// Classify places a on the owner's dashboard.
func Classify(a model.Availability, now time.Time) model.WindowState {
	switch {
	case !a.IsAvailable:
		return model.WindowClosed
	case IsExpired(a, now):
		return model.WindowExpired
	case IsFuture(a, now):
		return model.WindowFuture
	default:
		return model.WindowOpen
	}
}
