package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/model"
)

// BoardService answers the read-side questions: what can be claimed now,
// what opens later, what is taken, and what the owner's bay looks like.
// Openness is always recomputed from the now argument; nothing expires
// in the store.
type BoardService struct {
	board   BoardStore
	bays    BayStore
	windows AvailabilityStore
	claims  ClaimStore
	log     *zap.Logger
}

func NewBoardService(board BoardStore, bays BayStore, windows AvailabilityStore, claims ClaimStore, log *zap.Logger) *BoardService {
	return &BoardService{board: board, bays: bays, windows: windows, claims: claims, log: log}
}

// ListOpenNow returns unclaimed windows of visible bays open at now.
func (s *BoardService) ListOpenNow(ctx context.Context, now time.Time) ([]model.Listing, error) {
	b, err := s.Board(ctx, now)
	if err != nil {
		return nil, err
	}
	return b.OpenNow, nil
}

// ListOpenFuture returns unclaimed windows of visible bays starting after now.
func (s *BoardService) ListOpenFuture(ctx context.Context, now time.Time) ([]model.Listing, error) {
	b, err := s.Board(ctx, now)
	if err != nil {
		return nil, err
	}
	return b.OpenFuture, nil
}

// Board partitions the visible windows at now.  A window whose bay is
// held by an active claim is never claimable; if it is open now it is
// listed under Taken so clients can show it disabled.
func (s *BoardService) Board(ctx context.Context, now time.Time) (*model.Board, error) {
	rows, err := s.board.ListVisibleWindows(ctx, now)
	if err != nil {
		return nil, logFailure(s.log, "list board", translate(err))
	}
	b := &model.Board{
		OpenNow:    make([]model.Listing, 0),
		OpenFuture: make([]model.Listing, 0),
		Taken:      make([]model.Listing, 0),
	}
	for _, l := range rows {
		b.NextChange = earliest(b.NextChange, nextBoundary(l.Availability, now))
		claimed := l.ActiveClaimID != nil
		switch {
		case IsCurrentlyOpen(l.Availability, now) && claimed:
			b.Taken = append(b.Taken, l)
		case IsCurrentlyOpen(l.Availability, now):
			b.OpenNow = append(b.OpenNow, l)
		case IsFuture(l.Availability, now) && !claimed:
			b.OpenFuture = append(b.OpenFuture, l)
		}
	}
	return b, nil
}

// nextBoundary is the instant after now at which a's openness flips: its
// start while it lies ahead, otherwise its inclusive end.
func nextBoundary(a model.Availability, now time.Time) *time.Time {
	switch {
	case a.AvailableFrom != nil && a.AvailableFrom.After(now):
		return a.AvailableFrom
	case a.AvailableUntil != nil && !a.AvailableUntil.Before(now):
		return a.AvailableUntil
	}
	return nil
}

func earliest(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.Before(*a)) {
		return b
	}
	return a
}

// MyBay returns the owner's bay with every window classified at now and
// the claim currently holding it, if any.
func (s *BoardService) MyBay(ctx context.Context, ownerID uint64, now time.Time) (*model.BayOverview, error) {
	bay, err := s.bays.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, logFailure(s.log, "my bay", translate(err), zap.Uint64("owner_id", ownerID))
	}
	windows, err := s.windows.ListByBay(ctx, bay.ID)
	if err != nil {
		return nil, logFailure(s.log, "my bay windows", translate(err), zap.Uint64("bay_id", bay.ID))
	}
	active, err := s.claims.ActiveForBay(ctx, bay.ID)
	if err != nil {
		return nil, logFailure(s.log, "my bay claim", translate(err), zap.Uint64("bay_id", bay.ID))
	}

	views := make([]model.WindowView, 0, len(windows))
	for _, w := range windows {
		views = append(views, model.WindowView{Availability: w, State: Classify(w, now)})
	}
	return &model.BayOverview{Bay: *bay, Windows: views, ActiveClaim: active}, nil
}
