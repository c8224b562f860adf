package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/model"
	"github.com/iliyamo/parkshare/internal/queue"
)

// publishTimeout bounds the post-commit event publish.
const publishTimeout = 3 * time.Second

// ClaimService is the claim manager.  Per availability a claim moves
// Open -> Claimed -> Open; per claim Active -> Released, and a released
// claim never changes again.
type ClaimService struct {
	claims ClaimStore
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewClaimService wires the claim manager.  events may be nil, in which
// case no activity is published.
func NewClaimService(claims ClaimStore, events EventPublisher, log *zap.Logger) *ClaimService {
	return &ClaimService{claims: claims, events: events, log: log, now: time.Now}
}

// Claim takes availabilityID for claimerID.  expectedMinutes, when set,
// must be positive.
func (s *ClaimService) Claim(ctx context.Context, availabilityID, claimerID uint64, expectedMinutes *int) (*model.Claim, error) {
	var expected *uint32
	if expectedMinutes != nil {
		m := *expectedMinutes
		if m <= 0 || int64(m) > math.MaxUint32 {
			return nil, fail(KindInvalidInput, "expected duration must be a positive number of minutes")
		}
		v := uint32(m)
		expected = &v
	}

	c, err := s.claims.Create(ctx, availabilityID, claimerID, expected, s.now())
	if err != nil {
		return nil, logFailure(s.log, "claim", translate(err),
			zap.Uint64("availability_id", availabilityID), zap.Uint64("claimer_id", claimerID))
	}
	s.log.Info("availability claimed",
		zap.Uint64("claim_id", c.ID), zap.Uint64("availability_id", availabilityID), zap.Uint64("claimer_id", claimerID))
	s.publish(ctx, queue.EventClaimed, c, c.ClaimedAt)
	return c, nil
}

// Release ends requesterID's active claim.  Only the claimer may
// release, and only once.
func (s *ClaimService) Release(ctx context.Context, claimID, requesterID uint64) (*model.Claim, error) {
	c, err := s.claims.Release(ctx, claimID, requesterID, s.now())
	if err != nil {
		return nil, logFailure(s.log, "release", translate(err),
			zap.Uint64("claim_id", claimID), zap.Uint64("requester_id", requesterID))
	}
	s.log.Info("claim released", zap.Uint64("claim_id", claimID), zap.Uint64("availability_id", c.AvailabilityID))
	at := s.now()
	if c.ReleasedAt != nil {
		at = *c.ReleasedAt
	}
	s.publish(ctx, queue.EventReleased, c, at)
	return c, nil
}

// ListActiveClaimsForUser returns userID's unreleased claims, newest first.
func (s *ClaimService) ListActiveClaimsForUser(ctx context.Context, userID uint64) ([]model.ActiveClaim, error) {
	list, err := s.claims.ListActiveByClaimer(ctx, userID)
	if err != nil {
		return nil, logFailure(s.log, "list active claims", translate(err), zap.Uint64("user_id", userID))
	}
	return list, nil
}

// ActiveClaimForBay returns the claim currently holding any window of
// bayID, or nil.
func (s *ClaimService) ActiveClaimForBay(ctx context.Context, bayID uint64) (*model.BayClaim, error) {
	bc, err := s.claims.ActiveForBay(ctx, bayID)
	if err != nil {
		return nil, logFailure(s.log, "active claim for bay", translate(err), zap.Uint64("bay_id", bayID))
	}
	return bc, nil
}

// publish runs after the claim change is committed, so a broker outage
// never fails the request.
func (s *ClaimService) publish(ctx context.Context, typ string, c *model.Claim, at time.Time) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := queue.NewClaimEvent(typ, c.ID, c.AvailabilityID, c.ClaimerID, c.ExpectedDuration, at)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("claim event dropped", zap.String("type", typ), zap.Uint64("claim_id", c.ID), zap.Error(err))
	}
}
