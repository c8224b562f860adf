// Package queue carries claim activity over RabbitMQ: the publisher
// used by the claim service and the consumer that appends each event
// to the activity log.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// ClaimQueueName is the durable queue that receives claim activity.
const ClaimQueueName = "parkshare.claims"

// Event types.
const (
	EventClaimed  = "claim.claimed"
	EventReleased = "claim.released"
)

// ClaimEvent is published after a claim is created or released.  It
// carries enough for the activity log without another database read.
type ClaimEvent struct {
	EventID          string  `json:"event_id"`
	Type             string  `json:"type"`
	ClaimID          uint64  `json:"claim_id"`
	AvailabilityID   uint64  `json:"availability_id"`
	ClaimerID        uint64  `json:"claimer_id"`
	ExpectedDuration *uint32 `json:"expected_duration,omitempty"`
	OccurredAt       string  `json:"occurred_at"`
}

// NewClaimEvent stamps an event with a fresh id and an RFC 3339 time.
func NewClaimEvent(typ string, claimID, availabilityID, claimerID uint64, expected *uint32, at time.Time) ClaimEvent {
	return ClaimEvent{
		EventID:          uuid.NewString(),
		Type:             typ,
		ClaimID:          claimID,
		AvailabilityID:   availabilityID,
		ClaimerID:        claimerID,
		ExpectedDuration: expected,
		OccurredAt:       at.UTC().Format(time.RFC3339),
	}
}
