package outbox

import (
	"context"
	"time"

	appoutbox "staybook/internal/app/outbox"
)

// Relay states of a stored record.
const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// Pending is a committed record handed to a worker by Claim.
type Pending struct {
	appoutbox.EventRecord
	Attempts int
}

// Store is the relay side of the outbox. Records reach it only when the unit
// of work that staged them commits.
type Store interface {
	// Claim atomically moves up to limit due NEW or FAILED records to CLAIMED.
	Claim(ctx context.Context, workerID string, limit int) ([]Pending, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
