package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "staybook/internal/app/outbox"
	infraoutbox "staybook/internal/infra/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	state     string
	attempts  int
	nextAt    time.Time
	claimedBy string
	lastError string
}

// OutboxStore holds committed event records until the relay sends them.
type OutboxStore struct {
	mu      sync.Mutex
	entries []*outboxEntry
	byID    map[string]*outboxEntry
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{byID: make(map[string]*outboxEntry)}
}

func (o *OutboxStore) append(records []appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, rec := range records {
		e := &outboxEntry{record: rec, state: infraoutbox.StateNew, nextAt: now}
		o.entries = append(o.entries, e)
		o.byID[rec.ID] = e
	}
}

func (o *OutboxStore) Claim(ctx context.Context, workerID string, limit int) ([]infraoutbox.Pending, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	out := make([]infraoutbox.Pending, 0, limit)
	for _, e := range o.entries {
		if len(out) >= limit {
			break
		}
		if e.state != infraoutbox.StateNew && e.state != infraoutbox.StateFailed {
			continue
		}
		if e.nextAt.After(now) {
			continue
		}
		e.state = infraoutbox.StateClaimed
		e.claimedBy = workerID
		out = append(out, infraoutbox.Pending{EventRecord: e.record, Attempts: e.attempts})
	}
	return out, nil
}

func (o *OutboxStore) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.byID[id]
	if !ok {
		return nil
	}
	e.state = infraoutbox.StateSent
	o.compact()
	return nil
}

func (o *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.byID[id]
	if !ok {
		return nil
	}
	e.state = infraoutbox.StateFailed
	e.attempts++
	e.nextAt = next
	e.lastError = errMsg
	return nil
}

// Pending reports how many records still wait for the relay.
func (o *OutboxStore) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if e.state != infraoutbox.StateSent {
			n++
		}
	}
	return n
}

// compact drops sent entries from the head of the queue.
func (o *OutboxStore) compact() {
	i := 0
	for i < len(o.entries) && o.entries[i].state == infraoutbox.StateSent {
		delete(o.byID, o.entries[i].record.ID)
		i++
	}
	o.entries = o.entries[i:]
}

var _ infraoutbox.Store = (*OutboxStore)(nil)
