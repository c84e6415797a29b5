package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Subscriber reacts to a relayed event record.
type Subscriber func(ctx context.Context, rec EventRecord) error

// Dispatcher fans relayed records out to in-process subscribers by event name.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[string][]Subscriber
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[string][]Subscriber)}
}

func (d *Dispatcher) Subscribe(name string, sub Subscriber) {
	if name == "" || sub == nil {
		panic("outbox: invalid subscription")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[name] = append(d.subs[name], sub)
}

// Dispatch runs every subscriber of rec.Name and joins their errors.
// Records without subscribers are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, rec EventRecord) error {
	d.mu.RLock()
	subs := append([]Subscriber(nil), d.subs[rec.Name]...)
	d.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Handles reports whether anything subscribes to name.
func (d *Dispatcher) Handles(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[name]) > 0
}
