package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
)

var ErrUnitClosed = errors.New("memory: unit of work already finished")

type state struct {
	listings      map[domainlistings.ListingID]domainlistings.Listing
	days          map[domainlistings.ListingID]map[time.Time]domaincalendar.Day
	rules         map[string]domainpricing.Rule
	bookings      map[domainbooking.BookingID]domainbooking.Booking
	cancellations map[domainbooking.BookingID]domainbooking.Cancellation
}

func newState() *state {
	return &state{
		listings:      make(map[domainlistings.ListingID]domainlistings.Listing),
		days:          make(map[domainlistings.ListingID]map[time.Time]domaincalendar.Day),
		rules:         make(map[string]domainpricing.Rule),
		bookings:      make(map[domainbooking.BookingID]domainbooking.Booking),
		cancellations: make(map[domainbooking.BookingID]domainbooking.Cancellation),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.listings {
		out.listings[k] = v
	}
	for id, byDate := range s.days {
		cp := make(map[time.Time]domaincalendar.Day, len(byDate))
		for d, day := range byDate {
			cp[d] = day
		}
		out.days[id] = cp
	}
	for k, v := range s.rules {
		out.rules[k] = v
	}
	for k, v := range s.bookings {
		out.bookings[k] = v
	}
	for k, v := range s.cancellations {
		out.cancellations[k] = v
	}
	return out
}

// Store keeps all aggregates in process memory. Write units hold an exclusive
// lock for their whole lifetime, which gives them serializable isolation;
// read-only units share the lock.
type Store struct {
	mu     sync.RWMutex
	state  *state
	outbox *OutboxStore
}

func NewStore() *Store {
	return &Store{state: newState(), outbox: NewOutboxStore()}
}

// Outbox exposes the relay side of the outbox.
func (s *Store) Outbox() *OutboxStore {
	return s.outbox
}

// Factory starts units of work against a Store.
type Factory struct {
	Store *Store
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u := &Unit{store: f.Store, readOnly: opts.ReadOnly}
	if opts.ReadOnly {
		f.Store.mu.RLock()
	} else {
		f.Store.mu.Lock()
		u.snapshot = f.Store.state.clone()
	}
	return u, nil
}

// Unit is a uow.UnitOfWork over a Store.
type Unit struct {
	store    *Store
	readOnly bool
	snapshot *state
	staged   []appoutbox.EventRecord
	done     bool
	release  sync.Once
}

func (u *Unit) Listings() domainlistings.Repository                 { return listingRepo{u} }
func (u *Unit) Calendar() domaincalendar.Repository                 { return calendarRepo{u} }
func (u *Unit) PriceRules() domainpricing.RuleRepository            { return ruleRepo{u} }
func (u *Unit) Bookings() domainbooking.Repository                  { return bookingRepo{u} }
func (u *Unit) Cancellations() domainbooking.CancellationRepository { return cancellationRepo{u} }
func (u *Unit) Outbox() appoutbox.Outbox                            { return unitOutbox{u} }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if !u.readOnly {
		u.store.outbox.append(u.staged)
	}
	u.unlock()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if !u.readOnly && u.snapshot != nil {
		u.store.state = u.snapshot
	}
	u.staged = nil
	u.unlock()
	return nil
}

func (u *Unit) unlock() {
	u.release.Do(func() {
		if u.readOnly {
			u.store.mu.RUnlock()
			return
		}
		u.store.mu.Unlock()
	})
}

func (u *Unit) read() (*state, error) {
	if u.done {
		return nil, ErrUnitClosed
	}
	return u.store.state, nil
}

func (u *Unit) write() (*state, error) {
	if u.done {
		return nil, ErrUnitClosed
	}
	if u.readOnly {
		return nil, uow.ErrReadOnly
	}
	return u.store.state, nil
}

type unitOutbox struct{ u *Unit }

func (o unitOutbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if _, err := o.u.write(); err != nil {
		return err
	}
	o.u.staged = append(o.u.staged, record)
	return nil
}

var _ uow.UoWFactory = Factory{}
