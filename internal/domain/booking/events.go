package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/listings"
)

const (
	EventRequested = "booking.requested"
	EventConfirmed = "booking.confirmed"
	EventCancelled = "booking.cancelled"
	EventCompleted = "booking.completed"
	EventExpired   = "booking.expired"
)

type BookingRequested struct {
	BookingID  BookingID
	ListingID  listings.ListingID
	GuestID    string
	HostID     string
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
	TotalPrice decimal.Decimal
	At         time.Time
}

func (e BookingRequested) EventName() string     { return EventRequested }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  BookingID
	ListingID  listings.ListingID
	CheckIn    time.Time
	CheckOut   time.Time
	TotalPrice decimal.Decimal
	At         time.Time
}

func (e BookingConfirmed) EventName() string     { return EventConfirmed }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

// BookingCancelled carries enough context to notify the counterparty
// without reloading the booking.
type BookingCancelled struct {
	BookingID       BookingID
	ListingID       listings.ListingID
	GuestID         string
	HostID          string
	CancelledBy     Actor
	Reason          string
	CheckIn         time.Time
	CheckOut        time.Time
	RefundAmount    decimal.Decimal
	CancellationFee decimal.Decimal
	At              time.Time
}

func (e BookingCancelled) EventName() string     { return EventCancelled }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

// Counterparty returns the id that should hear about the cancellation.
func (e BookingCancelled) Counterparty() string {
	if e.CancelledBy == ActorGuest {
		return e.HostID
	}
	return e.GuestID
}

type BookingCompleted struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingCompleted) EventName() string     { return EventCompleted }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingExpired struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingExpired) EventName() string     { return EventExpired }
func (e BookingExpired) AggregateID() string   { return string(e.BookingID) }
func (e BookingExpired) OccurredAt() time.Time { return e.At }
