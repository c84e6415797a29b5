package calendar

import (
	"time"

	"staybook/internal/domain/listings"
)

const (
	EventRangeReplaced = "calendar.range_replaced"
	EventSeeded        = "calendar.seeded"
	EventBlocked       = "calendar.blocked"
	EventReleased      = "calendar.released"
)

type RangeReplaced struct {
	ListingID string
	From      time.Time
	To        time.Time
	Entries   int
	At        time.Time
}

func (e RangeReplaced) EventName() string     { return EventRangeReplaced }
func (e RangeReplaced) AggregateID() string   { return e.ListingID }
func (e RangeReplaced) OccurredAt() time.Time { return e.At }

type Seeded struct {
	ListingID   string
	From        time.Time
	DaysCreated int
	At          time.Time
}

func (e Seeded) EventName() string     { return EventSeeded }
func (e Seeded) AggregateID() string   { return e.ListingID }
func (e Seeded) OccurredAt() time.Time { return e.At }

// Blocked is raised when booking confirmation reserves nights.
type Blocked struct {
	ListingID string
	BookingID string
	CheckIn   time.Time
	CheckOut  time.Time
	At        time.Time
}

func (e Blocked) EventName() string     { return EventBlocked }
func (e Blocked) AggregateID() string   { return e.ListingID }
func (e Blocked) OccurredAt() time.Time { return e.At }

// Released is raised when a cancellation frees nights.
type Released struct {
	ListingID string
	BookingID string
	CheckIn   time.Time
	CheckOut  time.Time
	At        time.Time
}

func (e Released) EventName() string     { return EventReleased }
func (e Released) AggregateID() string   { return e.ListingID }
func (e Released) OccurredAt() time.Time { return e.At }

func RangeReplacedEvent(id listings.ListingID, from, to time.Time, entries int, at time.Time) RangeReplaced {
	return RangeReplaced{ListingID: string(id), From: from, To: to, Entries: entries, At: at.UTC()}
}

func SeededEvent(id listings.ListingID, from time.Time, created int, at time.Time) Seeded {
	return Seeded{ListingID: string(id), From: from, DaysCreated: created, At: at.UTC()}
}
