package listings

import (
	"time"
)

type ListingCreatedEvent struct {
	ListingID ListingID
	HostID    HostID
	At        time.Time
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

// EventListingPublished is consumed by the calendar seeder.
const EventListingPublished = "listing.published"

type ListingPublishedEvent struct {
	ListingID ListingID
	HostID    HostID
	At        time.Time
}

func (e ListingPublishedEvent) EventName() string     { return EventListingPublished }
func (e ListingPublishedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingPublishedEvent) OccurredAt() time.Time { return e.At }

type ListingSuspendedEvent struct {
	ListingID ListingID
	Reason    string
	At        time.Time
}

func (e ListingSuspendedEvent) EventName() string     { return "listing.suspended" }
func (e ListingSuspendedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingSuspendedEvent) OccurredAt() time.Time { return e.At }
