package calendar

import (
	"context"
	"encoding/json"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/outbox"
	domainlistings "staybook/internal/domain/listings"
)

// ListingPublishedSubscriber seeds the calendar of every newly published
// listing. The seed runs as its own command, outside the publishing
// transaction.
type ListingPublishedSubscriber struct {
	Bus    commands.Bus
	Logger *slog.Logger
}

func (s *ListingPublishedSubscriber) Subscribe(d *outbox.Dispatcher) {
	d.Subscribe(domainlistings.EventListingPublished, s.Handle)
}

func (s *ListingPublishedSubscriber) Handle(ctx context.Context, rec outbox.EventRecord) error {
	var evt domainlistings.ListingPublishedEvent
	if err := json.Unmarshal(rec.Payload, &evt); err != nil {
		return err
	}
	if evt.ListingID == "" {
		evt.ListingID = domainlistings.ListingID(rec.Aggregate)
	}
	res, err := commands.Dispatch[SeedCalendarCommand, *dto.SeedResult](ctx, s.Bus, SeedCalendarCommand{
		ListingID: string(evt.ListingID),
		From:      evt.At,
	})
	if err != nil {
		if s.Logger != nil {
			s.Logger.ErrorContext(ctx, "calendar seeding failed", "listing_id", evt.ListingID, "error", err)
		}
		return err
	}
	if s.Logger != nil && res != nil {
		s.Logger.InfoContext(ctx, "published listing seeded", "listing_id", evt.ListingID, "days_created", res.DaysCreated)
	}
	return nil
}
