package availability

import (
	"context"
	"encoding/json"
	"log/slog"

	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	domaincalendar "staybook/internal/domain/calendar"
	"staybook/internal/domain/pricing"
)

// InvalidatingEvents change the answer of ComputeAvailability for a listing.
var InvalidatingEvents = []string{
	domaincalendar.EventRangeReplaced,
	domaincalendar.EventSeeded,
	domaincalendar.EventBlocked,
	domaincalendar.EventReleased,
	pricing.EventRuleSaved,
}

// CacheInvalidator drops cached answers of a listing when its calendar or
// rules change.
type CacheInvalidator struct {
	Cache  policies.AvailabilityCache
	Logger *slog.Logger
}

func (i *CacheInvalidator) Subscribe(d *outbox.Dispatcher) {
	for _, name := range InvalidatingEvents {
		d.Subscribe(name, i.Handle)
	}
}

func (i *CacheInvalidator) Handle(ctx context.Context, rec outbox.EventRecord) error {
	var payload struct {
		ListingID string
	}
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return err
	}
	if payload.ListingID == "" {
		payload.ListingID = rec.Aggregate
	}
	if err := i.Cache.Invalidate(ctx, payload.ListingID); err != nil {
		return err
	}
	if i.Logger != nil {
		i.Logger.DebugContext(ctx, "availability cache invalidated", "listing_id", payload.ListingID, "event", rec.Name)
	}
	return nil
}
