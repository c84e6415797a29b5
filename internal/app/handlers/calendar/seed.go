package calendar

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/events"
)

const seedCalendarKey = "calendar.seed"

// SeedCalendarCommand materialises a year of default rows. Existing rows are
// kept, so running it twice creates nothing the second time. A zero From
// seeds from today.
type SeedCalendarCommand struct {
	ListingID string `validate:"required"`
	HostID    string
	From      time.Time
}

func (c SeedCalendarCommand) Key() string { return seedCalendarKey }

type SeedCalendarHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *SeedCalendarHandler) Handle(ctx context.Context, cmd SeedCalendarCommand) (*dto.SeedResult, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id := domainlistings.ListingID(cmd.ListingID)
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.HostID != "" && listing.Host != domainlistings.HostID(cmd.HostID) {
		return nil, ErrListingNotOwned
	}

	now := h.Clock.Now()
	from := cmd.From
	if from.IsZero() {
		from = now
	}
	created, err := unit.Calendar().InsertMissing(ctx, domaincalendar.GenerateYear(listing, from))
	if err != nil {
		return nil, err
	}
	if created > 0 {
		evt := domaincalendar.SeededEvent(id, from, created, now)
		if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, []events.DomainEvent{evt}); err != nil {
			return nil, err
		}
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "calendar seeded", "listing_id", id, "days_created", created)
	}
	return &dto.SeedResult{ListingID: string(id), DaysCreated: created}, nil
}

var _ commands.Handler[SeedCalendarCommand, *dto.SeedResult] = (*SeedCalendarHandler)(nil)
