package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

const replaceCalendarRangeKey = "calendar.replace_range"

var ErrListingNotOwned = apperr.NotFound("calendar: listing not found for host")

type CalendarEntry struct {
	Date            time.Time
	Available       bool
	BasePrice       decimal.Decimal
	MinStay         int
	MaxStay         int
	CheckInAllowed  bool
	CheckOutAllowed bool
}

// ReplaceCalendarRangeCommand swaps every stored row of [Start, End] for
// Entries. Dates of the span without an entry fall back to listing defaults.
type ReplaceCalendarRangeCommand struct {
	HostID    string    `validate:"required"`
	ListingID string    `validate:"required"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required"`
	Entries   []CalendarEntry
}

func (c ReplaceCalendarRangeCommand) Key() string { return replaceCalendarRangeKey }

type ReplaceCalendarRangeHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *ReplaceCalendarRangeHandler) Handle(ctx context.Context, cmd ReplaceCalendarRangeCommand) (*dto.Calendar, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id := domainlistings.ListingID(cmd.ListingID)
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Host != domainlistings.HostID(cmd.HostID) {
		return nil, ErrListingNotOwned
	}

	days := make([]domaincalendar.Day, 0, len(cmd.Entries))
	for _, e := range cmd.Entries {
		days = append(days, domaincalendar.Day{
			ListingID:       id,
			Date:            e.Date,
			Available:       e.Available,
			BasePrice:       e.BasePrice,
			MinStay:         e.MinStay,
			MaxStay:         e.MaxStay,
			CheckInAllowed:  e.CheckInAllowed,
			CheckOutAllowed: e.CheckOutAllowed,
		})
	}
	from, to := daterange.Day(cmd.Start), daterange.Day(cmd.End)
	days, err = domaincalendar.ValidateEntries(id, from, to, days)
	if err != nil {
		return nil, err
	}

	// serialise with confirmations touching the same nights
	if _, err := unit.Calendar().LockRange(ctx, id, from, to); err != nil {
		return nil, err
	}
	if err := unit.Calendar().ReplaceRange(ctx, id, from, to, days); err != nil {
		return nil, err
	}

	evt := domaincalendar.RangeReplacedEvent(id, from, to, len(days), h.Clock.Now())
	if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, []events.DomainEvent{evt}); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "calendar range replaced",
			"listing_id", id, "from", daterange.FormatDate(from), "to", daterange.FormatDate(to), "entries", len(days))
	}
	return &dto.Calendar{
		ListingID: string(id),
		Start:     daterange.FormatDate(from),
		End:       daterange.FormatDate(to),
		Days:      dto.MapCalendarDays(days),
	}, nil
}

var _ commands.Handler[ReplaceCalendarRangeCommand, *dto.Calendar] = (*ReplaceCalendarRangeHandler)(nil)
