package booking

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domaincalendar "staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/events"
)

const confirmHostBookingKey = "host.bookings.confirm"

type ConfirmHostBookingCommand struct {
	HostID    string `validate:"required"`
	BookingID string `validate:"required"`
}

func (c ConfirmHostBookingCommand) Key() string { return confirmHostBookingKey }

// ConfirmHostBookingHandler blocks the nights of a pending booking. The rows
// are locked before availability is re-checked, so of two bookings competing
// for a night only the first to lock it is confirmed.
type ConfirmHostBookingHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *ConfirmHostBookingHandler) Handle(ctx context.Context, cmd ConfirmHostBookingCommand) (*dto.Booking, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if booking.HostID != cmd.HostID {
		return nil, domainbooking.ErrNotHost
	}
	now := h.Clock.Now()
	if !booking.Status.CanTransitionTo(domainbooking.StatusConfirmed) {
		// reports the precise conflict
		return nil, booking.Confirm(now)
	}

	listing, err := unit.Listings().ByID(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}
	from, to := domainavailability.Window(booking.Range)
	locked, err := unit.Calendar().LockRange(ctx, listing.ID, from, to)
	if err != nil {
		return nil, err
	}
	res, err := domainavailability.Evaluate(listing, locked, nil, domainavailability.Request{
		Range:  booking.Range,
		Guests: booking.Guests,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}
	if err := res.Conflict(); err != nil {
		return nil, err
	}

	blocked := domaincalendar.SetAvailability(listing, locked, booking.Range, false)
	if err := unit.Calendar().Upsert(ctx, blocked); err != nil {
		return nil, err
	}
	if err := booking.Confirm(now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}

	calendarEvt := domaincalendar.Blocked{
		ListingID: string(listing.ID),
		BookingID: string(booking.ID),
		CheckIn:   booking.Range.CheckIn,
		CheckOut:  booking.Range.CheckOut,
		At:        now,
	}
	if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, booking.Drain(), []events.DomainEvent{calendarEvt}); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking confirmed", "booking_id", booking.ID, "listing_id", listing.ID, "nights", len(blocked))
	}
	result := dto.MapBooking(booking)
	return &result, nil
}

var _ commands.Handler[ConfirmHostBookingCommand, *dto.Booking] = (*ConfirmHostBookingHandler)(nil)
