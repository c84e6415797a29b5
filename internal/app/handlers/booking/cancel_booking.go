package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domaincalendar "staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

const cancelBookingKey = "booking.cancel"

// CancelBookingCommand is issued by the guest, the listing host or the
// platform (ActorID == domainbooking.SystemActorID).
type CancelBookingCommand struct {
	BookingID       string `validate:"required"`
	ActorID         string `validate:"required"`
	Reason          string `validate:"max=500"`
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &dto.CancelResult{} }

// CancelBookingHandler cancels, stores the refund outcome and releases the
// nights in one unit of work. The counterparty hears about it from the
// booking.cancelled subscriber after commit.
type CancelBookingHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.CancelResult, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	actor, err := booking.ActorFor(cmd.ActorID)
	if err != nil {
		return nil, err
	}

	now := h.Clock.Now()
	heldNights := booking.Status == domainbooking.StatusConfirmed
	cancellation, err := booking.Cancel(domainbooking.CancelParams{
		CancellationID: uuid.NewString(),
		Actor:          actor,
		Reason:         cmd.Reason,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := unit.Cancellations().Create(ctx, cancellation); err != nil {
		return nil, err
	}

	evts := booking.Drain()
	if heldNights {
		released, err := h.release(ctx, unit, booking, now)
		if err != nil {
			return nil, err
		}
		evts = append(evts, released)
	}
	if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, evts); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking cancelled",
			"booking_id", booking.ID, "cancelled_by", actor, "refund", money.String(cancellation.RefundAmount),
			"days_until_check_in", cancellation.Policy.DaysUntilCheckIn)
	}
	return &dto.CancelResult{
		Booking:      dto.MapBooking(booking),
		Cancellation: dto.MapCancellation(cancellation),
		RefundAmount: money.String(cancellation.RefundAmount),
	}, nil
}

// release frees every night the booking held. Only confirmed bookings hold
// nights; releasing a pending one could free a night another booking owns.
func (h *CancelBookingHandler) release(ctx context.Context, unit uow.UnitOfWork, booking *domainbooking.Booking, now time.Time) (events.DomainEvent, error) {
	listing, err := unit.Listings().ByID(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}
	from, to := domainavailability.Window(booking.Range)
	locked, err := unit.Calendar().LockRange(ctx, listing.ID, from, to)
	if err != nil {
		return nil, err
	}
	freed := domaincalendar.SetAvailability(listing, locked, booking.Range, true)
	if err := unit.Calendar().Upsert(ctx, freed); err != nil {
		return nil, err
	}
	return domaincalendar.Released{
		ListingID: string(listing.ID),
		BookingID: string(booking.ID),
		CheckIn:   booking.Range.CheckIn,
		CheckOut:  booking.Range.CheckOut,
		At:        now,
	}, nil
}

var _ commands.Handler[CancelBookingCommand, *dto.CancelResult] = (*CancelBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CancelBookingCommand)(nil)
