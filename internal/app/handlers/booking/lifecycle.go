package booking

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

const (
	completeBookingKey = "booking.complete"
	expireBookingKey   = "booking.expire"
)

// CompleteBookingCommand closes a confirmed stay.
type CompleteBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c CompleteBookingCommand) Key() string { return completeBookingKey }

// ExpireBookingCommand is sent by the sweep for pending bookings the host
// never answered.
type ExpireBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c ExpireBookingCommand) Key() string { return expireBookingKey }

type CompleteBookingHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (*dto.Booking, error) {
	return transitionBooking(ctx, cmd.BookingID, h.Encoder, h.Logger, "booking completed", func(b *domainbooking.Booking) error {
		return b.Complete(h.Clock.Now())
	})
}

type ExpireBookingHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *ExpireBookingHandler) Handle(ctx context.Context, cmd ExpireBookingCommand) (*dto.Booking, error) {
	return transitionBooking(ctx, cmd.BookingID, h.Encoder, h.Logger, "booking expired", func(b *domainbooking.Booking) error {
		return b.Expire(h.Clock.Now())
	})
}

func transitionBooking(ctx context.Context, id string, encoder outbox.EventEncoder, logger *slog.Logger, msg string, apply func(*domainbooking.Booking) error) (*dto.Booking, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
	if err != nil {
		return nil, err
	}
	if err := apply(booking); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, unit, encoder, booking.Drain()); err != nil {
		return nil, err
	}
	if logger != nil {
		logger.InfoContext(ctx, msg, "booking_id", booking.ID, "status", booking.Status)
	}
	result := dto.MapBooking(booking)
	return &result, nil
}

var (
	_ commands.Handler[CompleteBookingCommand, *dto.Booking] = (*CompleteBookingHandler)(nil)
	_ commands.Handler[ExpireBookingCommand, *dto.Booking]   = (*ExpireBookingHandler)(nil)
)
