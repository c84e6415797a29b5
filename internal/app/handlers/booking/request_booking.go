package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityhandlers "staybook/internal/app/handlers/availability"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
)

const requestBookingKey = "booking.request"

var ErrListingInactive = apperr.Conflict("booking: listing is not accepting bookings")

type RequestBookingCommand struct {
	BookingID       string
	ListingID       string    `validate:"required"`
	GuestID         string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required"`
	Guests          int       `validate:"gte=1"`
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

// RequestBookingHandler creates a pending booking priced night by night. It
// reserves nothing; nights are blocked on confirmation.
type RequestBookingHandler struct {
	Encoder outbox.EventEncoder
	Signals pricing.SignalSource
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.Booking, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dr, err := daterange.NewDates(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, domainavailability.ErrInvalidRange
	}
	now := h.Clock.Now()
	if err := domainbooking.ValidateCheckIn(dr, now); err != nil {
		return nil, err
	}

	listingID := domainlistings.ListingID(cmd.ListingID)
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.State != domainlistings.ListingActive {
		return nil, ErrListingInactive
	}

	res, err := availabilityhandlers.Evaluate(ctx, unit, listingID, domainavailability.Request{
		Range:   dr,
		Guests:  cmd.Guests,
		Now:     now,
		Signals: h.Signals,
	})
	if err != nil {
		return nil, err
	}
	if err := res.Conflict(); err != nil {
		return nil, err
	}

	bookingID := strings.TrimSpace(cmd.BookingID)
	if bookingID == "" {
		bookingID = uuid.NewString()
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(bookingID),
		ListingID:  listing.ID,
		GuestID:    cmd.GuestID,
		HostID:     string(listing.Host),
		Range:      dr,
		Guests:     cmd.Guests,
		TotalPrice: res.TotalPrice,
		Policy:     listing.CancellationPolicy,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, booking.Drain()); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking requested",
			"booking_id", booking.ID, "listing_id", listing.ID, "nights", res.Nights, "total", res.TotalPrice.StringFixed(2))
	}
	result := dto.MapBooking(booking)
	return &result, nil
}

var _ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestBookingCommand)(nil)
