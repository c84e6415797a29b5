package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/shared/apperr"
)

var (
	ErrCancellationNotFound = apperr.NotFound("booking: cancellation not found")
	ErrCancellationExists   = apperr.Conflict("booking: cancellation already recorded")
)

type CancellationStatus string

const (
	CancellationPending   CancellationStatus = "pending"
	CancellationProcessed CancellationStatus = "processed"
)

// Cancellation records the outcome of cancelling a booking.
type Cancellation struct {
	ID              string
	BookingID       BookingID
	CancelledBy     Actor
	Reason          string
	RefundAmount    decimal.Decimal
	CancellationFee decimal.Decimal
	Policy          PolicySnapshot
	Status          CancellationStatus
	CreatedAt       time.Time
}

type CancellationRepository interface {
	// Create fails when the booking already has a cancellation.
	Create(ctx context.Context, c *Cancellation) error
	ByBookingID(ctx context.Context, id BookingID) (*Cancellation, error)
}
