package booking

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

// SystemActorID cancels on behalf of the platform.
const SystemActorID = "system"

var (
	ErrBookingNotFound   = apperr.NotFound("booking: not found")
	ErrInvalidGuests     = apperr.Validation("booking: guests count must be positive")
	ErrGuestRequired     = apperr.Validation("booking: guest id required")
	ErrNegativeTotal     = apperr.Validation("booking: total price cannot be negative")
	ErrCheckInInPast     = apperr.Validation("booking: check-in date is in the past")
	ErrInvalidTransition = apperr.Conflict("booking: invalid state transition")
	ErrAlreadyCancelled  = apperr.Conflict("booking: already cancelled")
	ErrAlreadyCompleted  = apperr.Conflict("booking: already completed")
	ErrBookingExpired    = apperr.Conflict("booking: expired")
	ErrNotHost           = apperr.NotFound("booking: not found for host")
	ErrVersionConflict   = apperr.Conflict("booking: concurrent modification")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefundPending     PaymentStatus = "refund_pending"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type Actor string

const (
	ActorGuest  Actor = "guest"
	ActorHost   Actor = "host"
	ActorSystem Actor = "system"
)

type Booking struct {
	ID                 BookingID
	ListingID          listings.ListingID
	GuestID            string
	HostID             string
	Range              daterange.DateRange
	Guests             int
	TotalPrice         decimal.Decimal
	Status             Status
	PaymentStatus      PaymentStatus
	Policy             listings.CancellationPolicy
	CancellationReason string
	CancelledBy        Actor
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
	events.EventRecorder
}

// Repository persists bookings. Save must fail with ErrVersionConflict when
// the stored version differs from the loaded one.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
}

type CreateParams struct {
	ID         BookingID
	ListingID  listings.ListingID
	GuestID    string
	HostID     string
	Range      daterange.DateRange
	Guests     int
	TotalPrice decimal.Decimal
	Policy     listings.CancellationPolicy
	CreatedAt  time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if params.TotalPrice.IsNegative() {
		return nil, ErrNegativeTotal
	}
	if _, err := TermsFor(params.Policy); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:            params.ID,
		ListingID:     params.ListingID,
		GuestID:       params.GuestID,
		HostID:        params.HostID,
		Range:         params.Range,
		Guests:        params.Guests,
		TotalPrice:    params.TotalPrice.Round(2),
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Policy:        params.Policy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, HostID: b.HostID,
		CheckIn: b.Range.CheckIn, CheckOut: b.Range.CheckOut, Guests: b.Guests, TotalPrice: b.TotalPrice, At: now,
	})
	return b, nil
}

// ActorFor maps an actor id to the role it plays on this booking. Ids that are
// neither party see the booking as absent.
func (b *Booking) ActorFor(actorID string) (Actor, error) {
	switch strings.TrimSpace(actorID) {
	case "":
		return "", ErrBookingNotFound
	case SystemActorID:
		return ActorSystem, nil
	case b.GuestID:
		return ActorGuest, nil
	case b.HostID:
		return ActorHost, nil
	}
	return "", ErrBookingNotFound
}

func (b *Booking) transition(next Status, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		switch b.Status {
		case StatusCancelled:
			return ErrAlreadyCancelled
		case StatusCompleted:
			return ErrAlreadyCompleted
		case StatusExpired:
			return ErrBookingExpired
		}
		return ErrInvalidTransition
	}
	b.Status = next
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, CheckIn: b.Range.CheckIn, CheckOut: b.Range.CheckOut, TotalPrice: b.TotalPrice, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if err := b.transition(StatusCompleted, now); err != nil {
		return err
	}
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Expire(now time.Time) error {
	if err := b.transition(StatusExpired, now); err != nil {
		return err
	}
	b.Record(BookingExpired{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

type CancelParams struct {
	CancellationID string
	Actor          Actor
	Reason         string
	Now            time.Time
}

// Cancel moves the booking to cancelled and returns the cancellation record
// with the refund computed from the booking's policy. The booking is left
// untouched on error.
func (b *Booking) Cancel(params CancelParams) (*Cancellation, error) {
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return nil, b.transition(StatusCancelled, params.Now)
	}
	quote, err := ComputeRefund(b.Policy, b.TotalPrice, b.Range.CheckIn, params.Now)
	if err != nil {
		return nil, err
	}
	if err := b.transition(StatusCancelled, params.Now); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(params.Reason)
	b.CancelledBy = params.Actor
	b.CancellationReason = reason

	status := CancellationProcessed
	if quote.Refund.IsPositive() {
		status = CancellationPending
		if b.PaymentStatus == PaymentPaid {
			b.PaymentStatus = PaymentRefundPending
		}
	}
	c := &Cancellation{
		ID:              params.CancellationID,
		BookingID:       b.ID,
		CancelledBy:     params.Actor,
		Reason:          reason,
		RefundAmount:    quote.Refund,
		CancellationFee: quote.Fee,
		Policy:          quote.Snapshot,
		Status:          status,
		CreatedAt:       b.UpdatedAt,
	}
	b.Record(BookingCancelled{
		BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, HostID: b.HostID,
		CancelledBy: params.Actor, Reason: reason, CheckIn: b.Range.CheckIn, CheckOut: b.Range.CheckOut,
		RefundAmount: quote.Refund, CancellationFee: quote.Fee, At: b.UpdatedAt,
	})
	return c, nil
}

// ValidateCheckIn rejects stays that start before today.
func ValidateCheckIn(dr daterange.DateRange, now time.Time) error {
	if daterange.Day(dr.CheckIn).Before(daterange.Day(now)) {
		return ErrCheckInInPast
	}
	return nil
}
