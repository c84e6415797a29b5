package booking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
)

var checkIn = time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

func newBooking(t *testing.T, policy listings.CancellationPolicy) *Booking {
	t.Helper()
	dr, err := daterange.NewDates(checkIn, checkIn.AddDate(0, 0, 3))
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:         "bkg-1",
		ListingID:  "lst-1",
		GuestID:    "guest-1",
		HostID:     "host-1",
		Range:      dr,
		Guests:     2,
		TotalPrice: decimal.RequireFromString("300.00"),
		Policy:     policy,
		CreatedAt:  checkIn.AddDate(0, -1, 0),
	})
	require.NoError(t, err)
	return b
}

func daysBefore(n int) time.Time {
	return checkIn.AddDate(0, 0, -n)
}

func TestRefundScenarios(t *testing.T) {
	cases := []struct {
		name   string
		policy listings.CancellationPolicy
		days   int
		refund string
	}{
		{"flexible three days out", listings.PolicyFlexible, 3, "300.00"},
		{"flexible same day", listings.PolicyFlexible, 0, "0.00"},
		{"moderate two days out", listings.PolicyModerate, 2, "0.00"},
		{"moderate five days out", listings.PolicyModerate, 5, "300.00"},
		{"strict ten days out", listings.PolicyStrict, 10, "150.00"},
		{"strict seven days out", listings.PolicyStrict, 7, "150.00"},
		{"strict three days out", listings.PolicyStrict, 3, "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newBooking(t, tc.policy)
			c, err := b.Cancel(CancelParams{CancellationID: "c-1", Actor: ActorGuest, Reason: " plans changed ", Now: daysBefore(tc.days)})
			require.NoError(t, err)
			assert.Equal(t, tc.refund, c.RefundAmount.StringFixed(2))
			assert.True(t, c.RefundAmount.Add(c.CancellationFee).Equal(b.TotalPrice))
			assert.Equal(t, tc.policy, c.Policy.Policy)
			assert.Equal(t, tc.days, c.Policy.DaysUntilCheckIn)
			assert.Equal(t, StatusCancelled, b.Status)
			assert.Equal(t, ActorGuest, b.CancelledBy)
			assert.Equal(t, "plans changed", b.CancellationReason)
		})
	}
}

func TestDaysUntilCheckInRoundsUp(t *testing.T) {
	now := checkIn.Add(-(4*24*time.Hour + time.Hour))
	assert.Equal(t, 5, DaysUntilCheckIn(checkIn, now))

	q, err := ComputeRefund(listings.PolicyModerate, decimal.NewFromInt(100), checkIn, now)
	require.NoError(t, err)
	assert.Equal(t, "100.00", q.Refund.StringFixed(2))
}

func TestRefundAfterCheckInIsZero(t *testing.T) {
	q, err := ComputeRefund(listings.PolicyFlexible, decimal.NewFromInt(100), checkIn, checkIn.Add(36*time.Hour))
	require.NoError(t, err)
	assert.True(t, q.Refund.IsZero())
	assert.True(t, q.Fee.Equal(decimal.NewFromInt(100)))
}

func TestUnknownPolicy(t *testing.T) {
	_, err := ComputeRefund("lenient", decimal.NewFromInt(100), checkIn, daysBefore(3))
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestCancelTwiceIsConflictAndKeepsState(t *testing.T) {
	b := newBooking(t, listings.PolicyFlexible)
	_, err := b.Cancel(CancelParams{Actor: ActorHost, Reason: "maintenance", Now: daysBefore(4)})
	require.NoError(t, err)
	snapshot := *b

	_, err = b.Cancel(CancelParams{Actor: ActorGuest, Reason: "again", Now: daysBefore(2)})
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, snapshot.Status, b.Status)
	assert.Equal(t, snapshot.CancelledBy, b.CancelledBy)
	assert.Equal(t, snapshot.CancellationReason, b.CancellationReason)
	assert.Equal(t, snapshot.UpdatedAt, b.UpdatedAt)
}

func TestCancelCompletedBooking(t *testing.T) {
	b := newBooking(t, listings.PolicyFlexible)
	require.NoError(t, b.Confirm(daysBefore(10)))
	require.NoError(t, b.Complete(checkIn.AddDate(0, 0, 3)))
	_, err := b.Cancel(CancelParams{Actor: ActorGuest, Now: checkIn.AddDate(0, 0, 4)})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestTransitions(t *testing.T) {
	b := newBooking(t, listings.PolicyStrict)
	assert.ErrorIs(t, b.Complete(daysBefore(1)), ErrInvalidTransition)
	require.NoError(t, b.Confirm(daysBefore(20)))
	assert.ErrorIs(t, b.Expire(daysBefore(19)), ErrInvalidTransition)
	assert.ErrorIs(t, b.Confirm(daysBefore(19)), ErrInvalidTransition)

	pending := newBooking(t, listings.PolicyStrict)
	require.NoError(t, pending.Expire(daysBefore(15)))
	assert.True(t, pending.Status.Terminal())
	assert.ErrorIs(t, pending.Confirm(daysBefore(14)), ErrBookingExpired)

	names := make([]string, 0)
	for _, e := range pending.PendingEvents() {
		names = append(names, e.EventName())
	}
	assert.Equal(t, []string{EventRequested, EventExpired}, names)
}

func TestActorFor(t *testing.T) {
	b := newBooking(t, listings.PolicyFlexible)
	actor, err := b.ActorFor("guest-1")
	require.NoError(t, err)
	assert.Equal(t, ActorGuest, actor)

	actor, err = b.ActorFor("host-1")
	require.NoError(t, err)
	assert.Equal(t, ActorHost, actor)

	actor, err = b.ActorFor(SystemActorID)
	require.NoError(t, err)
	assert.Equal(t, ActorSystem, actor)

	_, err = b.ActorFor("stranger")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelledEventNamesCounterparty(t *testing.T) {
	b := newBooking(t, listings.PolicyFlexible)
	b.ClearEvents()
	_, err := b.Cancel(CancelParams{Actor: ActorGuest, Now: daysBefore(3)})
	require.NoError(t, err)
	evts := b.Drain()
	require.Len(t, evts, 1)
	cancelled, ok := evts[0].(BookingCancelled)
	require.True(t, ok)
	assert.Equal(t, "host-1", cancelled.Counterparty())
}

func TestNewBookingValidation(t *testing.T) {
	dr, _ := daterange.NewDates(checkIn, checkIn.AddDate(0, 0, 1))
	_, err := NewBooking(CreateParams{GuestID: "g", Range: dr, Guests: 0, Policy: listings.PolicyFlexible})
	assert.ErrorIs(t, err, ErrInvalidGuests)
	_, err = NewBooking(CreateParams{GuestID: "g", Range: daterange.DateRange{CheckIn: checkIn, CheckOut: checkIn}, Guests: 1, Policy: listings.PolicyFlexible})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.ErrorIs(t, ValidateCheckIn(dr, checkIn.AddDate(0, 0, 1)), ErrCheckInInPast)
	assert.NoError(t, ValidateCheckIn(dr, checkIn.Add(20*time.Hour)))
}
