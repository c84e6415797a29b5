package listings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() CreateListingParams {
	return CreateListingParams{
		ID:            "lst-1",
		Host:          "host-1",
		Title:         "Sea view loft",
		PricePerNight: decimal.RequireFromString("120"),
		MinimumNights: 2,
		MaximumNights: 14,
		MaxGuests:     4,
		Now:           time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewListingDefaults(t *testing.T) {
	l, err := NewListing(validParams())
	require.NoError(t, err)
	assert.Equal(t, ListingDraft, l.State)
	assert.Equal(t, PolicyFlexible, l.CancellationPolicy)
	require.Len(t, l.PendingEvents(), 1)
	assert.Equal(t, "listing.created", l.PendingEvents()[0].EventName())
}

func TestNewListingValidation(t *testing.T) {
	p := validParams()
	p.MinimumNights, p.MaximumNights = 10, 3
	_, err := NewListing(p)
	assert.ErrorIs(t, err, ErrNightsRange)

	p = validParams()
	p.MaxGuests = 0
	_, err = NewListing(p)
	assert.ErrorIs(t, err, ErrGuestsLimit)

	p = validParams()
	p.CancellationPolicy = "lenient"
	_, err = NewListing(p)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestPublishRecordsEventOnce(t *testing.T) {
	l, err := NewListing(validParams())
	require.NoError(t, err)
	l.ClearEvents()

	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, l.Publish(now))
	assert.Equal(t, ListingActive, l.State)
	evts := l.Drain()
	require.Len(t, evts, 1)
	assert.Equal(t, EventListingPublished, evts[0].EventName())
	assert.Equal(t, "lst-1", evts[0].AggregateID())

	assert.ErrorIs(t, l.Publish(now), ErrInvalidState)
}

func TestStayBounds(t *testing.T) {
	l, err := NewListing(validParams())
	require.NoError(t, err)
	assert.False(t, l.StayBoundsOK(1))
	assert.True(t, l.StayBoundsOK(2))
	assert.True(t, l.StayBoundsOK(14))
	assert.False(t, l.StayBoundsOK(15))

	l.MaximumNights = 0
	assert.True(t, l.StayBoundsOK(365))
}

func TestWeekdaySet(t *testing.T) {
	var all WeekdaySet
	assert.True(t, all.Allows(time.Wednesday))

	s, err := ParseWeekdays([]string{"sat", "Sunday"})
	require.NoError(t, err)
	assert.True(t, s.Allows(time.Saturday))
	assert.True(t, s.Allows(time.Sunday))
	assert.False(t, s.Allows(time.Monday))
	assert.Equal(t, []string{"sunday", "saturday"}, s.Names())

	_, err = ParseWeekdays([]string{"someday"})
	assert.ErrorIs(t, err, ErrUnknownWeekday)
}
