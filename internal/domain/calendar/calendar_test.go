package calendar

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testListing() *listings.Listing {
	return &listings.Listing{
		ID:               "lst-1",
		Host:             "host-1",
		PricePerNight:    decimal.RequireFromString("100"),
		MinimumNights:    2,
		MaximumNights:    10,
		MaxGuests:        3,
		DefaultAvailable: true,
		CheckInDays:      listings.NewWeekdaySet(time.Friday, time.Saturday),
	}
}

func TestGenerateYear(t *testing.T) {
	l := testListing()
	days := GenerateYear(l, time.Date(2026, 1, 1, 15, 30, 0, 0, time.UTC))
	require.Len(t, days, SeedDays)
	assert.Equal(t, day(2026, 1, 1), days[0].Date)
	assert.Equal(t, day(2026, 12, 31), days[len(days)-1].Date)

	for _, d := range days {
		assert.Equal(t, l.ID, d.ListingID)
		assert.True(t, d.Available)
		assert.Equal(t, 2, d.MinStay)
		assert.Equal(t, 10, d.MaxStay)
		assert.True(t, d.BasePrice.Equal(l.PricePerNight))
		wantCheckIn := d.Date.Weekday() == time.Friday || d.Date.Weekday() == time.Saturday
		assert.Equal(t, wantCheckIn, d.CheckInAllowed, d.Date)
		assert.True(t, d.CheckOutAllowed)
	}
}

func TestValidateEntries(t *testing.T) {
	from, to := day(2026, 3, 1), day(2026, 3, 3)
	entries := []Day{
		{Date: day(2026, 3, 3), BasePrice: decimal.RequireFromString("90.555")},
		{Date: day(2026, 3, 1), BasePrice: decimal.RequireFromString("80")},
	}
	out, err := ValidateEntries("lst-1", from, to, entries)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, day(2026, 3, 1), out[0].Date)
	assert.Equal(t, listings.ListingID("lst-1"), out[0].ListingID)
	assert.Equal(t, "90.56", out[1].BasePrice.StringFixed(2))

	_, err = ValidateEntries("lst-1", from, to, []Day{{Date: day(2026, 3, 4)}})
	assert.ErrorIs(t, err, ErrEntryOutsideRange)

	_, err = ValidateEntries("lst-1", from, to, []Day{{Date: from}, {Date: from}})
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	_, err = ValidateEntries("lst-1", from, to, []Day{{ListingID: "other", Date: from}})
	assert.ErrorIs(t, err, ErrForeignEntry)

	_, err = ValidateEntries("lst-1", from, to, []Day{{Date: from, MinStay: 5, MaxStay: 2}})
	assert.ErrorIs(t, err, ErrStayBounds)

	_, err = ValidateEntries("lst-1", to, from, nil)
	assert.ErrorIs(t, err, ErrInvalidSpan)
}

func TestResolveFallsBackToDefaults(t *testing.T) {
	l := testListing()
	stored := []Day{{ListingID: l.ID, Date: day(2026, 3, 2), Available: false, BasePrice: decimal.NewFromInt(150)}}
	dr, err := daterange.NewDates(day(2026, 3, 1), day(2026, 3, 4))
	require.NoError(t, err)

	days := Resolve(l, stored, dr.Dates())
	require.Len(t, days, 3)
	assert.True(t, days[0].Available)
	assert.False(t, days[1].Available)
	assert.True(t, days[1].BasePrice.Equal(decimal.NewFromInt(150)))
	assert.True(t, days[2].BasePrice.Equal(l.PricePerNight))
}

func TestSetAvailabilityCoversEveryNight(t *testing.T) {
	l := testListing()
	dr, _ := daterange.NewDates(day(2026, 3, 1), day(2026, 3, 4))
	days := SetAvailability(l, nil, dr, false)
	require.Len(t, days, 3)
	for _, d := range days {
		assert.False(t, d.Available)
	}
}

func TestCheckSpanCountsBothEnds(t *testing.T) {
	from := day(2026, 5, 1)

	gotFrom, gotTo, err := CheckSpan(from.Add(15*time.Hour), from.AddDate(0, 0, MaxSpanDays-1))
	require.NoError(t, err)
	assert.Equal(t, from, gotFrom)
	assert.Equal(t, MaxSpanDays, daterange.DaysBetween(gotFrom, gotTo)+1)

	_, _, err = CheckSpan(from, from.AddDate(0, 0, MaxSpanDays))
	assert.ErrorIs(t, err, ErrSpanTooLong)

	// 2026-05-01..2028-05-01 crosses 29 Feb 2028.
	_, _, err = CheckSpan(from, from.AddDate(2, 0, 0))
	assert.ErrorIs(t, err, ErrSpanTooLong)

	_, _, err = CheckSpan(from, from.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidSpan)
}
