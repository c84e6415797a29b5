package availability

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/calendar"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func listing() *listings.Listing {
	return &listings.Listing{
		ID:               "lst-1",
		Host:             "host-1",
		PricePerNight:    decimal.NewFromInt(100),
		MinimumNights:    2,
		MaximumNights:    7,
		MaxGuests:        4,
		DefaultAvailable: true,
	}
}

func stay(t *testing.T, from, to time.Time) daterange.DateRange {
	t.Helper()
	r, err := daterange.NewDates(from, to)
	require.NoError(t, err)
	return r
}

func TestEvaluateAllAvailableIsBookable(t *testing.T) {
	l := listing()
	stored := calendar.GenerateYear(l, day(6, 1))
	res, err := Evaluate(l, stored, nil, Request{Range: stay(t, day(6, 10), day(6, 13)), Guests: 2, Now: day(5, 1)})
	require.NoError(t, err)
	assert.True(t, res.Bookable)
	assert.Equal(t, 3, res.Nights)
	assert.Len(t, res.Days, 3)
	assert.Empty(t, res.FailingDates)
	assert.Equal(t, "300.00", res.TotalPrice.StringFixed(2))
	assert.NoError(t, res.Conflict())
}

func TestEvaluateMissingRowsUseDefaults(t *testing.T) {
	l := listing()
	res, err := Evaluate(l, nil, nil, Request{Range: stay(t, day(6, 10), day(6, 12)), Guests: 1, Now: day(5, 1)})
	require.NoError(t, err)
	assert.True(t, res.Bookable)

	l.DefaultAvailable = false
	res, err = Evaluate(l, nil, nil, Request{Range: stay(t, day(6, 10), day(6, 12)), Guests: 1, Now: day(5, 1)})
	require.NoError(t, err)
	assert.False(t, res.Bookable)
	assert.Equal(t, []time.Time{day(6, 10), day(6, 11)}, res.FailingDates)
}

func TestEvaluateReportsEveryFailingDate(t *testing.T) {
	l := listing()
	stored := calendar.GenerateYear(l, day(6, 1))
	stored[11].Available = false // 2026-06-12
	stored[13].Available = false // 2026-06-14

	res, err := Evaluate(l, stored, nil, Request{Range: stay(t, day(6, 10), day(6, 15)), Guests: 2, Now: day(5, 1)})
	require.NoError(t, err)
	assert.False(t, res.Bookable)
	assert.Equal(t, []time.Time{day(6, 12), day(6, 14)}, res.FailingDates)
	assert.Equal(t, []Failure{{Date: day(6, 12), Reason: ReasonUnavailable}, {Date: day(6, 14), Reason: ReasonUnavailable}}, res.Failures)

	err = res.Conflict()
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "2026-06-12, 2026-06-14")
}

func TestEvaluateDayStayConstraints(t *testing.T) {
	l := listing()
	stored := calendar.GenerateYear(l, day(6, 1))
	stored[9].MinStay = 4  // 2026-06-10
	stored[10].MaxStay = 2 // 2026-06-11

	res, err := Evaluate(l, stored, nil, Request{Range: stay(t, day(6, 10), day(6, 13)), Guests: 2, Now: day(5, 1)})
	require.NoError(t, err)
	assert.False(t, res.Bookable)
	assert.Equal(t, []Failure{{Date: day(6, 10), Reason: ReasonMinStay}, {Date: day(6, 11), Reason: ReasonMaxStay}}, res.Failures)
}

func TestEvaluateCheckInAndCheckOutDays(t *testing.T) {
	l := listing()
	l.CheckInDays = listings.NewWeekdaySet(time.Saturday)
	l.CheckOutDays = listings.NewWeekdaySet(time.Saturday)
	stored := calendar.GenerateYear(l, day(6, 1))

	// 2026-06-06 and 2026-06-13 are Saturdays.
	res, err := Evaluate(l, stored, nil, Request{Range: stay(t, day(6, 6), day(6, 13)), Guests: 2, Now: day(5, 1)})
	require.NoError(t, err)
	assert.True(t, res.Bookable)

	res, err = Evaluate(l, stored, nil, Request{Range: stay(t, day(6, 7), day(6, 10)), Guests: 2, Now: day(5, 1)})
	require.NoError(t, err)
	assert.Equal(t, []Failure{{Date: day(6, 7), Reason: ReasonCheckInNotAllowed}, {Date: day(6, 10), Reason: ReasonCheckOutNotAllowed}}, res.Failures)
}

func TestEvaluateRejectsPolicyViolations(t *testing.T) {
	l := listing()
	_, err := Evaluate(l, nil, nil, Request{Range: stay(t, day(6, 10), day(6, 11)), Guests: 2})
	assert.ErrorIs(t, err, ErrStayTooShort)
	assert.Equal(t, apperr.KindPolicyViolation, apperr.KindOf(err))

	_, err = Evaluate(l, nil, nil, Request{Range: stay(t, day(6, 10), day(6, 20)), Guests: 2})
	assert.ErrorIs(t, err, ErrStayTooLong)

	_, err = Evaluate(l, nil, nil, Request{Range: stay(t, day(6, 10), day(6, 12)), Guests: 5})
	assert.ErrorIs(t, err, ErrTooManyGuests)

	_, err = Evaluate(l, nil, nil, Request{Range: stay(t, day(6, 10), day(6, 12)), Guests: 0})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestEvaluatePricesEachNight(t *testing.T) {
	l := listing()
	stored := calendar.GenerateYear(l, day(6, 1))
	stored[10].BasePrice = decimal.NewFromInt(200) // 2026-06-11
	rules := []pricing.Rule{{
		ID: "r1", ListingID: l.ID, Type: pricing.RuleLengthOfStay,
		StartDate: day(6, 11), EndDate: day(6, 11),
		Condition:      pricing.Condition{MinDays: pricing.IntPtr(3)},
		AdjustmentType: pricing.AdjustPercentage, AdjustmentValue: decimal.NewFromInt(-10),
		Active: true,
	}}
	res, err := Evaluate(l, stored, rules, Request{Range: stay(t, day(6, 10), day(6, 13)), Guests: 2, Now: day(5, 1)})
	require.NoError(t, err)
	require.Len(t, res.Days, 3)
	assert.Equal(t, "100.00", res.Days[0].FinalPrice.StringFixed(2))
	assert.Equal(t, "180.00", res.Days[1].FinalPrice.StringFixed(2))
	assert.Equal(t, "380.00", res.TotalPrice.StringFixed(2))
}

func TestWindowIncludesCheckoutDate(t *testing.T) {
	from, to := Window(stay(t, day(6, 10), day(6, 13)))
	assert.Equal(t, day(6, 10), from)
	assert.Equal(t, day(6, 13), to)
}
