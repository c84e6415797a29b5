// Package availability decides whether a stay can be booked and prices every
// night of it. Evaluation is a pure read over already loaded rows.
package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/calendar"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var (
	ErrInvalidGuests = apperr.Validation("availability: guests must be at least 1")
	ErrInvalidRange  = apperr.Validation("availability: end date must be after start date")
	ErrTooManyGuests = apperr.PolicyViolation("availability: guests exceed listing capacity")
	ErrStayTooShort  = apperr.PolicyViolation("availability: stay shorter than listing minimum nights")
	ErrStayTooLong   = apperr.PolicyViolation("availability: stay longer than listing maximum nights")
)

// Reason explains why a single date blocks the stay.
type Reason string

const (
	ReasonUnavailable        Reason = "unavailable"
	ReasonMinStay            Reason = "min_stay"
	ReasonMaxStay            Reason = "max_stay"
	ReasonCheckInNotAllowed  Reason = "check_in_not_allowed"
	ReasonCheckOutNotAllowed Reason = "check_out_not_allowed"
)

type Failure struct {
	Date   time.Time
	Reason Reason
}

type DayQuote struct {
	Date            time.Time
	Available       bool
	BasePrice       decimal.Decimal
	FinalPrice      decimal.Decimal
	MinStay         int
	MaxStay         int
	CheckInAllowed  bool
	CheckOutAllowed bool
}

type Request struct {
	Range   daterange.DateRange
	Guests  int
	Now     time.Time
	Signals pricing.SignalSource
}

type Result struct {
	ListingID    listings.ListingID
	CheckIn      time.Time
	CheckOut     time.Time
	Guests       int
	Nights       int
	Bookable     bool
	Days         []DayQuote
	FailingDates []time.Time
	Failures     []Failure
	TotalPrice   decimal.Decimal
}

// Window is the inclusive span of calendar rows Evaluate needs: every night
// plus the checkout date.
func Window(r daterange.DateRange) (time.Time, time.Time) {
	return daterange.Day(r.CheckIn), daterange.Day(r.CheckIn).AddDate(0, 0, r.Nights())
}

// CheckStay rejects requests that can never be bookable regardless of
// calendar state.
func CheckStay(l *listings.Listing, r daterange.DateRange, guests int) error {
	if err := r.Validate(); err != nil {
		return ErrInvalidRange
	}
	if guests < 1 {
		return ErrInvalidGuests
	}
	if guests > l.MaxGuests {
		return ErrTooManyGuests
	}
	nights := r.Nights()
	if nights < l.MinimumNights {
		return ErrStayTooShort
	}
	if l.MaximumNights > 0 && nights > l.MaximumNights {
		return ErrStayTooLong
	}
	return nil
}

// Evaluate resolves every night of req.Range from stored (falling back to
// listing defaults), checks it against the stay and prices it with rules.
func Evaluate(l *listings.Listing, stored []calendar.Day, rules []pricing.Rule, req Request) (Result, error) {
	if err := CheckStay(l, req.Range, req.Guests); err != nil {
		return Result{}, err
	}
	nights := req.Range.Nights()
	dates := req.Range.Dates()
	checkOut := daterange.Day(req.Range.CheckIn).AddDate(0, 0, nights)
	resolved := calendar.Resolve(l, stored, append(dates, checkOut))
	nightRows, checkOutRow := resolved[:nights], resolved[nights]

	res := Result{
		ListingID: l.ID,
		CheckIn:   dates[0],
		CheckOut:  checkOut,
		Guests:    req.Guests,
		Nights:    nights,
		Days:      make([]DayQuote, 0, nights),
	}
	fail := func(date time.Time, reason Reason) {
		res.Failures = append(res.Failures, Failure{Date: date, Reason: reason})
		if n := len(res.FailingDates); n == 0 || !res.FailingDates[n-1].Equal(date) {
			res.FailingDates = append(res.FailingDates, date)
		}
	}

	prices := make([]decimal.Decimal, 0, nights)
	for i, day := range nightRows {
		if !day.Available {
			fail(day.Date, ReasonUnavailable)
		}
		if day.MinStay > 0 && nights < day.MinStay {
			fail(day.Date, ReasonMinStay)
		}
		if day.MaxStay > 0 && nights > day.MaxStay {
			fail(day.Date, ReasonMaxStay)
		}
		if i == 0 && !day.CheckInAllowed {
			fail(day.Date, ReasonCheckInNotAllowed)
		}
		final, err := pricing.Apply(rules, pricing.Input{
			ListingID:  l.ID,
			Date:       day.Date,
			StayStart:  res.CheckIn,
			StayLength: nights,
			BasePrice:  day.BasePrice,
			Now:        req.Now,
			Signals:    req.Signals,
		})
		if err != nil {
			return Result{}, err
		}
		prices = append(prices, final)
		res.Days = append(res.Days, DayQuote{
			Date:            day.Date,
			Available:       day.Available,
			BasePrice:       day.BasePrice,
			FinalPrice:      final,
			MinStay:         day.MinStay,
			MaxStay:         day.MaxStay,
			CheckInAllowed:  day.CheckInAllowed,
			CheckOutAllowed: day.CheckOutAllowed,
		})
	}
	if !checkOutRow.CheckOutAllowed {
		fail(checkOutRow.Date, ReasonCheckOutNotAllowed)
	}
	res.TotalPrice = money.Sum(prices...)
	res.Bookable = len(res.Failures) == 0
	return res, nil
}

// Conflict converts a non-bookable result into a conflict error naming the
// failing dates. It returns nil for bookable results.
func (r Result) Conflict() error {
	if r.Bookable {
		return nil
	}
	parts := make([]string, 0, len(r.FailingDates))
	for _, d := range r.FailingDates {
		parts = append(parts, daterange.FormatDate(d))
	}
	return apperr.Conflict(fmt.Sprintf("availability: range not bookable on %s", strings.Join(parts, ", ")))
}
