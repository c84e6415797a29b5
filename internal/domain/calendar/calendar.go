// Package calendar models the per-night availability, price and stay
// constraints of a listing. A date without a stored row inherits the
// listing defaults.
package calendar

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
)

// SeedDays is the number of rows generated when a listing is published.
const SeedDays = 365

// MaxSpanDays caps the number of nights a single calendar read or export covers.
const MaxSpanDays = 2 * SeedDays

var (
	ErrDayNotFound       = apperr.NotFound("calendar: day not found")
	ErrStayBounds        = apperr.Validation("calendar: min stay must be <= max stay")
	ErrNegativeStay      = apperr.Validation("calendar: stay bounds cannot be negative")
	ErrNegativePrice     = apperr.Validation("calendar: base price cannot be negative")
	ErrEntryOutsideRange = apperr.Validation("calendar: entry date outside replaced range")
	ErrForeignEntry      = apperr.Validation("calendar: entry belongs to another listing")
	ErrDuplicateEntry    = apperr.Validation("calendar: duplicate entry date")
	ErrInvalidSpan       = apperr.Validation("calendar: range end must not precede start")
	ErrSpanTooLong       = apperr.Validation("calendar: span too long")
)

// Day is one night of a listing calendar.
type Day struct {
	ListingID       listings.ListingID
	Date            time.Time
	Available       bool
	BasePrice       decimal.Decimal
	MinStay         int // 0 means no minimum
	MaxStay         int // 0 means no maximum
	CheckInAllowed  bool
	CheckOutAllowed bool
}

func (d Day) Validate() error {
	if d.MinStay < 0 || d.MaxStay < 0 {
		return ErrNegativeStay
	}
	if d.MinStay > 0 && d.MaxStay > 0 && d.MinStay > d.MaxStay {
		return ErrStayBounds
	}
	if d.BasePrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// Repository persists calendar rows. Date spans are inclusive on both ends.
// Implementations resolve the active unit of work from ctx.
type Repository interface {
	// ReplaceRange deletes every row in [from, to] and inserts days.
	ReplaceRange(ctx context.Context, id listings.ListingID, from, to time.Time, days []Day) error
	FetchRange(ctx context.Context, id listings.ListingID, from, to time.Time) ([]Day, error)
	FetchDay(ctx context.Context, id listings.ListingID, date time.Time) (Day, error)
	// InsertMissing inserts rows whose (listing, date) is absent and reports how many were created.
	InsertMissing(ctx context.Context, days []Day) (int, error)
	// LockRange takes write locks on [from, to] for the rest of the transaction and returns the stored rows.
	LockRange(ctx context.Context, id listings.ListingID, from, to time.Time) ([]Day, error)
	Upsert(ctx context.Context, days []Day) error
}

// DefaultDay derives the implicit row for date from listing defaults.
func DefaultDay(l *listings.Listing, date time.Time) Day {
	date = daterange.Day(date)
	return Day{
		ListingID:       l.ID,
		Date:            date,
		Available:       l.DefaultAvailable,
		BasePrice:       l.PricePerNight,
		MinStay:         l.MinimumNights,
		MaxStay:         l.MaximumNights,
		CheckInAllowed:  l.CheckInDays.Allows(date.Weekday()),
		CheckOutAllowed: l.CheckOutDays.Allows(date.Weekday()),
	}
}

// GenerateYear builds SeedDays default rows starting on from's date.
func GenerateYear(l *listings.Listing, from time.Time) []Day {
	start := daterange.Day(from)
	out := make([]Day, 0, SeedDays)
	for i := 0; i < SeedDays; i++ {
		out = append(out, DefaultDay(l, start.AddDate(0, 0, i)))
	}
	return out
}

// CheckSpan normalises [from, to] to dates and rejects inverted spans and
// spans of more than MaxSpanDays nights, both ends counted.
func CheckSpan(from, to time.Time) (time.Time, time.Time, error) {
	from, to = daterange.Day(from), daterange.Day(to)
	if to.Before(from) {
		return from, to, ErrInvalidSpan
	}
	if daterange.DaysBetween(from, to)+1 > MaxSpanDays {
		return from, to, ErrSpanTooLong
	}
	return from, to, nil
}

// ValidateEntries checks a replacement batch and normalises its dates.
func ValidateEntries(id listings.ListingID, from, to time.Time, entries []Day) ([]Day, error) {
	from, to = daterange.Day(from), daterange.Day(to)
	if to.Before(from) {
		return nil, ErrInvalidSpan
	}
	seen := make(map[time.Time]struct{}, len(entries))
	out := make([]Day, 0, len(entries))
	for _, e := range entries {
		if e.ListingID == "" {
			e.ListingID = id
		}
		if e.ListingID != id {
			return nil, ErrForeignEntry
		}
		e.Date = daterange.Day(e.Date)
		if !daterange.Within(e.Date, from, to) {
			return nil, ErrEntryOutsideRange
		}
		if _, dup := seen[e.Date]; dup {
			return nil, ErrDuplicateEntry
		}
		seen[e.Date] = struct{}{}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		e.BasePrice = e.BasePrice.Round(2)
		out = append(out, e)
	}
	SortByDate(out)
	return out, nil
}

// Resolve returns one row per date in dates, falling back to listing defaults.
func Resolve(l *listings.Listing, stored []Day, dates []time.Time) []Day {
	byDate := make(map[time.Time]Day, len(stored))
	for _, d := range stored {
		byDate[daterange.Day(d.Date)] = d
	}
	out := make([]Day, 0, len(dates))
	for _, date := range dates {
		date = daterange.Day(date)
		if d, ok := byDate[date]; ok {
			out = append(out, d)
			continue
		}
		out = append(out, DefaultDay(l, date))
	}
	return out
}

// SetAvailability resolves every night of r and flips its availability.
func SetAvailability(l *listings.Listing, stored []Day, r daterange.DateRange, available bool) []Day {
	days := Resolve(l, stored, r.Dates())
	for i := range days {
		days[i].Available = available
	}
	return days
}

func SortByDate(days []Day) {
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
}
