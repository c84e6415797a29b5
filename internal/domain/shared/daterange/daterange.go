package daterange

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 date-only wire format.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
	ErrInvalidDate  = errors.New("daterange: date must be formatted as YYYY-MM-DD")
)

// DateRange represents a half-open interval of nights [checkIn, checkOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// NewDates builds a range from calendar dates, dropping any time-of-day.
func NewDates(checkIn, checkOut time.Time) (DateRange, error) {
	return New(Day(checkIn), Day(checkOut))
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Nights is ceil((checkOut-checkIn)/1day).
func (dr DateRange) Nights() int {
	return CeilDays(dr.CheckOut.Sub(dr.CheckIn))
}

// Dates lists the start date of every night in the range.
func (dr DateRange) Dates() []time.Time {
	start := Day(dr.CheckIn)
	n := dr.Nights()
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}

// LastNight is the date of the final night, i.e. the inclusive end of the range.
func (dr DateRange) LastNight() time.Time {
	return Day(dr.CheckIn).AddDate(0, 0, dr.Nights()-1)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(dr.CheckIn) || t.After(dr.CheckIn)) && t.Before(dr.CheckOut)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CeilDays rounds a duration up to whole days.
func CeilDays(d time.Duration) int {
	n := int(d / day)
	if d%day > 0 {
		n++
	}
	return n
}

// DaysBetween counts calendar days from a's date to b's date; negative when b is earlier.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / day)
}

// Within reports whether t's date lies in the inclusive span [from, to].
func Within(t, from, to time.Time) bool {
	d := Day(t)
	return !d.Before(Day(from)) && !d.After(Day(to))
}

func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.UTC(), nil
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
