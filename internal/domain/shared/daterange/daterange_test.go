package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNightsRoundsUp(t *testing.T) {
	dr, err := New(date(2026, 7, 1), date(2026, 7, 4).Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, dr.Nights())

	dr, err = NewDates(date(2026, 7, 1), date(2026, 7, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, dr.Nights())
	assert.Equal(t, []time.Time{date(2026, 7, 1), date(2026, 7, 2), date(2026, 7, 3)}, dr.Dates())
	assert.Equal(t, date(2026, 7, 3), dr.LastNight())
}

func TestNewRejectsEmptyAndInvertedRanges(t *testing.T) {
	_, err := New(date(2026, 7, 4), date(2026, 7, 4))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(date(2026, 7, 5), date(2026, 7, 4))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(time.Time{}, date(2026, 7, 4))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestCeilDays(t *testing.T) {
	assert.Equal(t, 0, CeilDays(0))
	assert.Equal(t, 1, CeilDays(time.Minute))
	assert.Equal(t, 3, CeilDays(2*24*time.Hour+14*time.Hour))
	assert.Equal(t, -2, CeilDays(-2*24*time.Hour-3*time.Hour))
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	now := time.Date(2026, 7, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(now, date(2026, 7, 2)))
	assert.Equal(t, 0, DaysBetween(now, date(2026, 7, 1)))
	assert.Equal(t, -1, DaysBetween(now, date(2026, 6, 30)))
}

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate(" 2026-02-28 ")
	require.NoError(t, err)
	assert.Equal(t, date(2026, 2, 28), d)
	assert.Equal(t, "2026-02-28", FormatDate(d))

	_, err = ParseDate("28/02/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestOverlapsAndWithin(t *testing.T) {
	a, _ := NewDates(date(2026, 7, 1), date(2026, 7, 5))
	b, _ := NewDates(date(2026, 7, 5), date(2026, 7, 8))
	c, _ := NewDates(date(2026, 7, 4), date(2026, 7, 6))
	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(c))
	assert.True(t, Within(date(2026, 7, 5), date(2026, 7, 1), date(2026, 7, 5)))
	assert.False(t, Within(date(2026, 7, 6), date(2026, 7, 1), date(2026, 7, 5)))
}
