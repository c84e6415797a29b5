package listings

import (
	"strings"
	"time"

	"staybook/internal/domain/shared/apperr"
)

var ErrUnknownWeekday = apperr.Validation("listings: unknown weekday")

// WeekdaySet is a bitmask of allowed weekdays. The zero value allows every day.
type WeekdaySet uint8

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

func (s WeekdaySet) Allows(d time.Weekday) bool {
	if s == 0 {
		return true
	}
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s != 0 && s.Allows(d) {
			out = append(out, d)
		}
	}
	return out
}

// ParseWeekdays accepts lowercase names or three-letter abbreviations.
func ParseWeekdays(names []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if name == full || name == full[:3] {
				s |= 1 << uint(d)
				found = true
				break
			}
		}
		if !found {
			return 0, ErrUnknownWeekday
		}
	}
	return s, nil
}

func (s WeekdaySet) Names() []string {
	days := s.Days()
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, strings.ToLower(d.String()))
	}
	return out
}
