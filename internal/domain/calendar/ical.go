package calendar

import (
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

const icalDate = "20060102"

// BlockedSpan is a run of consecutive unavailable nights; End is the first
// night after the run.
type BlockedSpan struct {
	Start time.Time
	End   time.Time
}

// BlockedSpans merges the unavailable nights of days, which must be sorted
// by date, into spans.
func BlockedSpans(days []Day) []BlockedSpan {
	var out []BlockedSpan
	for _, d := range days {
		date := daterange.Day(d.Date)
		if d.Available {
			continue
		}
		if n := len(out); n > 0 && out[n-1].End.Equal(date) {
			out[n-1].End = date.AddDate(0, 0, 1)
			continue
		}
		out = append(out, BlockedSpan{Start: date, End: date.AddDate(0, 0, 1)})
	}
	return out
}

// RenderICal renders blocked spans as an RFC 5545 calendar with all-day
// events, the format channel managers import.
func RenderICal(id listings.ListingID, title string, spans []BlockedSpan, now time.Time) []byte {
	var b strings.Builder
	line := func(format string, args ...any) {
		b.WriteString(fmt.Sprintf(format, args...))
		b.WriteString("\r\n")
	}
	stamp := now.UTC().Format("20060102T150405Z")
	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//staybook//calendar export//EN")
	line("CALSCALE:GREGORIAN")
	line("X-WR-CALNAME:%s", icalEscape(title))
	for _, s := range spans {
		line("BEGIN:VEVENT")
		line("UID:%s-%s@staybook", id, s.Start.Format(icalDate))
		line("DTSTAMP:%s", stamp)
		line("DTSTART;VALUE=DATE:%s", s.Start.Format(icalDate))
		line("DTEND;VALUE=DATE:%s", s.End.Format(icalDate))
		line("SUMMARY:Not available")
		line("END:VEVENT")
	}
	line("END:VCALENDAR")
	return []byte(b.String())
}

func icalEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)
	return r.Replace(s)
}
