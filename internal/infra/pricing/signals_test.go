package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpricing "staybook/internal/domain/pricing"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSignalCalendarMatches(t *testing.T) {
	var cal SignalCalendar
	holiday := domainpricing.Rule{Type: domainpricing.RuleHoliday}
	event := domainpricing.Rule{Type: domainpricing.RuleSpecialEvent}
	demand := domainpricing.Rule{Type: domainpricing.RuleDemand}
	in := domainpricing.Input{ListingID: "lst-1", Date: day(2026, 12, 25)}

	assert.False(t, cal.Matches(holiday, in))

	require.NoError(t, cal.Replace(SignalSnapshot{
		Holidays: []SignalDate{{Date: "2026-12-25"}},
		Events:   []SignalDate{{ListingID: "lst-2", Date: "2026-12-25"}},
		Demand:   []SignalDate{{ListingID: "lst-1", Date: "2026-12-25"}},
	}))
	assert.True(t, cal.Matches(holiday, in))
	assert.False(t, cal.Matches(event, in))
	assert.True(t, cal.Matches(demand, in))
	assert.False(t, cal.Matches(domainpricing.Rule{Type: domainpricing.RuleWeekend}, in))

	in.Date = day(2026, 12, 26)
	assert.False(t, cal.Matches(holiday, in))
}

func TestSignalCalendarRejectsBadDate(t *testing.T) {
	var cal SignalCalendar
	require.NoError(t, cal.Replace(SignalSnapshot{Holidays: []SignalDate{{Date: "2026-01-01"}}}))

	err := cal.Replace(SignalSnapshot{Holidays: []SignalDate{{Date: "01/02/2026"}}})
	require.Error(t, err)
	assert.True(t, cal.Matches(domainpricing.Rule{Type: domainpricing.RuleHoliday}, domainpricing.Input{Date: day(2026, 1, 1)}))
}

func TestSignalCalendarLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"events":[{"date":"2026-07-04"}]}`), 0o600))

	var cal SignalCalendar
	require.NoError(t, cal.LoadFile(path))
	assert.True(t, cal.Matches(domainpricing.Rule{Type: domainpricing.RuleSpecialEvent}, domainpricing.Input{ListingID: "x", Date: day(2026, 7, 4)}))
}

func TestFeedClientRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"demand":[{"listing_id":"lst-1","date":"2026-08-08"}]}`))
	}))
	defer srv.Close()

	cal := &SignalCalendar{}
	feed := &FeedClient{Endpoint: srv.URL, Client: srv.Client(), Calendar: cal}
	require.NoError(t, feed.Refresh(context.Background()))
	assert.True(t, cal.Matches(domainpricing.Rule{Type: domainpricing.RuleDemand}, domainpricing.Input{ListingID: "lst-1", Date: day(2026, 8, 8)}))
}

func TestFeedClientErrorKeepsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	cal := &SignalCalendar{}
	require.NoError(t, cal.Replace(SignalSnapshot{Holidays: []SignalDate{{Date: "2026-01-01"}}}))
	feed := &FeedClient{Endpoint: srv.URL, Client: srv.Client(), Calendar: cal}
	err := feed.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.True(t, cal.Matches(domainpricing.Rule{Type: domainpricing.RuleHoliday}, domainpricing.Input{Date: day(2026, 1, 1)}))

	assert.Error(t, (&FeedClient{}).Refresh(context.Background()))
}
