// Package pricing supplies the external signals consulted by holiday,
// special_event and demand price rules.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
)

// SignalDate marks one date. An empty ListingID applies to every listing.
type SignalDate struct {
	ListingID string `json:"listing_id,omitempty"`
	Date      string `json:"date"`
}

// SignalSnapshot is the wire format of the signal feed.
type SignalSnapshot struct {
	Holidays []SignalDate `json:"holidays"`
	Events   []SignalDate `json:"events"`
	Demand   []SignalDate `json:"demand"`
}

type signalKey struct {
	listing string
	date    time.Time
}

type signalSet map[signalKey]struct{}

func (s signalSet) has(listingID string, date time.Time) bool {
	if _, ok := s[signalKey{date: date}]; ok {
		return true
	}
	_, ok := s[signalKey{listing: listingID, date: date}]
	return ok
}

// SignalCalendar is an in-memory SignalSource replaced wholesale on every
// refresh. The zero value matches nothing.
type SignalCalendar struct {
	mu       sync.RWMutex
	holidays signalSet
	events   signalSet
	demand   signalSet
}

func (c *SignalCalendar) Matches(rule domainpricing.Rule, in domainpricing.Input) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	date := daterange.Day(in.Date)
	listingID := string(in.ListingID)
	switch rule.Type {
	case domainpricing.RuleHoliday:
		return c.holidays.has(listingID, date)
	case domainpricing.RuleSpecialEvent:
		return c.events.has(listingID, date)
	case domainpricing.RuleDemand:
		return c.demand.has(listingID, date)
	}
	return false
}

func (c *SignalCalendar) Replace(snap SignalSnapshot) error {
	holidays, err := buildSet(snap.Holidays)
	if err != nil {
		return fmt.Errorf("signals: holidays: %w", err)
	}
	evts, err := buildSet(snap.Events)
	if err != nil {
		return fmt.Errorf("signals: events: %w", err)
	}
	demand, err := buildSet(snap.Demand)
	if err != nil {
		return fmt.Errorf("signals: demand: %w", err)
	}
	c.mu.Lock()
	c.holidays, c.events, c.demand = holidays, evts, demand
	c.mu.Unlock()
	return nil
}

// LoadFile replaces the calendar from a JSON snapshot on disk.
func (c *SignalCalendar) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snap SignalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("signals: decode %s: %w", path, err)
	}
	return c.Replace(snap)
}

func buildSet(dates []SignalDate) (signalSet, error) {
	out := make(signalSet, len(dates))
	for _, d := range dates {
		date, err := daterange.ParseDate(d.Date)
		if err != nil {
			return nil, err
		}
		out[signalKey{listing: strings.TrimSpace(d.ListingID), date: date}] = struct{}{}
	}
	return out, nil
}

// FeedClient polls a signal feed over HTTP and refreshes Calendar.
type FeedClient struct {
	Endpoint string
	Client   *http.Client
	Calendar *SignalCalendar
	Logger   *slog.Logger
}

func (f *FeedClient) Refresh(ctx context.Context) error {
	if f == nil || f.Client == nil {
		return errors.New("signals: http client not configured")
	}
	if f.Endpoint == "" {
		return errors.New("signals: endpoint not configured")
	}
	if f.Calendar == nil {
		return errors.New("signals: calendar not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			err = fmt.Errorf("signals: feed timeout (%s)", f.Endpoint)
		} else {
			err = fmt.Errorf("signals: feed unavailable (%s)", f.Endpoint)
		}
		f.logError("signal feed request failed", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("signals: feed returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		f.logError("signal feed returned error", err)
		return err
	}

	var snap SignalSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		f.logError("signal feed decode failed", err)
		return err
	}
	return f.Calendar.Replace(snap)
}

// Run refreshes every interval until ctx is cancelled. Failed refreshes keep
// the previous snapshot.
func (f *FeedClient) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	_ = f.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = f.Refresh(ctx)
		}
	}
}

func (f *FeedClient) logError(msg string, err error) {
	if f.Logger != nil {
		f.Logger.Error(msg, "endpoint", f.Endpoint, "error", err)
	}
}

var _ domainpricing.SignalSource = (*SignalCalendar)(nil)
