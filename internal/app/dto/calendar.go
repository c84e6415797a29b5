package dto

import (
	"staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type CalendarDay struct {
	ListingID       string `json:"listing_id"`
	Date            string `json:"date"`
	IsAvailable     bool   `json:"is_available"`
	BasePrice       string `json:"base_price"`
	MinStay         int    `json:"min_stay"`
	MaxStay         int    `json:"max_stay"`
	CheckInAllowed  bool   `json:"check_in_allowed"`
	CheckOutAllowed bool   `json:"check_out_allowed"`
}

type Calendar struct {
	ListingID string        `json:"listing_id"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Days      []CalendarDay `json:"days"`
}

type SeedResult struct {
	ListingID   string `json:"listing_id"`
	DaysCreated int    `json:"days_created"`
}

func MapCalendarDay(d calendar.Day) CalendarDay {
	return CalendarDay{
		ListingID:       string(d.ListingID),
		Date:            daterange.FormatDate(d.Date),
		IsAvailable:     d.Available,
		BasePrice:       money.String(d.BasePrice),
		MinStay:         d.MinStay,
		MaxStay:         d.MaxStay,
		CheckInAllowed:  d.CheckInAllowed,
		CheckOutAllowed: d.CheckOutAllowed,
	}
}

func MapCalendarDays(days []calendar.Day) []CalendarDay {
	out := make([]CalendarDay, 0, len(days))
	for _, d := range days {
		out = append(out, MapCalendarDay(d))
	}
	return out
}

type CalendarExport struct {
	ListingID    string `json:"listing_id"`
	Start        string `json:"start"`
	End          string `json:"end"`
	URL          string `json:"url"`
	BlockedSpans int    `json:"blocked_spans"`
}
