package dto

import (
	"staybook/internal/domain/availability"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type AvailabilityDay struct {
	Date            string `json:"date"`
	IsAvailable     bool   `json:"is_available"`
	BasePrice       string `json:"base_price"`
	FinalPrice      string `json:"final_price"`
	MinStay         int    `json:"min_stay"`
	MaxStay         int    `json:"max_stay"`
	CheckInAllowed  bool   `json:"check_in_allowed"`
	CheckOutAllowed bool   `json:"check_out_allowed"`
}

type AvailabilityFailure struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type Availability struct {
	ListingID    string                `json:"listing_id"`
	Start        string                `json:"start"`
	End          string                `json:"end"`
	Guests       int                   `json:"guests"`
	Nights       int                   `json:"nights"`
	Bookable     bool                  `json:"bookable"`
	Days         []AvailabilityDay     `json:"days"`
	FailingDates []string              `json:"failing_dates"`
	Failures     []AvailabilityFailure `json:"failures"`
	TotalPrice   string                `json:"total_price"`
}

func MapAvailability(res availability.Result) Availability {
	out := Availability{
		ListingID:    string(res.ListingID),
		Start:        daterange.FormatDate(res.CheckIn),
		End:          daterange.FormatDate(res.CheckOut),
		Guests:       res.Guests,
		Nights:       res.Nights,
		Bookable:     res.Bookable,
		Days:         make([]AvailabilityDay, 0, len(res.Days)),
		FailingDates: make([]string, 0, len(res.FailingDates)),
		Failures:     make([]AvailabilityFailure, 0, len(res.Failures)),
		TotalPrice:   money.String(res.TotalPrice),
	}
	for _, d := range res.Days {
		out.Days = append(out.Days, AvailabilityDay{
			Date:            daterange.FormatDate(d.Date),
			IsAvailable:     d.Available,
			BasePrice:       money.String(d.BasePrice),
			FinalPrice:      money.String(d.FinalPrice),
			MinStay:         d.MinStay,
			MaxStay:         d.MaxStay,
			CheckInAllowed:  d.CheckInAllowed,
			CheckOutAllowed: d.CheckOutAllowed,
		})
	}
	for _, d := range res.FailingDates {
		out.FailingDates = append(out.FailingDates, daterange.FormatDate(d))
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, AvailabilityFailure{Date: daterange.FormatDate(f.Date), Reason: string(f.Reason)})
	}
	return out
}
