package dto

import (
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
)

type PriceQuote struct {
	ListingID  string `json:"listing_id"`
	Date       string `json:"date"`
	StayLength int    `json:"stay_length"`
	BasePrice  string `json:"base_price"`
	FinalPrice string `json:"final_price"`
}

type PriceRule struct {
	ID              string            `json:"id"`
	ListingID       string            `json:"listing_id"`
	Type            string            `json:"type"`
	StartDate       string            `json:"start_date"`
	EndDate         string            `json:"end_date"`
	Condition       pricing.Condition `json:"condition"`
	AdjustmentType  string            `json:"adjustment_type"`
	AdjustmentValue string            `json:"adjustment_value"`
	MinStay         int               `json:"min_stay,omitempty"`
	MaxStay         int               `json:"max_stay,omitempty"`
	Priority        int               `json:"priority"`
	IsActive        bool              `json:"is_active"`
}

func MapPriceRule(r pricing.Rule) PriceRule {
	return PriceRule{
		ID:              r.ID,
		ListingID:       string(r.ListingID),
		Type:            string(r.Type),
		StartDate:       daterange.FormatDate(r.StartDate),
		EndDate:         daterange.FormatDate(r.EndDate),
		Condition:       r.Condition,
		AdjustmentType:  string(r.AdjustmentType),
		AdjustmentValue: r.AdjustmentValue.String(),
		MinStay:         r.MinStay,
		MaxStay:         r.MaxStay,
		Priority:        r.Priority,
		IsActive:        r.Active,
	}
}
