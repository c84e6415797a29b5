package dto

import (
	"time"

	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

type Listing struct {
	ID                  string    `json:"id"`
	HostID              string    `json:"host_id"`
	Title               string    `json:"title"`
	State               string    `json:"state"`
	PricePerNight       string    `json:"price_per_night"`
	MinimumNights       int       `json:"minimum_nights"`
	MaximumNights       int       `json:"maximum_nights"`
	MaxGuests           int       `json:"max_guests"`
	CancellationPolicy  string    `json:"cancellation_policy"`
	DefaultAvailability bool      `json:"default_availability"`
	CheckInDays         []string  `json:"check_in_days"`
	CheckOutDays        []string  `json:"check_out_days"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func MapListing(l *domainlistings.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	return Listing{
		ID:                  string(l.ID),
		HostID:              string(l.Host),
		Title:               l.Title,
		State:               string(l.State),
		PricePerNight:       money.String(l.PricePerNight),
		MinimumNights:       l.MinimumNights,
		MaximumNights:       l.MaximumNights,
		MaxGuests:           l.MaxGuests,
		CancellationPolicy:  string(l.CancellationPolicy),
		DefaultAvailability: l.DefaultAvailable,
		CheckInDays:         l.CheckInDays.Names(),
		CheckOutDays:        l.CheckOutDays.Names(),
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}
