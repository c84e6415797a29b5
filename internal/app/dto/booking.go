package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type Booking struct {
	ID                 string    `json:"id"`
	ListingID          string    `json:"listing_id"`
	GuestID            string    `json:"guest_id"`
	HostID             string    `json:"host_id"`
	CheckIn            string    `json:"check_in"`
	CheckOut           string    `json:"check_out"`
	NumberOfGuests     int       `json:"number_of_guests"`
	TotalPrice         string    `json:"total_price"`
	Status             string    `json:"status"`
	PaymentStatus      string    `json:"payment_status"`
	CancellationPolicy string    `json:"cancellation_policy"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	CancelledBy        string    `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Cancellation struct {
	ID              string                       `json:"id"`
	BookingID       string                       `json:"booking_id"`
	CancelledBy     string                       `json:"cancelled_by"`
	Reason          string                       `json:"reason,omitempty"`
	RefundAmount    string                       `json:"refund_amount"`
	CancellationFee string                       `json:"cancellation_fee"`
	Policy          domainbooking.PolicySnapshot `json:"policy"`
	Status          string                       `json:"status"`
	CreatedAt       time.Time                    `json:"created_at"`
}

type CancelResult struct {
	Booking      Booking      `json:"booking"`
	Cancellation Cancellation `json:"cancellation"`
	RefundAmount string       `json:"refund_amount"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	return Booking{
		ID:                 string(b.ID),
		ListingID:          string(b.ListingID),
		GuestID:            b.GuestID,
		HostID:             b.HostID,
		CheckIn:            daterange.FormatDate(b.Range.CheckIn),
		CheckOut:           daterange.FormatDate(b.Range.CheckOut),
		NumberOfGuests:     b.Guests,
		TotalPrice:         money.String(b.TotalPrice),
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		CancellationPolicy: string(b.Policy),
		CancellationReason: b.CancellationReason,
		CancelledBy:        string(b.CancelledBy),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func MapCancellation(c *domainbooking.Cancellation) Cancellation {
	if c == nil {
		return Cancellation{}
	}
	return Cancellation{
		ID:              c.ID,
		BookingID:       string(c.BookingID),
		CancelledBy:     string(c.CancelledBy),
		Reason:          c.Reason,
		RefundAmount:    money.String(c.RefundAmount),
		CancellationFee: money.String(c.CancellationFee),
		Policy:          c.Policy,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt,
	}
}
