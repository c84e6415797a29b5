package policies

import "context"

// Notification templates sent by the engine.
const (
	TemplateBookingCancelled = "booking_cancelled"
)

// Notifier delivers a templated message to a user. Calls happen after the
// originating transaction has committed.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}

// CancellationNotice is the payload of TemplateBookingCancelled.
type CancellationNotice struct {
	BookingID       string `json:"booking_id"`
	ListingID       string `json:"listing_id"`
	CancelledBy     string `json:"cancelled_by"`
	Reason          string `json:"reason,omitempty"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	RefundAmount    string `json:"refund_amount"`
	CancellationFee string `json:"cancellation_fee"`
}
