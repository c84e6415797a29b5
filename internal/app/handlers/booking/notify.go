package booking

import (
	"context"
	"encoding/json"
	"log/slog"

	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

// CancellationNotifier tells the other party about a committed cancellation.
// Delivery is fire-and-forget: failures are logged and never bubble up.
type CancellationNotifier struct {
	Notifier policies.Notifier
	Logger   *slog.Logger
}

func (n *CancellationNotifier) Subscribe(d *outbox.Dispatcher) {
	d.Subscribe(domainbooking.EventCancelled, n.Handle)
}

func (n *CancellationNotifier) Handle(ctx context.Context, rec outbox.EventRecord) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var evt domainbooking.BookingCancelled
	if err := json.Unmarshal(rec.Payload, &evt); err != nil {
		logger.WarnContext(ctx, "undecodable cancellation event", "event_id", rec.ID, "error", err)
		return nil
	}
	to := evt.Counterparty()
	if to == "" || to == domainbooking.SystemActorID {
		return nil
	}
	notice := policies.CancellationNotice{
		BookingID:       string(evt.BookingID),
		ListingID:       string(evt.ListingID),
		CancelledBy:     string(evt.CancelledBy),
		Reason:          evt.Reason,
		CheckIn:         daterange.FormatDate(evt.CheckIn),
		CheckOut:        daterange.FormatDate(evt.CheckOut),
		RefundAmount:    money.String(evt.RefundAmount),
		CancellationFee: money.String(evt.CancellationFee),
	}
	if err := n.Notifier.Send(ctx, to, policies.TemplateBookingCancelled, notice); err != nil {
		logger.WarnContext(ctx, "cancellation notification failed", "booking_id", evt.BookingID, "to", to, "error", err)
	}
	return nil
}
