package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

type bookingRepo struct{ u *Unit }

const bookingColumns = `id, listing_id, guest_id, host_id, check_in, check_out, guests, total_price, status,
	payment_status, cancellation_policy, cancellation_reason, cancelled_by, version, created_at, updated_at`

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	row := r.u.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, string(id))
	var (
		b                       domainbooking.Booking
		bookingID, listingID    string
		checkIn, checkOut       string
		status, payment, policy string
		cancelledBy             string
		createdAt, updatedAt    int64
	)
	err := row.Scan(&bookingID, &listingID, &b.GuestID, &b.HostID, &checkIn, &checkOut, &b.Guests, &b.TotalPrice,
		&status, &payment, &policy, &b.CancellationReason, &cancelledBy, &b.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainbooking.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	in, err := daterange.ParseDate(checkIn)
	if err != nil {
		return nil, err
	}
	out, err := daterange.ParseDate(checkOut)
	if err != nil {
		return nil, err
	}
	b.ID = domainbooking.BookingID(bookingID)
	b.ListingID = domainlistings.ListingID(listingID)
	b.Range = daterange.DateRange{CheckIn: in, CheckOut: out}
	b.Status = domainbooking.Status(status)
	b.PaymentStatus = domainbooking.PaymentStatus(payment)
	b.Policy = domainlistings.CancellationPolicy(policy)
	b.CancelledBy = domainbooking.Actor(cancelledBy)
	b.CreatedAt = fromMillis(createdAt)
	b.UpdatedAt = fromMillis(updatedAt)
	return &b, nil
}

func (r bookingRepo) Save(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if b.Version == 0 {
		_, err := r.u.exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(b.ID), string(b.ListingID), b.GuestID, b.HostID,
			daterange.FormatDate(b.Range.CheckIn), daterange.FormatDate(b.Range.CheckOut), b.Guests, b.TotalPrice,
			string(b.Status), string(b.PaymentStatus), string(b.Policy), b.CancellationReason, string(b.CancelledBy),
			int64(1), toMillis(b.CreatedAt), toMillis(b.UpdatedAt))
		if isUniqueViolation(err) {
			return domainbooking.ErrVersionConflict
		}
		if err != nil {
			return err
		}
		b.Version = 1
		return nil
	}
	res, err := r.u.exec(ctx, `UPDATE bookings SET status = ?, payment_status = ?, cancellation_reason = ?,
			cancelled_by = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(b.Status), string(b.PaymentStatus), b.CancellationReason, string(b.CancelledBy),
		toMillis(b.UpdatedAt), string(b.ID), b.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainbooking.ErrVersionConflict
	}
	b.Version++
	return nil
}

type cancellationRepo struct{ u *Unit }

const cancellationColumns = `id, booking_id, cancelled_by, reason, refund_amount, cancellation_fee, policy, status, created_at`

func (r cancellationRepo) Create(ctx context.Context, c *domainbooking.Cancellation) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	policy, err := json.Marshal(c.Policy)
	if err != nil {
		return err
	}
	_, err = r.u.exec(ctx, `INSERT INTO booking_cancellations (`+cancellationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.BookingID), string(c.CancelledBy), c.Reason, c.RefundAmount, c.CancellationFee,
		string(policy), string(c.Status), toMillis(c.CreatedAt))
	if isUniqueViolation(err) {
		return domainbooking.ErrCancellationExists
	}
	return err
}

func (r cancellationRepo) ByBookingID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Cancellation, error) {
	row := r.u.queryRow(ctx, `SELECT `+cancellationColumns+` FROM booking_cancellations WHERE booking_id = ?`, string(id))
	var (
		c                        domainbooking.Cancellation
		bookingID, actor, status string
		policy                   string
		createdAt                int64
	)
	err := row.Scan(&c.ID, &bookingID, &actor, &c.Reason, &c.RefundAmount, &c.CancellationFee, &policy, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainbooking.ErrCancellationNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(policy), &c.Policy); err != nil {
		return nil, err
	}
	c.BookingID = domainbooking.BookingID(bookingID)
	c.CancelledBy = domainbooking.Actor(actor)
	c.Status = domainbooking.CancellationStatus(status)
	c.CreatedAt = fromMillis(createdAt)
	return &c, nil
}
