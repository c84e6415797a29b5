package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	domainlistings "staybook/internal/domain/listings"
)

type listingRepo struct{ u *Unit }

const listingColumns = `id, host_id, title, state, price_per_night, minimum_nights, maximum_nights, max_guests,
	cancellation_policy, default_available, check_in_days, check_out_days, version, created_at, updated_at`

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	row := r.u.queryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, string(id))
	var (
		l                 domainlistings.Listing
		checkIn, checkOut int64
		created, updated  int64
		state, policy     string
		listingID, hostID string
	)
	err := row.Scan(&listingID, &hostID, &l.Title, &state, &l.PricePerNight, &l.MinimumNights, &l.MaximumNights,
		&l.MaxGuests, &policy, &l.DefaultAvailable, &checkIn, &checkOut, &l.Version, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainlistings.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	l.ID = domainlistings.ListingID(listingID)
	l.Host = domainlistings.HostID(hostID)
	l.State = domainlistings.ListingState(state)
	l.CancellationPolicy = domainlistings.CancellationPolicy(policy)
	l.CheckInDays = domainlistings.WeekdaySet(checkIn)
	l.CheckOutDays = domainlistings.WeekdaySet(checkOut)
	l.CreatedAt = fromMillis(created)
	l.UpdatedAt = fromMillis(updated)
	return &l, nil
}

// Save inserts version-0 listings and otherwise updates under an optimistic
// version check.
func (r listingRepo) Save(ctx context.Context, l *domainlistings.Listing) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if l.Version == 0 {
		_, err := r.u.exec(ctx, `INSERT INTO listings (`+listingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(l.ID), string(l.Host), l.Title, string(l.State), l.PricePerNight, l.MinimumNights, l.MaximumNights,
			l.MaxGuests, string(l.CancellationPolicy), l.DefaultAvailable, int64(l.CheckInDays), int64(l.CheckOutDays),
			int64(1), toMillis(l.CreatedAt), toMillis(l.UpdatedAt))
		if isUniqueViolation(err) {
			return domainlistings.ErrVersionConflict
		}
		if err != nil {
			return err
		}
		l.Version = 1
		return nil
	}
	res, err := r.u.exec(ctx, `UPDATE listings SET title = ?, state = ?, price_per_night = ?, minimum_nights = ?,
			maximum_nights = ?, max_guests = ?, cancellation_policy = ?, default_available = ?, check_in_days = ?,
			check_out_days = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		l.Title, string(l.State), l.PricePerNight, l.MinimumNights, l.MaximumNights, l.MaxGuests,
		string(l.CancellationPolicy), l.DefaultAvailable, int64(l.CheckInDays), int64(l.CheckOutDays),
		toMillis(l.UpdatedAt), string(l.ID), l.Version)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domainlistings.ErrVersionConflict
	}
	l.Version++
	return nil
}
