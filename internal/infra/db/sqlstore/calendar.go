package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

type calendarRepo struct{ u *Unit }

const dayColumns = `listing_id, date, is_available, base_price, min_stay, max_stay, check_in_allowed, check_out_allowed`

func (r calendarRepo) ReplaceRange(ctx context.Context, id domainlistings.ListingID, from, to time.Time, days []domaincalendar.Day) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, err := r.u.exec(ctx, `DELETE FROM calendar_days WHERE listing_id = ? AND date >= ? AND date <= ?`,
		string(id), daterange.FormatDate(daterange.Day(from)), daterange.FormatDate(daterange.Day(to))); err != nil {
		return err
	}
	for _, d := range days {
		if !daterange.Within(d.Date, from, to) {
			return domaincalendar.ErrEntryOutsideRange
		}
		if err := r.insert(ctx, d, ""); err != nil {
			return err
		}
	}
	return nil
}

func (r calendarRepo) FetchRange(ctx context.Context, id domainlistings.ListingID, from, to time.Time) ([]domaincalendar.Day, error) {
	return r.selectRange(ctx, id, from, to, "")
}

func (r calendarRepo) FetchDay(ctx context.Context, id domainlistings.ListingID, date time.Time) (domaincalendar.Day, error) {
	date = daterange.Day(date)
	row := r.u.queryRow(ctx, `SELECT `+dayColumns+` FROM calendar_days WHERE listing_id = ? AND date = ?`,
		string(id), daterange.FormatDate(date))
	d, err := scanDay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domaincalendar.Day{}, domaincalendar.ErrDayNotFound
	}
	return d, err
}

func (r calendarRepo) InsertMissing(ctx context.Context, days []domaincalendar.Day) (int, error) {
	if err := r.u.writable(); err != nil {
		return 0, err
	}
	created := 0
	for _, d := range days {
		res, err := r.u.exec(ctx, `INSERT INTO calendar_days (`+dayColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (listing_id, date) DO NOTHING`, dayArgs(d)...)
		if err != nil {
			return created, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return created, err
		}
		created += int(n)
	}
	return created, nil
}

// LockRange locks the listing row first on Postgres so that nights without a
// stored row are serialised as well.
func (r calendarRepo) LockRange(ctx context.Context, id domainlistings.ListingID, from, to time.Time) ([]domaincalendar.Day, error) {
	if err := r.u.writable(); err != nil {
		return nil, err
	}
	if r.u.dialect == Postgres {
		var locked string
		err := r.u.queryRow(ctx, `SELECT id FROM listings WHERE id = ?`+r.u.dialect.forUpdate(), string(id)).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainlistings.ErrListingNotFound
		}
		if err != nil {
			return nil, err
		}
	}
	return r.selectRange(ctx, id, from, to, r.u.dialect.forUpdate())
}

func (r calendarRepo) Upsert(ctx context.Context, days []domaincalendar.Day) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	for _, d := range days {
		if err := r.insert(ctx, d, `ON CONFLICT (listing_id, date) DO UPDATE SET
			is_available = excluded.is_available, base_price = excluded.base_price,
			min_stay = excluded.min_stay, max_stay = excluded.max_stay,
			check_in_allowed = excluded.check_in_allowed, check_out_allowed = excluded.check_out_allowed`); err != nil {
			return err
		}
	}
	return nil
}

func (r calendarRepo) insert(ctx context.Context, d domaincalendar.Day, conflict string) error {
	if err := d.Validate(); err != nil {
		return err
	}
	_, err := r.u.exec(ctx, `INSERT INTO calendar_days (`+dayColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?) `+conflict, dayArgs(d)...)
	if isUniqueViolation(err) {
		return domaincalendar.ErrDuplicateEntry
	}
	return err
}

func (r calendarRepo) selectRange(ctx context.Context, id domainlistings.ListingID, from, to time.Time, suffix string) ([]domaincalendar.Day, error) {
	rows, err := r.u.query(ctx, `SELECT `+dayColumns+` FROM calendar_days
		WHERE listing_id = ? AND date >= ? AND date <= ? ORDER BY date`+suffix,
		string(id), daterange.FormatDate(daterange.Day(from)), daterange.FormatDate(daterange.Day(to)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domaincalendar.Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(row rowScanner) (domaincalendar.Day, error) {
	var (
		d         domaincalendar.Day
		listingID string
		date      string
	)
	if err := row.Scan(&listingID, &date, &d.Available, &d.BasePrice, &d.MinStay, &d.MaxStay,
		&d.CheckInAllowed, &d.CheckOutAllowed); err != nil {
		return domaincalendar.Day{}, err
	}
	parsed, err := daterange.ParseDate(date)
	if err != nil {
		return domaincalendar.Day{}, err
	}
	d.ListingID = domainlistings.ListingID(listingID)
	d.Date = parsed
	return d, nil
}

func dayArgs(d domaincalendar.Day) []any {
	return []any{
		string(d.ListingID), daterange.FormatDate(daterange.Day(d.Date)), d.Available, d.BasePrice.Round(2),
		d.MinStay, d.MaxStay, d.CheckInAllowed, d.CheckOutAllowed,
	}
}
