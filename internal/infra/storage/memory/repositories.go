package memory

import (
	"context"
	"time"

	domainbooking "staybook/internal/domain/booking"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

type listingRepo struct{ u *Unit }

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	st, err := r.u.read()
	if err != nil {
		return nil, err
	}
	l, ok := st.listings[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return &l, nil
}

// Save bumps the listing version; it refuses to overwrite a newer copy.
func (r listingRepo) Save(ctx context.Context, listing *domainlistings.Listing) error {
	st, err := r.u.write()
	if err != nil {
		return err
	}
	if cur, ok := st.listings[listing.ID]; ok && cur.Version != listing.Version {
		return domainlistings.ErrVersionConflict
	}
	listing.Version++
	stored := *listing
	stored.EventRecorder = events.EventRecorder{}
	st.listings[listing.ID] = stored
	return nil
}

type calendarRepo struct{ u *Unit }

func (r calendarRepo) ReplaceRange(ctx context.Context, id domainlistings.ListingID, from, to time.Time, days []domaincalendar.Day) error {
	st, err := r.u.write()
	if err != nil {
		return err
	}
	from, to = daterange.Day(from), daterange.Day(to)
	byDate := st.days[id]
	for date := range byDate {
		if daterange.Within(date, from, to) {
			delete(byDate, date)
		}
	}
	return putDays(st, days)
}

func (r calendarRepo) FetchRange(ctx context.Context, id domainlistings.ListingID, from, to time.Time) ([]domaincalendar.Day, error) {
	st, err := r.u.read()
	if err != nil {
		return nil, err
	}
	return rangeOf(st, id, from, to), nil
}

func (r calendarRepo) FetchDay(ctx context.Context, id domainlistings.ListingID, date time.Time) (domaincalendar.Day, error) {
	st, err := r.u.read()
	if err != nil {
		return domaincalendar.Day{}, err
	}
	day, ok := st.days[id][daterange.Day(date)]
	if !ok {
		return domaincalendar.Day{}, domaincalendar.ErrDayNotFound
	}
	return day, nil
}

func (r calendarRepo) InsertMissing(ctx context.Context, days []domaincalendar.Day) (int, error) {
	st, err := r.u.write()
	if err != nil {
		return 0, err
	}
	created := 0
	for _, d := range days {
		d.Date = daterange.Day(d.Date)
		if _, exists := st.days[d.ListingID][d.Date]; exists {
			continue
		}
		if err := putDays(st, []domaincalendar.Day{d}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// LockRange needs no extra locking: a write unit already owns the store.
func (r calendarRepo) LockRange(ctx context.Context, id domainlistings.ListingID, from, to time.Time) ([]domaincalendar.Day, error) {
	st, err := r.u.write()
	if err != nil {
		return nil, err
	}
	return rangeOf(st, id, from, to), nil
}

func (r calendarRepo) Upsert(ctx context.Context, days []domaincalendar.Day) error {
	st, err := r.u.write()
	if err != nil {
		return err
	}
	return putDays(st, days)
}

func putDays(st *state, days []domaincalendar.Day) error {
	for _, d := range days {
		if err := d.Validate(); err != nil {
			return err
		}
		d.Date = daterange.Day(d.Date)
		byDate, ok := st.days[d.ListingID]
		if !ok {
			byDate = make(map[time.Time]domaincalendar.Day)
			st.days[d.ListingID] = byDate
		}
		byDate[d.Date] = d
	}
	return nil
}

func rangeOf(st *state, id domainlistings.ListingID, from, to time.Time) []domaincalendar.Day {
	from, to = daterange.Day(from), daterange.Day(to)
	out := make([]domaincalendar.Day, 0)
	for date, day := range st.days[id] {
		if daterange.Within(date, from, to) {
			out = append(out, day)
		}
	}
	domaincalendar.SortByDate(out)
	return out
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	st, err := r.u.read()
	if err != nil {
		return nil, err
	}
	b, ok := st.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return &b, nil
}

func (r bookingRepo) Save(ctx context.Context, booking *domainbooking.Booking) error {
	st, err := r.u.write()
	if err != nil {
		return err
	}
	cur, ok := st.bookings[booking.ID]
	if ok && cur.Version != booking.Version {
		return domainbooking.ErrVersionConflict
	}
	booking.Version++
	stored := *booking
	stored.EventRecorder = events.EventRecorder{}
	st.bookings[booking.ID] = stored
	return nil
}

type cancellationRepo struct{ u *Unit }

func (r cancellationRepo) Create(ctx context.Context, c *domainbooking.Cancellation) error {
	st, err := r.u.write()
	if err != nil {
		return err
	}
	if _, exists := st.cancellations[c.BookingID]; exists {
		return domainbooking.ErrCancellationExists
	}
	st.cancellations[c.BookingID] = *c
	return nil
}

func (r cancellationRepo) ByBookingID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Cancellation, error) {
	st, err := r.u.read()
	if err != nil {
		return nil, err
	}
	c, ok := st.cancellations[id]
	if !ok {
		return nil, domainbooking.ErrCancellationNotFound
	}
	return &c, nil
}
