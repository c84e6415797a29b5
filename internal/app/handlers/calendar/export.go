package calendar

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
)

const exportCalendarKey = "calendar.export"

var errExportUnavailable = apperr.Unsupported("calendar: export storage is not configured")

// ExportCalendarQuery renders the blocked nights of [From, To] as iCalendar
// and stores the file in the calendar archive.
type ExportCalendarQuery struct {
	HostID    string    `validate:"required"`
	ListingID string    `validate:"required"`
	From      time.Time `validate:"required"`
	To        time.Time `validate:"required"`
}

func (q ExportCalendarQuery) Key() string { return exportCalendarKey }

type ExportCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Archive    policies.CalendarArchive
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *ExportCalendarHandler) Handle(ctx context.Context, q ExportCalendarQuery) (dto.CalendarExport, error) {
	if h.Archive == nil {
		return dto.CalendarExport{}, errExportUnavailable
	}
	from, to, err := domaincalendar.CheckSpan(q.From, q.To)
	if err != nil {
		return dto.CalendarExport{}, err
	}
	listing, days, err := h.load(ctx, q, from, to)
	if err != nil {
		return dto.CalendarExport{}, err
	}

	now := h.Clock.Now()
	spans := domaincalendar.BlockedSpans(days)
	body := domaincalendar.RenderICal(listing.ID, listing.Title, spans, now)
	key := fmt.Sprintf("calendars/%s/%s_%s.ics", listing.ID, daterange.FormatDate(from), daterange.FormatDate(to))
	url, err := h.Archive.Upload(ctx, key, bytes.NewReader(body), "text/calendar; charset=utf-8")
	if err != nil {
		return dto.CalendarExport{}, apperr.Wrap(apperr.KindInternal, "calendar: export upload failed", err)
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "calendar exported", "listing_id", listing.ID, "spans", len(spans), "url", url)
	}
	return dto.CalendarExport{
		ListingID:    string(listing.ID),
		Start:        daterange.FormatDate(from),
		End:          daterange.FormatDate(to),
		URL:          url,
		BlockedSpans: len(spans),
	}, nil
}

// load resolves every night of the span and releases the unit before the upload.
func (h *ExportCalendarHandler) load(ctx context.Context, q ExportCalendarQuery, from, to time.Time) (*domainlistings.Listing, []domaincalendar.Day, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	id := domainlistings.ListingID(q.ListingID)
	listing, err := unit.Listings().ByID(execCtx, id)
	if err != nil {
		return nil, nil, err
	}
	if listing.Host != domainlistings.HostID(q.HostID) {
		return nil, nil, ErrListingNotOwned
	}
	stored, err := unit.Calendar().FetchRange(execCtx, id, from, to)
	if err != nil {
		return nil, nil, err
	}
	dates := make([]time.Time, 0, daterange.DaysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return listing, domaincalendar.Resolve(listing, stored, dates), nil
}

var _ queries.Handler[ExportCalendarQuery, dto.CalendarExport] = (*ExportCalendarHandler)(nil)
