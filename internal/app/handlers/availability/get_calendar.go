package availability

import (
	"context"
	"strings"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
)

const getCalendarKey = "availability.calendar"

var errListingRequired = apperr.Validation("availability: listing id is required")

// GetCalendarQuery returns the stored rows of [From, To], both inclusive.
type GetCalendarQuery struct {
	ListingID string    `validate:"required"`
	From      time.Time `validate:"required"`
	To        time.Time `validate:"required"`
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	if strings.TrimSpace(q.ListingID) == "" {
		return dto.Calendar{}, errListingRequired
	}
	from, to, err := domaincalendar.CheckSpan(q.From, q.To)
	if err != nil {
		return dto.Calendar{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	id := domainlistings.ListingID(q.ListingID)
	if _, err := unit.Listings().ByID(execCtx, id); err != nil {
		return dto.Calendar{}, err
	}
	days, err := unit.Calendar().FetchRange(execCtx, id, from, to)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.Calendar{
		ListingID: q.ListingID,
		Start:     daterange.FormatDate(from),
		End:       daterange.FormatDate(to),
		Days:      dto.MapCalendarDays(days),
	}, nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
