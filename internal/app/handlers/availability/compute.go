package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
)

const computeAvailabilityKey = "availability.compute"

type ComputeAvailabilityQuery struct {
	ListingID string    `validate:"required"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required"`
	Guests    int       `validate:"gte=1"`
}

func (q ComputeAvailabilityQuery) Key() string { return computeAvailabilityKey }

// cacheKey includes today's date because last-minute and early-bird rules
// depend on it.
func (q ComputeAvailabilityQuery) cacheKey(now time.Time) string {
	return fmt.Sprintf("%s:%s:%d:%s",
		daterange.FormatDate(q.Start), daterange.FormatDate(q.End), q.Guests, daterange.FormatDate(now))
}

type ComputeAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Cache      policies.AvailabilityCache
	Signals    pricing.SignalSource
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

func (h *ComputeAvailabilityHandler) Handle(ctx context.Context, q ComputeAvailabilityQuery) (dto.Availability, error) {
	if strings.TrimSpace(q.ListingID) == "" {
		return dto.Availability{}, errListingRequired
	}
	dr, err := daterange.NewDates(q.Start, q.End)
	if err != nil {
		return dto.Availability{}, domainavailability.ErrInvalidRange
	}
	now := h.Clock.Now()
	key := q.cacheKey(now)
	if h.Cache != nil {
		cached, ok, err := h.Cache.Get(ctx, q.ListingID, key)
		if err != nil {
			h.logger().WarnContext(ctx, "availability cache read failed", "listing_id", q.ListingID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	res, err := Evaluate(execCtx, unit, domainlistings.ListingID(q.ListingID), domainavailability.Request{
		Range:   dr,
		Guests:  q.Guests,
		Now:     now,
		Signals: h.Signals,
	})
	if err != nil {
		return dto.Availability{}, err
	}
	out := dto.MapAvailability(res)
	if h.Cache != nil {
		if err := h.Cache.Set(ctx, q.ListingID, key, out); err != nil {
			h.logger().WarnContext(ctx, "availability cache write failed", "listing_id", q.ListingID, "error", err)
		}
	}
	return out, nil
}

func (h *ComputeAvailabilityHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Evaluate loads the listing, the stored rows of the evaluation window and the
// rules in force, then runs the pure calculator. It never writes.
func Evaluate(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID, req domainavailability.Request) (domainavailability.Result, error) {
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		return domainavailability.Result{}, err
	}
	if err := domainavailability.CheckStay(listing, req.Range, req.Guests); err != nil {
		return domainavailability.Result{}, err
	}
	from, to := domainavailability.Window(req.Range)
	stored, err := unit.Calendar().FetchRange(ctx, id, from, to)
	if err != nil {
		return domainavailability.Result{}, err
	}
	rules, err := unit.PriceRules().ActiveRules(ctx, id, from, to)
	if err != nil {
		return domainavailability.Result{}, err
	}
	return domainavailability.Evaluate(listing, stored, rules, req)
}

var _ queries.Handler[ComputeAvailabilityQuery, dto.Availability] = (*ComputeAvailabilityHandler)(nil)
