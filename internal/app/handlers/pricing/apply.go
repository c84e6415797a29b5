package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

const applyPriceRulesKey = "pricing.apply"

var (
	errListingRequired = apperr.Validation("pricing: listing id is required")
	errStayLength      = apperr.Validation("pricing: stay length must be at least 1")
)

// ApplyPriceRulesQuery prices one night of an existing listing. When BasePrice
// is nil the night's calendar price (or the listing default) is used.
type ApplyPriceRulesQuery struct {
	ListingID  string    `validate:"required"`
	Date       time.Time `validate:"required"`
	StayLength int       `validate:"gte=1"`
	BasePrice  *decimal.Decimal
}

func (q ApplyPriceRulesQuery) Key() string { return applyPriceRulesKey }

type ApplyPriceRulesHandler struct {
	UoWFactory uow.UoWFactory
	Signals    domainpricing.SignalSource
	Clock      handlersupport.Clock
}

func (h *ApplyPriceRulesHandler) Handle(ctx context.Context, q ApplyPriceRulesQuery) (dto.PriceQuote, error) {
	if strings.TrimSpace(q.ListingID) == "" {
		return dto.PriceQuote{}, errListingRequired
	}
	if q.StayLength < 1 {
		return dto.PriceQuote{}, errStayLength
	}
	if q.BasePrice != nil && q.BasePrice.IsNegative() {
		return dto.PriceQuote{}, money.ErrNegativeAmount
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PriceQuote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	id := domainlistings.ListingID(q.ListingID)
	date := daterange.Day(q.Date)
	base, err := h.basePrice(execCtx, unit, id, date, q.BasePrice)
	if err != nil {
		return dto.PriceQuote{}, err
	}
	engine := domainpricing.Engine{
		Rules:   unit.PriceRules(),
		Signals: h.Signals,
		Clock:   h.Clock,
	}
	final, err := engine.ApplyRules(execCtx, id, date, q.StayLength, base)
	if err != nil {
		return dto.PriceQuote{}, err
	}
	return dto.PriceQuote{
		ListingID:  q.ListingID,
		Date:       daterange.FormatDate(date),
		StayLength: q.StayLength,
		BasePrice:  money.String(base),
		FinalPrice: money.String(final),
	}, nil
}

func (h *ApplyPriceRulesHandler) basePrice(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID, date time.Time, explicit *decimal.Decimal) (decimal.Decimal, error) {
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if explicit != nil {
		return money.Round(*explicit), nil
	}
	stored, err := unit.Calendar().FetchRange(ctx, id, date, date)
	if err != nil {
		return decimal.Zero, err
	}
	return domaincalendar.Resolve(listing, stored, []time.Time{date})[0].BasePrice, nil
}

var _ queries.Handler[ApplyPriceRulesQuery, dto.PriceQuote] = (*ApplyPriceRulesHandler)(nil)
