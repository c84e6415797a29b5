package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	pricingapp "staybook/internal/app/handlers/pricing"
	"staybook/internal/app/queries"
	domainpricing "staybook/internal/domain/pricing"
)

type PricingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// Quote prices one night. Without base_price the calendar row of the date,
// or the listing default, is used.
func (h PricingHandler) Quote(c *gin.Context) {
	date, err := parseDate("date", c.Query("date"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	stay, err := parsePositiveInt("stay_length", c.Query("stay_length"), 1)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	base, err := parseOptionalDecimal("base_price", c.Query("base_price"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	q := pricingapp.ApplyPriceRulesQuery{ListingID: c.Param("id"), Date: date, StayLength: stay, BasePrice: base}
	result, err := queries.Ask[pricingapp.ApplyPriceRulesQuery, dto.PriceQuote](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type priceRuleRequest struct {
	ID              string                  `json:"id"`
	Type            string                  `json:"type"`
	StartDate       string                  `json:"start_date"`
	EndDate         string                  `json:"end_date"`
	Condition       domainpricing.Condition `json:"condition"`
	AdjustmentType  string                  `json:"adjustment_type"`
	AdjustmentValue decimal.Decimal         `json:"adjustment_value"`
	MinStay         int                     `json:"min_stay"`
	MaxStay         int                     `json:"max_stay"`
	Priority        int                     `json:"priority"`
	IsActive        *bool                   `json:"is_active"`
}

func (h PricingHandler) SaveRule(c *gin.Context) {
	hostID, ok := requireActor(c)
	if !ok {
		return
	}
	var req priceRuleRequest
	if !bindJSON(c, h.Logger, &req) {
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	cmd := pricingapp.SavePriceRuleCommand{
		HostID:          hostID,
		ListingID:       c.Param("id"),
		RuleID:          req.ID,
		Type:            req.Type,
		StartDate:       start,
		EndDate:         end,
		Condition:       req.Condition,
		AdjustmentType:  req.AdjustmentType,
		AdjustmentValue: req.AdjustmentValue,
		MinStay:         req.MinStay,
		MaxStay:         req.MaxStay,
		Priority:        req.Priority,
		Active:          active,
	}
	result, err := commands.Dispatch[pricingapp.SavePriceRuleCommand, *dto.PriceRule](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PricingHTTP = PricingHandler{}
