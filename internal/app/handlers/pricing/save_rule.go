package pricing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

const savePriceRuleKey = "pricing.rules.save"

var ErrListingNotOwned = apperr.NotFound("pricing: listing not found for host")

// SavePriceRuleCommand creates a rule, or replaces it when RuleID names an
// existing rule of the same listing.
type SavePriceRuleCommand struct {
	HostID          string `validate:"required"`
	ListingID       string `validate:"required"`
	RuleID          string
	Type            string `validate:"required"`
	StartDate       time.Time
	EndDate         time.Time
	Condition       domainpricing.Condition
	AdjustmentType  string `validate:"required"`
	AdjustmentValue decimal.Decimal
	MinStay         int `validate:"gte=0"`
	MaxStay         int `validate:"gte=0"`
	Priority        int
	Active          bool
}

func (c SavePriceRuleCommand) Key() string { return savePriceRuleKey }

type SavePriceRuleHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *SavePriceRuleHandler) Handle(ctx context.Context, cmd SavePriceRuleCommand) (*dto.PriceRule, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	listingID := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Host != domainlistings.HostID(cmd.HostID) {
		return nil, ErrListingNotOwned
	}

	ruleID := strings.TrimSpace(cmd.RuleID)
	if ruleID == "" {
		ruleID = uuid.NewString()
	} else {
		existing, err := unit.PriceRules().ByID(ctx, ruleID)
		switch {
		case err == nil && existing.ListingID != listingID:
			return nil, domainpricing.ErrRuleNotFound
		case err != nil && !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	rule := domainpricing.Rule{
		ID:              ruleID,
		ListingID:       listingID,
		Type:            domainpricing.RuleType(strings.ToLower(strings.TrimSpace(cmd.Type))),
		StartDate:       daterange.Day(cmd.StartDate),
		EndDate:         daterange.Day(cmd.EndDate),
		Condition:       cmd.Condition,
		AdjustmentType:  domainpricing.AdjustmentType(strings.ToLower(strings.TrimSpace(cmd.AdjustmentType))),
		AdjustmentValue: cmd.AdjustmentValue,
		MinStay:         cmd.MinStay,
		MaxStay:         cmd.MaxStay,
		Priority:        cmd.Priority,
		Active:          cmd.Active,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := unit.PriceRules().Save(ctx, rule); err != nil {
		return nil, err
	}

	saved := domainpricing.RuleSaved{
		RuleID:    rule.ID,
		ListingID: string(rule.ListingID),
		Type:      rule.Type,
		Active:    rule.Active,
		At:        h.Clock.Now(),
	}
	if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, []events.DomainEvent{saved}); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "price rule saved", "rule_id", rule.ID, "listing_id", rule.ListingID, "type", rule.Type)
	}
	out := dto.MapPriceRule(rule)
	return &out, nil
}

var _ commands.Handler[SavePriceRuleCommand, *dto.PriceRule] = (*SavePriceRuleHandler)(nil)
