package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
)

var (
	ErrRuleNotFound       = apperr.NotFound("pricing: rule not found")
	ErrUnknownRuleType    = apperr.Validation("pricing: unknown rule type")
	ErrUnknownAdjustment  = apperr.Validation("pricing: unknown adjustment type")
	ErrRuleWindow         = apperr.Validation("pricing: start date must be <= end date")
	ErrRuleStayBounds     = apperr.Validation("pricing: min stay must be <= max stay")
	ErrConditionBounds    = apperr.Validation("pricing: condition min days must be <= max days")
	ErrNegativeCondition  = apperr.Validation("pricing: condition values cannot be negative")
	ErrRuleListingMissing = apperr.Validation("pricing: listing id is required")
)

type RuleType string

const (
	RuleLastMinute   RuleType = "last_minute"
	RuleEarlyBird    RuleType = "early_bird"
	RuleLengthOfStay RuleType = "length_of_stay"
	RuleWeekend      RuleType = "weekend"
	RuleHoliday      RuleType = "holiday"
	RuleSpecialEvent RuleType = "special_event"
	RuleDemand       RuleType = "demand"
	RuleCustom       RuleType = "custom"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleLastMinute, RuleEarlyBird, RuleLengthOfStay, RuleWeekend,
		RuleHoliday, RuleSpecialEvent, RuleDemand, RuleCustom:
		return true
	}
	return false
}

type AdjustmentType string

const (
	AdjustPercentage AdjustmentType = "percentage"
	AdjustFixed      AdjustmentType = "fixed"
	AdjustMultiplier AdjustmentType = "multiplier"
)

func (a AdjustmentType) Valid() bool {
	switch a {
	case AdjustPercentage, AdjustFixed, AdjustMultiplier:
		return true
	}
	return false
}

// Condition holds the type-specific parameters of a rule. Nil means unset.
type Condition struct {
	Days    *int `json:"days,omitempty"`
	MinDays *int `json:"minDays,omitempty"`
	MaxDays *int `json:"maxDays,omitempty"`
}

// Rule is a conditional price adjustment valid for [StartDate, EndDate].
type Rule struct {
	ID              string
	ListingID       listings.ListingID
	Type            RuleType
	StartDate       time.Time
	EndDate         time.Time
	Condition       Condition
	AdjustmentType  AdjustmentType
	AdjustmentValue decimal.Decimal
	MinStay         int // 0 means unset
	MaxStay         int // 0 means unset
	Priority        int // higher applies first
	Active          bool
}

func (r Rule) Validate() error {
	if strings.TrimSpace(string(r.ListingID)) == "" {
		return ErrRuleListingMissing
	}
	if !r.Type.Valid() {
		return ErrUnknownRuleType
	}
	if !r.AdjustmentType.Valid() {
		return ErrUnknownAdjustment
	}
	if r.AdjustmentType == AdjustMultiplier {
		return ErrUnsupportedAdjustment
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() || r.EndDate.Before(r.StartDate) {
		return ErrRuleWindow
	}
	if r.MinStay < 0 || r.MaxStay < 0 {
		return ErrRuleStayBounds
	}
	if r.MinStay > 0 && r.MaxStay > 0 && r.MinStay > r.MaxStay {
		return ErrRuleStayBounds
	}
	c := r.Condition
	for _, v := range []*int{c.Days, c.MinDays, c.MaxDays} {
		if v != nil && *v < 0 {
			return ErrNegativeCondition
		}
	}
	if c.MinDays != nil && c.MaxDays != nil && *c.MinDays > *c.MaxDays {
		return ErrConditionBounds
	}
	return nil
}

type RuleRepository interface {
	// ActiveRules returns active rules of the listing whose window intersects [from, to].
	ActiveRules(ctx context.Context, id listings.ListingID, from, to time.Time) ([]Rule, error)
	ByID(ctx context.Context, id string) (Rule, error)
	Save(ctx context.Context, rule Rule) error
}

// IntPtr is a helper for building conditions.
func IntPtr(v int) *int { return &v }
