// Package pricing evaluates date-scoped price rules against a base nightly
// price. Rules are applied sequentially by descending priority; each rule
// sees the price produced by the previous one.
package pricing

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

const (
	DefaultLastMinuteDays = 7
	DefaultEarlyBirdDays  = 30
)

var ErrUnsupportedAdjustment = apperr.Unsupported("pricing: multiplier adjustment is not supported")

var hundred = decimal.NewFromInt(100)

// SignalSource answers the predicates that depend on external data
// (holiday, special_event, demand).
type SignalSource interface {
	Matches(rule Rule, in Input) bool
}

// NoSignals never matches.
type NoSignals struct{}

func (NoSignals) Matches(Rule, Input) bool { return false }

// Input describes one night being priced.
type Input struct {
	ListingID  listings.ListingID
	Date       time.Time
	StayStart  time.Time // defaults to Date
	StayLength int
	BasePrice  decimal.Decimal
	Now        time.Time
	Signals    SignalSource
}

// Apply returns the final price for in.Date after applying rules.
func Apply(rules []Rule, in Input) (decimal.Decimal, error) {
	if in.StayStart.IsZero() {
		in.StayStart = in.Date
	}
	if in.Signals == nil {
		in.Signals = NoSignals{}
	}
	price := in.BasePrice
	for _, rule := range Applicable(rules, in.Date) {
		if !stayGate(rule, in.StayLength) || !predicate(rule, in) {
			continue
		}
		switch rule.AdjustmentType {
		case AdjustPercentage:
			price = price.Mul(decimal.NewFromInt(1).Add(rule.AdjustmentValue.Div(hundred)))
		case AdjustFixed:
			price = price.Add(rule.AdjustmentValue)
		default:
			return decimal.Zero, ErrUnsupportedAdjustment
		}
	}
	return money.NonNegative(money.Round(price)), nil
}

// Applicable returns the active rules whose window contains date, highest
// priority first. Ties keep ascending ID order.
func Applicable(rules []Rule, date time.Time) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active && daterange.Within(date, r.StartDate, r.EndDate) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func stayGate(r Rule, stayLength int) bool {
	if r.MinStay > 0 && stayLength < r.MinStay {
		return false
	}
	if r.MaxStay > 0 && stayLength > r.MaxStay {
		return false
	}
	return true
}

func predicate(r Rule, in Input) bool {
	daysUntil := daterange.DaysBetween(in.Now, in.StayStart)
	switch r.Type {
	case RuleLastMinute:
		return daysUntil <= intOr(r.Condition.Days, DefaultLastMinuteDays)
	case RuleEarlyBird:
		return daysUntil >= intOr(r.Condition.Days, DefaultEarlyBirdDays)
	case RuleLengthOfStay:
		if in.StayLength < intOr(r.Condition.MinDays, 0) {
			return false
		}
		maxDays := intOr(r.Condition.MaxDays, 0)
		return maxDays == 0 || in.StayLength <= maxDays
	case RuleWeekend:
		wd := daterange.Day(in.StayStart).Weekday()
		return wd == time.Saturday || wd == time.Sunday
	case RuleHoliday, RuleSpecialEvent, RuleDemand:
		return in.Signals.Matches(r, in)
	default:
		return false
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// Engine loads rules from storage and delegates to Apply.
type Engine struct {
	Rules   RuleRepository
	Signals SignalSource
	Clock   func() time.Time
}

func (e Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock().UTC()
	}
	return time.Now().UTC()
}

// ApplyRules prices a single night; the stay is assumed to start on date.
func (e Engine) ApplyRules(ctx context.Context, id listings.ListingID, date time.Time, stayLength int, basePrice decimal.Decimal) (decimal.Decimal, error) {
	date = daterange.Day(date)
	rules, err := e.Rules.ActiveRules(ctx, id, date, date)
	if err != nil {
		return decimal.Zero, err
	}
	return Apply(rules, Input{
		ListingID:  id,
		Date:       date,
		StayLength: stayLength,
		BasePrice:  basePrice,
		Now:        e.now(),
		Signals:    e.Signals,
	})
}
