package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var ErrUnknownPolicy = apperr.Validation("booking: unknown cancellation policy")

// PolicyTerms is the refund a policy grants when cancelled with at least
// MinDaysNotice days before check-in. Less notice refunds nothing.
type PolicyTerms struct {
	Policy        listings.CancellationPolicy
	MinDaysNotice int
	RefundPercent int
}

// policyTable is the only place cancellation thresholds are defined.
var policyTable = map[listings.CancellationPolicy]PolicyTerms{
	listings.PolicyFlexible: {Policy: listings.PolicyFlexible, MinDaysNotice: 1, RefundPercent: 100},
	listings.PolicyModerate: {Policy: listings.PolicyModerate, MinDaysNotice: 5, RefundPercent: 100},
	listings.PolicyStrict:   {Policy: listings.PolicyStrict, MinDaysNotice: 7, RefundPercent: 50},
}

func TermsFor(p listings.CancellationPolicy) (PolicyTerms, error) {
	terms, ok := policyTable[p]
	if !ok {
		return PolicyTerms{}, ErrUnknownPolicy
	}
	return terms, nil
}

// PolicySnapshot freezes the terms used for a cancellation.
type PolicySnapshot struct {
	Policy           listings.CancellationPolicy `json:"policy"`
	RefundPercent    int                         `json:"refundPercent"`
	MinDaysNotice    int                         `json:"minDaysNotice"`
	DaysUntilCheckIn int                         `json:"daysUntilCheckIn"`
	AppliedPercent   int                         `json:"appliedPercent"`
}

type RefundQuote struct {
	Refund   decimal.Decimal
	Fee      decimal.Decimal
	Snapshot PolicySnapshot
}

// DaysUntilCheckIn is ceil((checkIn - now) / 1 day).
func DaysUntilCheckIn(checkIn, now time.Time) int {
	return daterange.CeilDays(checkIn.Sub(now))
}

// ComputeRefund applies the policy table to total. Refund and fee always sum
// to total and the refund never exceeds it.
func ComputeRefund(p listings.CancellationPolicy, total decimal.Decimal, checkIn, now time.Time) (RefundQuote, error) {
	terms, err := TermsFor(p)
	if err != nil {
		return RefundQuote{}, err
	}
	days := DaysUntilCheckIn(checkIn, now)
	applied := 0
	if days >= terms.MinDaysNotice {
		applied = terms.RefundPercent
	}
	total = money.NonNegative(money.Round(total))
	refund := money.Percent(total, applied)
	if refund.GreaterThan(total) {
		refund = total
	}
	return RefundQuote{
		Refund: refund,
		Fee:    total.Sub(refund),
		Snapshot: PolicySnapshot{
			Policy:           terms.Policy,
			RefundPercent:    terms.RefundPercent,
			MinDaysNotice:    terms.MinDaysNotice,
			DaysUntilCheckIn: days,
			AppliedPercent:   applied,
		},
	}, nil
}
