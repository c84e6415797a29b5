package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rule(id string, typ RuleType, adj AdjustmentType, value string, priority int) Rule {
	return Rule{
		ID:              id,
		ListingID:       "lst-1",
		Type:            typ,
		StartDate:       d(2026, 1, 1),
		EndDate:         d(2026, 12, 31),
		AdjustmentType:  adj,
		AdjustmentValue: dec(value),
		Priority:        priority,
		Active:          true,
	}
}

func TestApplyHonoursPriorityOrder(t *testing.T) {
	now := d(2026, 6, 1)
	in := Input{Date: d(2026, 6, 3), StayLength: 3, BasePrice: dec("100"), Now: now}

	// percentage at 10 then fixed at 5: (100*1.1)+5 = 115
	rules := []Rule{
		rule("b", RuleLastMinute, AdjustFixed, "5", 5),
		rule("a", RuleLastMinute, AdjustPercentage, "10", 10),
	}
	got, err := Apply(rules, in)
	require.NoError(t, err)
	assert.Equal(t, "115.00", got.StringFixed(2))

	// reversed priorities: (100+5)*1.1 = 115.5
	rules[0].Priority, rules[1].Priority = 10, 5
	got, err = Apply(rules, in)
	require.NoError(t, err)
	assert.Equal(t, "115.50", got.StringFixed(2))
}

func TestApplicableFiltersAndSorts(t *testing.T) {
	inactive := rule("x", RuleWeekend, AdjustFixed, "1", 100)
	inactive.Active = false
	outside := rule("y", RuleWeekend, AdjustFixed, "1", 50)
	outside.StartDate, outside.EndDate = d(2026, 8, 1), d(2026, 8, 31)
	tie1 := rule("t1", RuleWeekend, AdjustFixed, "1", 7)
	tie2 := rule("t2", RuleWeekend, AdjustFixed, "1", 7)
	top := rule("z", RuleWeekend, AdjustFixed, "1", 9)

	got := Applicable([]Rule{tie2, inactive, outside, tie1, top}, d(2026, 6, 1))
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"z", "t1", "t2"}, ids)
}

func TestRuleWindowIsInclusive(t *testing.T) {
	r := rule("a", RuleLastMinute, AdjustFixed, "10", 1)
	r.StartDate, r.EndDate = d(2026, 6, 1), d(2026, 6, 1)
	got, err := Apply([]Rule{r}, Input{Date: d(2026, 6, 1), BasePrice: dec("50"), Now: d(2026, 6, 1)})
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("60")))
}

func TestPredicates(t *testing.T) {
	now := d(2026, 6, 1)
	base := dec("100")
	cases := []struct {
		name  string
		rule  Rule
		input Input
		want  string
	}{
		{"last minute default hit", rule("a", RuleLastMinute, AdjustPercentage, "-20", 1),
			Input{Date: d(2026, 6, 8), BasePrice: base, Now: now}, "80.00"},
		{"last minute default miss", rule("a", RuleLastMinute, AdjustPercentage, "-20", 1),
			Input{Date: d(2026, 6, 9), BasePrice: base, Now: now}, "100.00"},
		{"early bird default hit", rule("a", RuleEarlyBird, AdjustFixed, "-15", 1),
			Input{Date: d(2026, 7, 1), BasePrice: base, Now: now}, "85.00"},
		{"early bird custom days miss", func() Rule {
			r := rule("a", RuleEarlyBird, AdjustFixed, "-15", 1)
			r.Condition.Days = IntPtr(60)
			return r
		}(), Input{Date: d(2026, 7, 1), BasePrice: base, Now: now}, "100.00"},
		{"length of stay inside", func() Rule {
			r := rule("a", RuleLengthOfStay, AdjustPercentage, "-10", 1)
			r.Condition.MinDays, r.Condition.MaxDays = IntPtr(7), IntPtr(14)
			return r
		}(), Input{Date: d(2026, 7, 1), StayLength: 7, BasePrice: base, Now: now}, "90.00"},
		{"length of stay outside", func() Rule {
			r := rule("a", RuleLengthOfStay, AdjustPercentage, "-10", 1)
			r.Condition.MinDays, r.Condition.MaxDays = IntPtr(7), IntPtr(14)
			return r
		}(), Input{Date: d(2026, 7, 1), StayLength: 15, BasePrice: base, Now: now}, "100.00"},
		{"weekend on saturday start", rule("a", RuleWeekend, AdjustFixed, "25", 1),
			Input{Date: d(2026, 6, 8), StayStart: d(2026, 6, 6), BasePrice: base, Now: now}, "125.00"},
		{"weekend on weekday start", rule("a", RuleWeekend, AdjustFixed, "25", 1),
			Input{Date: d(2026, 6, 6), StayStart: d(2026, 6, 5), BasePrice: base, Now: now}, "100.00"},
		{"holiday without signals", rule("a", RuleHoliday, AdjustFixed, "25", 1),
			Input{Date: d(2026, 6, 6), BasePrice: base, Now: now}, "100.00"},
		{"custom never applies", rule("a", RuleCustom, AdjustFixed, "25", 1),
			Input{Date: d(2026, 6, 6), BasePrice: base, Now: now}, "100.00"},
		{"stay gate blocks", func() Rule {
			r := rule("a", RuleWeekend, AdjustFixed, "25", 1)
			r.MinStay = 3
			return r
		}(), Input{Date: d(2026, 6, 6), StayLength: 2, BasePrice: base, Now: now}, "100.00"},
		{"floored at zero", rule("a", RuleLastMinute, AdjustFixed, "-500", 1),
			Input{Date: d(2026, 6, 2), BasePrice: base, Now: now}, "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Apply([]Rule{tc.rule}, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

type signalMock struct{ mock.Mock }

func (m *signalMock) Matches(r Rule, in Input) bool {
	return m.Called(r.Type).Bool(0)
}

func TestSignalSourceDrivesExternalPredicates(t *testing.T) {
	signals := new(signalMock)
	signals.On("Matches", RuleDemand).Return(true)
	got, err := Apply([]Rule{rule("a", RuleDemand, AdjustPercentage, "50", 1)},
		Input{Date: d(2026, 6, 6), BasePrice: dec("100"), Now: d(2026, 6, 1), Signals: signals})
	require.NoError(t, err)
	assert.Equal(t, "150.00", got.StringFixed(2))
	signals.AssertExpectations(t)
}

func TestMultiplierIsUnsupported(t *testing.T) {
	r := rule("a", RuleLastMinute, AdjustMultiplier, "2", 1)
	assert.ErrorIs(t, r.Validate(), apperr.ErrUnsupported)

	_, err := Apply([]Rule{r}, Input{Date: d(2026, 6, 2), BasePrice: dec("100"), Now: d(2026, 6, 1)})
	assert.ErrorIs(t, err, ErrUnsupportedAdjustment)
	assert.Equal(t, apperr.KindUnsupported, apperr.KindOf(err))
}

func TestRuleValidate(t *testing.T) {
	r := rule("a", RuleWeekend, AdjustFixed, "1", 1)
	require.NoError(t, r.Validate())

	bad := r
	bad.EndDate = d(2025, 1, 1)
	assert.ErrorIs(t, bad.Validate(), ErrRuleWindow)

	bad = r
	bad.MinStay, bad.MaxStay = 5, 2
	assert.ErrorIs(t, bad.Validate(), ErrRuleStayBounds)

	bad = r
	bad.Condition.MinDays, bad.Condition.MaxDays = IntPtr(9), IntPtr(3)
	assert.ErrorIs(t, bad.Validate(), ErrConditionBounds)

	bad = r
	bad.Type = "seasonal"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownRuleType)
}

type stubRules struct {
	rules []Rule
}

func (s stubRules) ActiveRules(context.Context, listings.ListingID, time.Time, time.Time) ([]Rule, error) {
	return s.rules, nil
}
func (s stubRules) ByID(context.Context, string) (Rule, error) { return Rule{}, ErrRuleNotFound }
func (s stubRules) Save(context.Context, Rule) error          { return nil }

func TestEngineApplyRules(t *testing.T) {
	e := Engine{
		Rules: stubRules{rules: []Rule{rule("a", RuleLastMinute, AdjustPercentage, "10", 1)}},
		Clock: func() time.Time { return d(2026, 6, 1) },
	}
	got, err := e.ApplyRules(context.Background(), "lst-1", d(2026, 6, 3), 2, dec("200"))
	require.NoError(t, err)
	assert.Equal(t, "220.00", got.StringFixed(2))
}
