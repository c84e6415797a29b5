package memory

import (
	"context"
	"sort"
	"time"

	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
)

type ruleRepo struct{ u *Unit }

// ActiveRules returns active rules of the listing whose window intersects
// [from, to], highest priority first.
func (r ruleRepo) ActiveRules(ctx context.Context, id domainlistings.ListingID, from, to time.Time) ([]domainpricing.Rule, error) {
	st, err := r.u.read()
	if err != nil {
		return nil, err
	}
	from, to = daterange.Day(from), daterange.Day(to)
	out := make([]domainpricing.Rule, 0)
	for _, rule := range st.rules {
		if rule.ListingID != id || !rule.Active {
			continue
		}
		if rule.StartDate.After(to) || rule.EndDate.Before(from) {
			continue
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r ruleRepo) ByID(ctx context.Context, id string) (domainpricing.Rule, error) {
	st, err := r.u.read()
	if err != nil {
		return domainpricing.Rule{}, err
	}
	rule, ok := st.rules[id]
	if !ok {
		return domainpricing.Rule{}, domainpricing.ErrRuleNotFound
	}
	return rule, nil
}

func (r ruleRepo) Save(ctx context.Context, rule domainpricing.Rule) error {
	st, err := r.u.write()
	if err != nil {
		return err
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	rule.StartDate = daterange.Day(rule.StartDate)
	rule.EndDate = daterange.Day(rule.EndDate)
	st.rules[rule.ID] = rule
	return nil
}
