package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
)

type ruleRepo struct{ u *Unit }

const ruleColumns = `id, listing_id, type, start_date, end_date, condition, adjustment_type, adjustment_value,
	min_stay, max_stay, priority, active`

func (r ruleRepo) ActiveRules(ctx context.Context, id domainlistings.ListingID, from, to time.Time) ([]domainpricing.Rule, error) {
	rows, err := r.u.query(ctx, `SELECT `+ruleColumns+` FROM price_rules
		WHERE listing_id = ? AND active = ? AND start_date <= ? AND end_date >= ?
		ORDER BY priority DESC, id ASC`,
		string(id), true, daterange.FormatDate(daterange.Day(to)), daterange.FormatDate(daterange.Day(from)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domainpricing.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r ruleRepo) ByID(ctx context.Context, id string) (domainpricing.Rule, error) {
	row := r.u.queryRow(ctx, `SELECT `+ruleColumns+` FROM price_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domainpricing.Rule{}, domainpricing.ErrRuleNotFound
	}
	return rule, err
}

func (r ruleRepo) Save(ctx context.Context, rule domainpricing.Rule) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	cond, err := json.Marshal(rule.Condition)
	if err != nil {
		return err
	}
	_, err = r.u.exec(ctx, `INSERT INTO price_rules (`+ruleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET type = excluded.type, start_date = excluded.start_date,
			end_date = excluded.end_date, condition = excluded.condition, adjustment_type = excluded.adjustment_type,
			adjustment_value = excluded.adjustment_value, min_stay = excluded.min_stay, max_stay = excluded.max_stay,
			priority = excluded.priority, active = excluded.active`,
		rule.ID, string(rule.ListingID), string(rule.Type),
		daterange.FormatDate(daterange.Day(rule.StartDate)), daterange.FormatDate(daterange.Day(rule.EndDate)),
		string(cond), string(rule.AdjustmentType), rule.AdjustmentValue,
		rule.MinStay, rule.MaxStay, rule.Priority, rule.Active)
	return err
}

func scanRule(row rowScanner) (domainpricing.Rule, error) {
	var (
		rule                  domainpricing.Rule
		listingID, ruleType   string
		start, end, condition string
		adjustment            string
	)
	if err := row.Scan(&rule.ID, &listingID, &ruleType, &start, &end, &condition, &adjustment,
		&rule.AdjustmentValue, &rule.MinStay, &rule.MaxStay, &rule.Priority, &rule.Active); err != nil {
		return domainpricing.Rule{}, err
	}
	var err error
	if rule.StartDate, err = daterange.ParseDate(start); err != nil {
		return domainpricing.Rule{}, err
	}
	if rule.EndDate, err = daterange.ParseDate(end); err != nil {
		return domainpricing.Rule{}, err
	}
	if condition != "" {
		if err := json.Unmarshal([]byte(condition), &rule.Condition); err != nil {
			return domainpricing.Rule{}, err
		}
	}
	rule.ListingID = domainlistings.ListingID(listingID)
	rule.Type = domainpricing.RuleType(ruleType)
	rule.AdjustmentType = domainpricing.AdjustmentType(adjustment)
	return rule, nil
}
