package pricing

import "time"

const EventRuleSaved = "pricing.rule_saved"

// RuleSaved is raised whenever a rule is created or replaced.
type RuleSaved struct {
	RuleID    string
	ListingID string
	Type      RuleType
	Active    bool
	At        time.Time
}

func (e RuleSaved) EventName() string     { return EventRuleSaved }
func (e RuleSaved) AggregateID() string   { return e.ListingID }
func (e RuleSaved) OccurredAt() time.Time { return e.At }
