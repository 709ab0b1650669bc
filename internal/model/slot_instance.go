package model

import "time"

// SlotInstance is one concrete calendar-dated occurrence of an availability
// rule. Instances are derived on every query and never persisted, so they
// cannot go stale independently of the rule they come from.
type SlotInstance struct {
	RuleID  int64     `json:"rule_id"`
	TutorID int64     `json:"tutor_id"`
	Date    time.Time `json:"date"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}
