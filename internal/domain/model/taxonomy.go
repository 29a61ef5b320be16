// Package model contains domain models passed between layers.
package model

// EventType names an action reported for a corner.
type EventType string

// Strikes.
const (
	EventJab               EventType = "jab"
	EventCross             EventType = "cross"
	EventHook              EventType = "hook"
	EventUppercut          EventType = "uppercut"
	EventBodyKick          EventType = "body_kick"
	EventLegKick           EventType = "leg_kick"
	EventSignificantStrike EventType = "significant_strike"
	EventHeadKick          EventType = "head_kick"
	EventElbow             EventType = "elbow"
	EventKnee              EventType = "knee"
)

// Damage, momentum, grappling and defense.
const (
	EventKnockdown         EventType = "knockdown"
	EventRocked            EventType = "rocked"
	EventMomentumSwing     EventType = "momentum_swing"
	EventControl           EventType = "control"
	EventControlStart      EventType = "control_start"
	EventControlEnd        EventType = "control_end"
	EventSubmissionAttempt EventType = "submission_attempt"
	EventTakedownLanded    EventType = "takedown_landed"
	EventTakedownDefended  EventType = "takedown_defended"
)

// Category is one of the four scoring categories.
type Category string

const (
	CategoryDamage     Category = "damage"
	CategoryControl    Category = "control"
	CategoryAggression Category = "aggression"
	CategoryDefense    Category = "defense"
)

// Categories lists every category in a stable order.
var Categories = []Category{CategoryDamage, CategoryControl, CategoryAggression, CategoryDefense}

var categoryOf = map[EventType]Category{
	EventJab:               CategoryAggression,
	EventCross:             CategoryAggression,
	EventHook:              CategoryAggression,
	EventUppercut:          CategoryAggression,
	EventBodyKick:          CategoryAggression,
	EventLegKick:           CategoryAggression,
	EventSignificantStrike: CategoryAggression,
	EventMomentumSwing:     CategoryAggression,
	EventHeadKick:          CategoryDamage,
	EventElbow:             CategoryDamage,
	EventKnee:              CategoryDamage,
	EventKnockdown:         CategoryDamage,
	EventRocked:            CategoryDamage,
	EventControl:           CategoryControl,
	EventControlStart:      CategoryControl,
	EventControlEnd:        CategoryControl,
	EventSubmissionAttempt: CategoryControl,
	EventTakedownLanded:    CategoryControl,
	EventTakedownDefended:  CategoryDefense,
}

// CategoryOf maps an event type to its scoring category. Unknown types count as aggression.
func CategoryOf(t EventType) Category {
	if c, ok := categoryOf[t]; ok {
		return c
	}
	return CategoryAggression
}

var offensive = map[EventType]struct{}{
	EventJab:               {},
	EventCross:             {},
	EventHook:              {},
	EventUppercut:          {},
	EventBodyKick:          {},
	EventLegKick:           {},
	EventSignificantStrike: {},
	EventHeadKick:          {},
	EventElbow:             {},
	EventKnee:              {},
	EventSubmissionAttempt: {},
}

// IsOffensive reports whether t counts as work for the control work requirement.
func IsOffensive(t EventType) bool {
	_, ok := offensive[t]
	return ok
}
