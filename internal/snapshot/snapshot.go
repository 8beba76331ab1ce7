// Package snapshot defines the immutable input model for one simulation run.
// It has no dependencies beyond the standard library.
package snapshot

import "time"

// RollScope says whether an attempt resolves once per participating player
// or once per formed group.
type RollScope int

const (
	RollPerPlayer RollScope = 0
	RollPerGroup  RollScope = 1
)

// EventSnapshot is the root input to the engine. It is never mutated after
// validation; run-scoped progress lives in the engine, not here.
type EventSnapshot struct {
	Name               string              `json:"name"`
	DurationSeconds    int64               `json:"durationSeconds"`
	UnlockPointsPerRow int                 `json:"unlockPointsRequiredPerRow"`
	StartsAt           string              `json:"startsAt"`
	Rows               []Row               `json:"rows"`
	ActivitiesByID     map[string]Activity `json:"activitiesById"`
	Teams              []TeamSnapshot      `json:"teams"`
}

// StartTime parses the event start instant (ISO-8601 with offset).
func (s *EventSnapshot) StartTime() (time.Time, error) {
	return time.Parse(time.RFC3339, s.StartsAt)
}

type Row struct {
	Index int    `json:"index"`
	Tiles []Tile `json:"tiles"`
}

type Tile struct {
	Key               string             `json:"key"`
	Name              string             `json:"name"`
	Points            int                `json:"points"`
	RequiredCount     int                `json:"requiredCount"`
	AllowedActivities []TileActivityRule `json:"allowedActivities"`
}

// TileActivityRule is one way of progressing a tile: an activity whose
// drops (matching DropKeys) count toward the tile, gated by the
// capabilities a player must hold to use it.
type TileActivityRule struct {
	ActivityID           string                 `json:"activityId"`
	ActivityKey          string                 `json:"activityKey"`
	DropKeys             []string               `json:"dropKeys"`
	RequiredCapabilities []string               `json:"requiredCapabilities"`
	Modifiers            []ActivityModifierRule `json:"modifiers"`
}

// AcceptsDropKey reports whether the rule counts drops with the given key.
func (r *TileActivityRule) AcceptsDropKey(key string) bool {
	for _, k := range r.DropKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ActivityModifierRule adjusts time and/or probability for players holding
// the capability. A nil multiplier means no effect on that axis.
type ActivityModifierRule struct {
	Capability            string   `json:"capability"`
	TimeMultiplier        *float64 `json:"timeMultiplier"`
	ProbabilityMultiplier *float64 `json:"probabilityMultiplier"`
}

type Activity struct {
	Key               string          `json:"key"`
	Attempts          []Attempt       `json:"attempts"`
	GroupScalingBands []GroupSizeBand `json:"groupScalingBands"`
	ModeSupport       *ModeSupport    `json:"modeSupport"`
}

type Attempt struct {
	Key             string    `json:"key"`
	RollScope       RollScope `json:"rollScope"`
	BaselineSeconds float64   `json:"baselineSeconds"`
	VarianceSeconds float64   `json:"varianceSeconds"`
	Outcomes        []Outcome `json:"outcomes"`
}

// Outcome is one weighted result of an attempt. Weights are rational so
// snapshots can express exact odds like 1/128.
type Outcome struct {
	WeightNumerator   int             `json:"weightNumerator"`
	WeightDenominator int             `json:"weightDenominator"`
	Grants            []ProgressGrant `json:"grants"`
}

// ProgressGrant awards units of a drop key. Units is the fixed amount; when
// nil, an amount is sampled uniformly from [UnitsMin, UnitsMax] per grant.
type ProgressGrant struct {
	DropKey  string `json:"dropKey"`
	Units    *int   `json:"units"`
	UnitsMin int    `json:"unitsMin"`
	UnitsMax int    `json:"unitsMax"`
}

// GroupSizeBand applies multipliers to groups whose size falls in
// [MinSize, MaxSize]. Bands are mutually exclusive by convention.
type GroupSizeBand struct {
	MinSize               int     `json:"minSize"`
	MaxSize               int     `json:"maxSize"`
	TimeMultiplier        float64 `json:"timeMultiplier"`
	ProbabilityMultiplier float64 `json:"probabilityMultiplier"`
}

type ModeSupport struct {
	SupportsSolo  bool `json:"supportsSolo"`
	SupportsGroup bool `json:"supportsGroup"`
	MinGroupSize  *int `json:"minGroupSize"`
	MaxGroupSize  *int `json:"maxGroupSize"`
}

type TeamSnapshot struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Strategy       string             `json:"strategy"`
	StrategyParams map[string]float64 `json:"strategyParams,omitempty"`
	Players        []PlayerSnapshot   `json:"players"`
}

type PlayerSnapshot struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SkillMultiplier float64         `json:"skillMultiplier"`
	Capabilities    []string        `json:"capabilities"`
	Schedule        *WeeklySchedule `json:"schedule"`
}

// CapabilitySet returns the player's capabilities as a lookup set.
func (p *PlayerSnapshot) CapabilitySet() map[string]bool {
	set := make(map[string]bool, len(p.Capabilities))
	for _, c := range p.Capabilities {
		set[c] = true
	}
	return set
}

// WeeklySchedule is a recurring 7-day availability pattern. An empty
// session list means the player is always online.
type WeeklySchedule struct {
	Sessions []ScheduledSession `json:"sessions"`
}

// ScheduledSession is a recurring weekly online window. DayOfWeek is 0–6
// starting Sunday; sessions may span midnight into the next day.
type ScheduledSession struct {
	DayOfWeek        int `json:"dayOfWeek"`
	StartMinuteOfDay int `json:"startMinuteOfDay"`
	DurationMinutes  int `json:"durationMinutes"`
}
