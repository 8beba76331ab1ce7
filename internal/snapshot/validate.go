package snapshot

import (
	"fmt"
	"time"
)

// ValidationError reports the first structural defect found in a snapshot.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Validate fails fast on structural defects so the simulation loop never has
// to null-check. It runs once at ingestion; the engine assumes a validated
// snapshot and never re-checks.
func Validate(s *EventSnapshot) error {
	if s.StartsAt == "" {
		return invalid("startsAt", "event start instant is required")
	}
	if _, err := time.Parse(time.RFC3339, s.StartsAt); err != nil {
		return invalid("startsAt", "unparseable instant %q: %v", s.StartsAt, err)
	}
	if s.DurationSeconds <= 0 {
		return invalid("durationSeconds", "must be positive, got %d", s.DurationSeconds)
	}

	for ri, row := range s.Rows {
		if row.Index != ri {
			return invalid(fmt.Sprintf("rows[%d].index", ri), "expected contiguous 0-based index %d, got %d", ri, row.Index)
		}
		for ti, tile := range row.Tiles {
			field := fmt.Sprintf("rows[%d].tiles[%d]", ri, ti)
			if tile.Key == "" {
				return invalid(field+".key", "tile key is required")
			}
			if tile.Points <= 0 {
				return invalid(field+".points", "must be positive, got %d", tile.Points)
			}
			if tile.RequiredCount <= 0 {
				return invalid(field+".requiredCount", "must be positive, got %d", tile.RequiredCount)
			}
			for ai, rule := range tile.AllowedActivities {
				rf := fmt.Sprintf("%s.allowedActivities[%d]", field, ai)
				if _, ok := s.ActivitiesByID[rule.ActivityID]; !ok {
					return invalid(rf+".activityId", "unknown activity %q", rule.ActivityID)
				}
				if rule.Modifiers == nil {
					return invalid(rf+".modifiers", "modifier list must be present (may be empty)")
				}
			}
		}
	}

	for id, act := range s.ActivitiesByID {
		if act.ModeSupport == nil {
			return invalid(fmt.Sprintf("activitiesById[%s].modeSupport", id), "mode support is required")
		}
	}

	for ti, team := range s.Teams {
		tf := fmt.Sprintf("teams[%d]", ti)
		if team.Strategy == "" {
			return invalid(tf+".strategy", "strategy key is required")
		}
		for pi, p := range team.Players {
			pf := fmt.Sprintf("%s.players[%d]", tf, pi)
			if p.Schedule == nil {
				return invalid(pf+".schedule", "schedule is required (empty sessions means always online)")
			}
			if p.SkillMultiplier <= 0 {
				return invalid(pf+".skillMultiplier", "must be positive, got %v", p.SkillMultiplier)
			}
		}
	}

	return nil
}
