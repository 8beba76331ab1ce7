package strategy

import (
	"math"

	"github.com/clanevents/bingosim/internal/snapshot"
)

// EstimateTileSeconds estimates how long a tile takes to finish: for every
// rule, the remaining requirement divided by the expected progress per
// activity cycle, times the activity's slowest baseline attempt. The fastest
// viable rule wins; +Inf means no rule can ever progress the tile.
func EstimateTileSeconds(snap *snapshot.EventSnapshot, tile *snapshot.Tile, remaining int) float64 {
	best := math.Inf(1)
	for ai := range tile.AllowedActivities {
		est := estimateRuleSeconds(snap, &tile.AllowedActivities[ai], remaining)
		if est < best {
			best = est
		}
	}
	return best
}

func estimateRuleSeconds(snap *snapshot.EventSnapshot, rule *snapshot.TileActivityRule, remaining int) float64 {
	act, ok := snap.ActivitiesByID[rule.ActivityID]
	if !ok || len(act.Attempts) == 0 {
		return math.Inf(1)
	}

	rate := 0.0
	slowest := 0.0
	for _, att := range act.Attempts {
		if att.BaselineSeconds > slowest {
			slowest = att.BaselineSeconds
		}
		rate += expectedUnitsPerRoll(&att, rule)
	}
	if rate <= 0 || slowest <= 0 {
		return math.Inf(1)
	}
	return float64(remaining) / rate * slowest
}

// expectedUnitsPerRoll is the mean units an attempt grants toward drop keys
// the rule accepts, weighting each outcome by its normalized probability.
func expectedUnitsPerRoll(att *snapshot.Attempt, rule *snapshot.TileActivityRule) float64 {
	total := 0.0
	for _, out := range att.Outcomes {
		if out.WeightDenominator != 0 {
			total += float64(out.WeightNumerator) / float64(out.WeightDenominator)
		}
	}
	if total <= 0 {
		return 0
	}

	expected := 0.0
	for _, out := range att.Outcomes {
		if out.WeightDenominator == 0 {
			continue
		}
		p := float64(out.WeightNumerator) / float64(out.WeightDenominator) / total
		units := 0.0
		for _, g := range out.Grants {
			if !rule.AcceptsDropKey(g.DropKey) {
				continue
			}
			if g.Units != nil {
				units += float64(*g.Units)
			} else {
				units += float64(g.UnitsMin+g.UnitsMax) / 2
			}
		}
		expected += p * units
	}
	return expected
}
