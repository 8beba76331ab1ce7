package engine

import "github.com/clanevents/bingosim/internal/snapshot"

// SelectGroupBand returns the time/probability multipliers of the band whose
// inclusive [min,max] range contains the group size, or (1, 1) when no band
// matches. Bands are mutually exclusive by convention; the first match wins.
func SelectGroupBand(bands []snapshot.GroupSizeBand, groupSize int) (timeMult, probMult float64) {
	for _, b := range bands {
		if groupSize >= b.MinSize && groupSize <= b.MaxSize {
			return b.TimeMultiplier, b.ProbabilityMultiplier
		}
	}
	return 1.0, 1.0
}

// CombinedMultipliers multiplies together every modifier on the rule whose
// capability the caller holds. A nil multiplier contributes nothing on that
// axis only; a nil rule or no applicable modifiers yields (1, 1).
func CombinedMultipliers(rule *snapshot.TileActivityRule, capabilities map[string]bool) (timeMult, probMult float64) {
	timeMult, probMult = 1.0, 1.0
	if rule == nil {
		return
	}
	for _, m := range rule.Modifiers {
		if !capabilities[m.Capability] {
			continue
		}
		if m.TimeMultiplier != nil {
			timeMult *= *m.TimeMultiplier
		}
		if m.ProbabilityMultiplier != nil {
			probMult *= *m.ProbabilityMultiplier
		}
	}
	return
}

// CombinedTimeMultiplier is the time axis of CombinedMultipliers.
func CombinedTimeMultiplier(rule *snapshot.TileActivityRule, capabilities map[string]bool) float64 {
	t, _ := CombinedMultipliers(rule, capabilities)
	return t
}

// CombinedProbabilityMultiplier is the probability axis of CombinedMultipliers.
func CombinedProbabilityMultiplier(rule *snapshot.TileActivityRule, capabilities map[string]bool) float64 {
	_, p := CombinedMultipliers(rule, capabilities)
	return p
}

// EffectiveMultipliers stacks group scaling and capability modifiers. The two
// sources multiply independently per axis; stacking is commutative.
func EffectiveMultipliers(bands []snapshot.GroupSizeBand, groupSize int, rule *snapshot.TileActivityRule, capabilities map[string]bool) (timeMult, probMult float64) {
	bt, bp := SelectGroupBand(bands, groupSize)
	mt, mp := CombinedMultipliers(rule, capabilities)
	return bt * mt, bp * mp
}

// WeightedOutcome is an outcome with its effective sampling weight after
// probability reweighting.
type WeightedOutcome struct {
	Outcome *snapshot.Outcome
	Weight  float64
}

// ApplyProbabilityMultiplier reweights outcomes before sampling: any outcome
// granting at least one accepted drop key has its weight multiplied, so a
// capability or group bonus shifts probability mass toward the outcomes
// relevant to the targeted tile without altering the odds among the rest.
func ApplyProbabilityMultiplier(outcomes []snapshot.Outcome, acceptedDropKeys []string, multiplier float64) []WeightedOutcome {
	accepted := make(map[string]bool, len(acceptedDropKeys))
	for _, k := range acceptedDropKeys {
		accepted[k] = true
	}

	weighted := make([]WeightedOutcome, 0, len(outcomes))
	for i := range outcomes {
		out := &outcomes[i]
		w := 0.0
		if out.WeightDenominator != 0 {
			w = float64(out.WeightNumerator) / float64(out.WeightDenominator)
		}
		for _, g := range out.Grants {
			if accepted[g.DropKey] {
				w *= multiplier
				break
			}
		}
		weighted = append(weighted, WeightedOutcome{Outcome: out, Weight: w})
	}
	return weighted
}
