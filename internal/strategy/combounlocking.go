package strategy

import "github.com/clanevents/bingosim/internal/snapshot"

// comboUnlocking runs in two phases. While rows remain locked it behaves
// like rowUnlocking but penalizes combinations that compete with locked
// tiles for the same activities. Once every row is unlocked it chases a
// virtual score rewarding tiles whose activities also feed other incomplete
// tiles.
type comboUnlocking struct {
	penalized map[int][]Combination
}

func newComboUnlocking() *comboUnlocking {
	return &comboUnlocking{penalized: make(map[int][]Combination)}
}

func (s *comboUnlocking) InvalidateRowCache(rowIndex int) {
	delete(s.penalized, rowIndex)
}

func (s *comboUnlocking) InvalidateAllCaches() {
	s.penalized = make(map[int][]Combination)
}

func allRowsUnlocked(v *View) bool {
	for ri := range v.Snap.Rows {
		if !v.Unlocked[ri] {
			return false
		}
	}
	return true
}

func (s *comboUnlocking) SelectTaskForPlayer(c *TaskContext) (Task, bool) {
	if allRowsUnlocked(&c.View) {
		return s.selectByVirtualScore(c)
	}

	far := maxUnlockedRow(c.Unlocked, len(c.Snap.Rows))

	if combo, ok := s.bestPenalizedCombination(c, far); ok {
		if tile, ok := highestPointEligible(c, combo.TileKeys); ok {
			return taskFor(c, tile)
		}
	}

	if tile, ok := bestTileOnRow(c, far); ok {
		return taskFor(c, tile)
	}

	// All-rows fallback breaks points ties toward the earliest row, unlike
	// rowUnlocking. Intentional; do not unify.
	return bestTileAllRows(c, false)
}

// bestPenalizedCombination picks the combination minimizing estimated time
// scaled by (1 + locked tiles sharing an activity with it), discouraging
// activities still needed by not-yet-unlocked tiles.
func (s *comboUnlocking) bestPenalizedCombination(c *TaskContext, row int) (Combination, bool) {
	combos, ok := s.penalized[row]
	if !ok {
		combos = combinationsForRow(&c.View, row)
		for i := range combos {
			penalty := 1 + lockedTilesSharingActivity(&c.View, combos[i].TileKeys)
			combos[i].EstimatedSeconds *= float64(penalty)
		}
		s.penalized[row] = combos
	}

	best := Combination{}
	found := false
	for _, combo := range combos {
		if !found || combo.EstimatedSeconds < best.EstimatedSeconds ||
			(combo.EstimatedSeconds == best.EstimatedSeconds && lessKeyLists(combo.TileKeys, best.TileKeys)) {
			best = combo
			found = true
		}
	}
	return best, found
}

// lockedTilesSharingActivity counts tiles on locked rows that use any
// activity also used by the combination's tiles.
func lockedTilesSharingActivity(v *View, comboKeys []string) int {
	comboActivities := make(map[string]bool)
	for _, key := range comboKeys {
		_, tile, ok := tileAt(v.Snap, key)
		if !ok {
			continue
		}
		for _, rule := range tile.AllowedActivities {
			comboActivities[rule.ActivityID] = true
		}
	}

	count := 0
	for ri := range v.Snap.Rows {
		if v.Unlocked[ri] {
			continue
		}
		for ti := range v.Snap.Rows[ri].Tiles {
			tile := &v.Snap.Rows[ri].Tiles[ti]
			for _, rule := range tile.AllowedActivities {
				if comboActivities[rule.ActivityID] {
					count++
					break
				}
			}
		}
	}
	return count
}

// selectByVirtualScore ranks incomplete tiles by points plus the number of
// other incomplete tiles sharing an activity, ties broken by estimated time
// ascending then tile key.
func (s *comboUnlocking) selectByVirtualScore(c *TaskContext) (Task, bool) {
	var best *snapshot.Tile
	bestScore := 0
	bestEst := 0.0

	seen := make(map[string]bool)
	for _, cand := range eligibleCandidates(c) {
		if seen[cand.tile.Key] {
			continue
		}
		seen[cand.tile.Key] = true

		score := cand.tile.Points + incompleteTilesSharingActivity(&c.View, cand.tile)
		est := EstimateTileSeconds(c.Snap, cand.tile, c.Remaining(cand.tile))

		better := false
		switch {
		case best == nil:
			better = true
		case score != bestScore:
			better = score > bestScore
		case est != bestEst:
			better = est < bestEst
		default:
			better = cand.tile.Key < best.Key
		}
		if better {
			best = cand.tile
			bestScore = score
			bestEst = est
		}
	}
	if best == nil {
		return Task{}, false
	}
	return taskFor(c, best)
}

// incompleteTilesSharingActivity counts other incomplete tiles that accept
// progress from any activity this tile uses.
func incompleteTilesSharingActivity(v *View, tile *snapshot.Tile) int {
	activities := make(map[string]bool)
	for _, rule := range tile.AllowedActivities {
		activities[rule.ActivityID] = true
	}

	count := 0
	for ri := range v.Snap.Rows {
		for ti := range v.Snap.Rows[ri].Tiles {
			other := &v.Snap.Rows[ri].Tiles[ti]
			if other.Key == tile.Key || v.Completed[other.Key] {
				continue
			}
			for _, rule := range other.AllowedActivities {
				if activities[rule.ActivityID] {
					count++
					break
				}
			}
		}
	}
	return count
}

func (s *comboUnlocking) SelectTargetTileForGrant(c *GrantContext) (string, bool) {
	if !allRowsUnlocked(&c.View) {
		return rowUnlockingGrant(c)
	}

	// Phase 2: globally highest-point candidate, time then key on ties.
	bestKey := ""
	bestPoints := 0
	bestEst := 0.0
	for _, key := range c.Candidates {
		_, tile, ok := tileAt(c.Snap, key)
		if !ok {
			continue
		}
		est := EstimateTileSeconds(c.Snap, tile, c.Remaining(tile))
		if bestKey == "" || greedyLess(tile.Points, est, key, bestPoints, bestEst, bestKey) {
			bestKey = key
			bestPoints = tile.Points
			bestEst = est
		}
	}
	return bestKey, bestKey != ""
}
