package strategy

import "github.com/clanevents/bingosim/internal/snapshot"

// rowUnlocking works the furthest unlocked row toward its unlock threshold:
// it searches tile-subset combinations meeting the threshold, picks the one
// with the lowest total estimated time, and targets the highest-point
// eligible tile inside it. Combination lists are cached per row and
// invalidated by the runner when unlock/completion state changes.
type rowUnlocking struct {
	combos map[int][]Combination
}

func newRowUnlocking() *rowUnlocking {
	return &rowUnlocking{combos: make(map[int][]Combination)}
}

func (s *rowUnlocking) InvalidateRowCache(rowIndex int) {
	delete(s.combos, rowIndex)
}

func (s *rowUnlocking) InvalidateAllCaches() {
	s.combos = make(map[int][]Combination)
}

func (s *rowUnlocking) SelectTaskForPlayer(c *TaskContext) (Task, bool) {
	far := maxUnlockedRow(c.Unlocked, len(c.Snap.Rows))

	if combo, ok := s.bestCombination(c, far); ok {
		if tile, ok := highestPointEligible(c, combo.TileKeys); ok {
			return taskFor(c, tile)
		}
	}

	// Fallback: highest-point eligible tile on the furthest row.
	if tile, ok := bestTileOnRow(c, far); ok {
		return taskFor(c, tile)
	}

	// Last resort: scan every unlocked row, ties toward the furthest row.
	return bestTileAllRows(c, true)
}

// bestCombination returns the cached (or freshly computed) combination with
// the lowest total estimated completion time, ties broken by lexicographic
// tile-key ordering.
func (s *rowUnlocking) bestCombination(c *TaskContext, row int) (Combination, bool) {
	combos, ok := s.combos[row]
	if !ok {
		combos = combinationsForRow(&c.View, row)
		s.combos[row] = combos
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

// combinationsForRow enumerates incomplete-tile subsets of the row meeting
// the remaining unlock threshold, enriched with estimated completion times.
func combinationsForRow(v *View, row int) []Combination {
	if row < 0 || row >= len(v.Snap.Rows) {
		return nil
	}
	threshold := v.Snap.UnlockPointsPerRow - v.RowPoints[row]
	if threshold <= 0 {
		return nil
	}

	points := make(map[string]int)
	for ti := range v.Snap.Rows[row].Tiles {
		tile := &v.Snap.Rows[row].Tiles[ti]
		if !v.Completed[tile.Key] {
			points[tile.Key] = tile.Points
		}
	}

	combos := Combinations(points, threshold)
	for i := range combos {
		est := 0.0
		for _, key := range combos[i].TileKeys {
			_, tile, ok := tileAt(v.Snap, key)
			if ok {
				est += EstimateTileSeconds(v.Snap, tile, v.Remaining(tile))
			}
		}
		combos[i].EstimatedSeconds = est
	}
	return combos
}

// highestPointEligible picks the highest-point tile among keys the player
// can work, ties broken by tile key.
func highestPointEligible(c *TaskContext, keys []string) (*snapshot.Tile, bool) {
	var best *snapshot.Tile
	for _, key := range keys {
		_, tile, ok := tileAt(c.Snap, key)
		if !ok || c.Completed[tile.Key] {
			continue
		}
		if _, usable := bestRuleForTile(c, tile); !usable {
			continue
		}
		if best == nil || tile.Points > best.Points ||
			(tile.Points == best.Points && tile.Key < best.Key) {
			best = tile
		}
	}
	return best, best != nil
}

func bestTileOnRow(c *TaskContext, row int) (*snapshot.Tile, bool) {
	var best *snapshot.Tile
	for _, cand := range eligibleCandidates(c) {
		if cand.row != row {
			continue
		}
		if best != nil && cand.tile.Key == best.Key {
			continue
		}
		if best == nil || cand.tile.Points > best.Points ||
			(cand.tile.Points == best.Points && cand.tile.Key < best.Key) {
			best = cand.tile
		}
	}
	return best, best != nil
}

// bestTileAllRows scans every unlocked row for the highest-point eligible
// tile. On a points tie, preferFurthest picks the higher row index
// (rowUnlocking); otherwise the lower one (comboUnlocking). The asymmetry is
// intentional, policy-specific behavior.
func bestTileAllRows(c *TaskContext, preferFurthest bool) (Task, bool) {
	var best *snapshot.Tile
	bestRow := 0
	for _, cand := range eligibleCandidates(c) {
		if best != nil && cand.tile.Key == best.Key {
			continue
		}
		better := false
		switch {
		case best == nil:
			better = true
		case cand.tile.Points != best.Points:
			better = cand.tile.Points > best.Points
		case cand.row != bestRow:
			if preferFurthest {
				better = cand.row > bestRow
			} else {
				better = cand.row < bestRow
			}
		default:
			better = cand.tile.Key < best.Key
		}
		if better {
			best = cand.tile
			bestRow = cand.row
		}
	}
	if best == nil {
		return Task{}, false
	}
	return taskFor(c, best)
}

func (s *rowUnlocking) SelectTargetTileForGrant(c *GrantContext) (string, bool) {
	return rowUnlockingGrant(c)
}

// rowUnlockingGrant prefers the highest-point candidate on the furthest
// unlocked row, then the highest-point candidate anywhere (row ascending,
// then tile key, on ties).
func rowUnlockingGrant(c *GrantContext) (string, bool) {
	far := maxUnlockedRow(c.Unlocked, len(c.Snap.Rows))

	bestKey := ""
	bestPoints := 0
	for _, key := range c.Candidates {
		row, tile, ok := tileAt(c.Snap, key)
		if !ok || row != far {
			continue
		}
		if bestKey == "" || tile.Points > bestPoints ||
			(tile.Points == bestPoints && key < bestKey) {
			bestKey = key
			bestPoints = tile.Points
		}
	}
	if bestKey != "" {
		return bestKey, true
	}

	bestRow := 0
	for _, key := range c.Candidates {
		row, tile, ok := tileAt(c.Snap, key)
		if !ok {
			continue
		}
		better := false
		switch {
		case bestKey == "":
			better = true
		case tile.Points != bestPoints:
			better = tile.Points > bestPoints
		case row != bestRow:
			better = row < bestRow
		default:
			better = key < bestKey
		}
		if better {
			bestKey = key
			bestPoints = tile.Points
			bestRow = row
		}
	}
	return bestKey, bestKey != ""
}
