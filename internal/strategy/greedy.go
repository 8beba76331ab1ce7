package strategy

// greedy ranks by (points descending, estimated completion time ascending,
// tile key ascending) for both task selection and grant allocation. It
// ignores unlock state beyond filtering to unlocked rows.
type greedy struct{}

func (greedy) SelectTaskForPlayer(c *TaskContext) (Task, bool) {
	cands := eligibleCandidates(c)
	if len(cands) == 0 {
		return Task{}, false
	}

	best := cands[0]
	bestEst := EstimateTileSeconds(c.Snap, best.tile, c.Remaining(best.tile))
	for _, cand := range cands[1:] {
		if cand.tile.Key == best.tile.Key {
			continue
		}
		est := EstimateTileSeconds(c.Snap, cand.tile, c.Remaining(cand.tile))
		if greedyLess(cand.tile.Points, est, cand.tile.Key, best.tile.Points, bestEst, best.tile.Key) {
			best = cand
			bestEst = est
		}
	}
	return taskFor(c, best.tile)
}

func (greedy) SelectTargetTileForGrant(c *GrantContext) (string, bool) {
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

func (greedy) InvalidateRowCache(int) {}
func (greedy) InvalidateAllCaches()   {}

// greedyLess reports whether (points1, est1, key1) ranks ahead of
// (points2, est2, key2).
func greedyLess(points1 int, est1 float64, key1 string, points2 int, est2 float64, key2 string) bool {
	if points1 != points2 {
		return points1 > points2
	}
	if est1 != est2 {
		return est1 < est2
	}
	return key1 < key2
}
