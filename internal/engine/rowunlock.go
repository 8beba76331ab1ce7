package engine

// UnlockedRows maps per-row completed points to the set of unlocked row
// indices. Row 0 is always unlocked; row i+1 unlocks once the completed-tile
// points on row i reach the threshold. Cheap enough to recompute on every
// tile completion.
func UnlockedRows(threshold int, completedPointsByRow map[int]int, rowCount int) map[int]bool {
	unlocked := make(map[int]bool, rowCount)
	if rowCount == 0 {
		return unlocked
	}
	unlocked[0] = true
	for i := 0; i+1 < rowCount; i++ {
		if !unlocked[i] {
			break
		}
		if completedPointsByRow[i] >= threshold {
			unlocked[i+1] = true
		}
	}
	return unlocked
}
