package strategy

import "sort"

// maxCombinationTiles bounds the otherwise-exponential subset search. Rows
// are small in practice, but larger rows must stay correct, just truncated.
const maxCombinationTiles = 8

// Combination is a tile subset whose points meet an unlock threshold.
// EstimatedSeconds is filled in by callers that enrich combinations with
// per-tile completion estimates.
type Combination struct {
	TileKeys         []string
	TotalPoints      int
	EstimatedSeconds float64
}

type comboTile struct {
	key    string
	points int
}

// Combinations enumerates tile subsets reaching the threshold. Tiles are
// sorted ascending by (points, key) so enumeration order is deterministic.
// A combination is recorded the instant its running sum first reaches the
// threshold along the include branch, which keeps supersets of an
// already-valid combination out of the result.
func Combinations(tilePointsByKey map[string]int, threshold int) []Combination {
	tiles := make([]comboTile, 0, len(tilePointsByKey))
	for k, p := range tilePointsByKey {
		tiles = append(tiles, comboTile{key: k, points: p})
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].points != tiles[j].points {
			return tiles[i].points < tiles[j].points
		}
		return tiles[i].key < tiles[j].key
	})

	var result []Combination
	var chosen []comboTile

	var walk func(i, sum int)
	walk = func(i, sum int) {
		if i >= len(tiles) {
			return
		}

		// Include tiles[i].
		if len(chosen) < maxCombinationTiles {
			chosen = append(chosen, tiles[i])
			if sum+tiles[i].points >= threshold {
				keys := make([]string, len(chosen))
				for n, t := range chosen {
					keys[n] = t.key
				}
				result = append(result, Combination{TileKeys: keys, TotalPoints: sum + tiles[i].points})
			} else {
				walk(i+1, sum+tiles[i].points)
			}
			chosen = chosen[:len(chosen)-1]
		}

		// Skip tiles[i].
		walk(i+1, sum)
	}
	walk(0, 0)

	return result
}

// lessKeyLists compares key slices lexicographically, element by element.
func lessKeyLists(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
