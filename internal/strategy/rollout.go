package strategy

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/clanevents/bingosim/internal/snapshot"
)

// rollout scores each candidate task with short stochastic forward
// playouts and picks the candidate with the best observed unlock
// probability, then time-to-unlock, then points gained. Every playout runs
// on a private clone of the mutable board state with a private RNG seeded
// from (candidateKey, playoutIndex), so playouts may run in parallel and
// the chosen action stays deterministic for the same inputs.
type rollout struct {
	playouts int
	steps    int
	workers  int
}

func newRollout(params map[string]float64) *rollout {
	r := &rollout{playouts: 16, steps: 32, workers: 4}
	if v, ok := params["rollouts"]; ok && v >= 1 {
		r.playouts = int(v)
	}
	if v, ok := params["steps"]; ok && v >= 1 {
		r.steps = int(v)
	}
	if v, ok := params["workers"]; ok && v >= 1 {
		r.workers = int(v)
	}
	return r
}

func (s *rollout) InvalidateRowCache(int) {}
func (s *rollout) InvalidateAllCaches()   {}

type rolloutScore struct {
	unlockProb   float64
	timeToUnlock float64
	points       float64
}

func (s *rollout) SelectTaskForPlayer(c *TaskContext) (Task, bool) {
	cands := eligibleCandidates(c)
	if len(cands) == 0 {
		return Task{}, false
	}

	// One candidate per tile, board order already deterministic.
	seen := make(map[string]bool)
	var tiles []*snapshot.Tile
	for _, cand := range cands {
		if !seen[cand.tile.Key] {
			seen[cand.tile.Key] = true
			tiles = append(tiles, cand.tile)
		}
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Key < tiles[j].Key })

	var best *snapshot.Tile
	var bestScore rolloutScore
	for _, tile := range tiles {
		score := s.scoreCandidate(c, tile)
		if best == nil || betterRolloutScore(score, bestScore) {
			best = tile
			bestScore = score
		}
	}
	return taskFor(c, best)
}

func betterRolloutScore(a, b rolloutScore) bool {
	if a.unlockProb != b.unlockProb {
		return a.unlockProb > b.unlockProb
	}
	if a.timeToUnlock != b.timeToUnlock {
		return a.timeToUnlock < b.timeToUnlock
	}
	return a.points > b.points
}

func (s *rollout) scoreCandidate(c *TaskContext, tile *snapshot.Tile) rolloutScore {
	results := make([]playoutResult, s.playouts)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := 0; i < s.playouts; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(playoutSeed(tile.Key, i)))
			results[i] = s.playout(c, tile, rng)
			return nil
		})
	}
	g.Wait()

	score := rolloutScore{}
	unlocks := 0
	timeSum := 0.0
	for _, res := range results {
		if res.unlocked {
			unlocks++
			timeSum += res.timeToUnlock
		}
		score.points += res.points
	}
	score.unlockProb = float64(unlocks) / float64(s.playouts)
	if unlocks > 0 {
		score.timeToUnlock = timeSum / float64(unlocks)
	} else {
		score.timeToUnlock = math.Inf(1)
	}
	score.points /= float64(s.playouts)
	return score
}

func playoutSeed(candidateKey string, index int) int64 {
	h := fnv.New64a()
	h.Write([]byte(candidateKey))
	h.Write([]byte{':', byte(index), byte(index >> 8), byte(index >> 16), byte(index >> 24)})
	return int64(h.Sum64())
}

type playoutResult struct {
	unlocked     bool
	timeToUnlock float64
	points       float64
}

// playoutState is a deep copy of the mutable board state. Immutable
// structures (the snapshot itself) are shared by reference.
type playoutState struct {
	progress  map[string]int
	completed map[string]bool
	unlocked  map[int]bool
	rowPoints map[int]int
}

func clonePlayoutState(v *View) *playoutState {
	st := &playoutState{
		progress:  make(map[string]int, len(v.Progress)),
		completed: make(map[string]bool, len(v.Completed)),
		unlocked:  make(map[int]bool, len(v.Unlocked)),
		rowPoints: make(map[int]int, len(v.RowPoints)),
	}
	for k, n := range v.Progress {
		st.progress[k] = n
	}
	for k := range v.Completed {
		st.completed[k] = true
	}
	for r := range v.Unlocked {
		st.unlocked[r] = true
	}
	for r, p := range v.RowPoints {
		st.rowPoints[r] = p
	}
	return st
}

// playout simulates up to s.steps activity cycles, working the candidate
// tile first and then whatever the greedy ranking favors, sampling outcomes
// with the playout's private RNG.
func (s *rollout) playout(c *TaskContext, first *snapshot.Tile, rng *rand.Rand) playoutResult {
	st := clonePlayoutState(&c.View)
	baseUnlocked := len(st.unlocked)

	res := playoutResult{}
	elapsed := 0.0

	for step := 0; step < s.steps; step++ {
		tile := first
		if st.completed[tile.Key] {
			tile = s.nextPlayoutTile(c, st)
			if tile == nil {
				break
			}
		}
		rule, ok := playoutRule(c, tile)
		if !ok {
			break
		}
		act := c.Snap.ActivitiesByID[rule.ActivityID]

		slowest := 0.0
		gained := 0
		for ai := range act.Attempts {
			att := &act.Attempts[ai]
			if att.BaselineSeconds > slowest {
				slowest = att.BaselineSeconds
			}
			gained += sampleAcceptedUnits(att, rule, rng)
		}
		elapsed += slowest

		if gained > 0 {
			st.progress[tile.Key] += gained
			if st.progress[tile.Key] >= tile.RequiredCount && !st.completed[tile.Key] {
				st.completed[tile.Key] = true
				row, _, _ := tileAt(c.Snap, tile.Key)
				st.rowPoints[row] += tile.Points
				res.points += float64(tile.Points)
				recomputePlayoutUnlocks(c.Snap, st)
				if len(st.unlocked) > baseUnlocked && !res.unlocked {
					res.unlocked = true
					res.timeToUnlock = elapsed
				}
			}
		}
	}
	return res
}

func (s *rollout) nextPlayoutTile(c *TaskContext, st *playoutState) *snapshot.Tile {
	var best *snapshot.Tile
	for ri := range c.Snap.Rows {
		if !st.unlocked[ri] {
			continue
		}
		for ti := range c.Snap.Rows[ri].Tiles {
			tile := &c.Snap.Rows[ri].Tiles[ti]
			if st.completed[tile.Key] {
				continue
			}
			if _, ok := playoutRule(c, tile); !ok {
				continue
			}
			if best == nil || tile.Points > best.Points ||
				(tile.Points == best.Points && tile.Key < best.Key) {
				best = tile
			}
		}
	}
	return best
}

func playoutRule(c *TaskContext, tile *snapshot.Tile) (*snapshot.TileActivityRule, bool) {
	for ai := range tile.AllowedActivities {
		rule := &tile.AllowedActivities[ai]
		if ruleUsable(c.Snap, rule, c.Capabilities) {
			return rule, true
		}
	}
	return nil, false
}

// sampleAcceptedUnits rolls one outcome for the attempt and sums the units
// of grants whose drop key the rule accepts.
func sampleAcceptedUnits(att *snapshot.Attempt, rule *snapshot.TileActivityRule, rng *rand.Rand) int {
	total := 0.0
	for _, out := range att.Outcomes {
		if out.WeightDenominator != 0 {
			total += float64(out.WeightNumerator) / float64(out.WeightDenominator)
		}
	}
	if total <= 0 {
		return 0
	}

	roll := rng.Float64() * total
	acc := 0.0
	for _, out := range att.Outcomes {
		if out.WeightDenominator == 0 {
			continue
		}
		acc += float64(out.WeightNumerator) / float64(out.WeightDenominator)
		if roll < acc {
			units := 0
			for _, grant := range out.Grants {
				if !rule.AcceptsDropKey(grant.DropKey) {
					continue
				}
				if grant.Units != nil {
					units += *grant.Units
				} else if grant.UnitsMax >= grant.UnitsMin {
					units += grant.UnitsMin + rng.Intn(grant.UnitsMax-grant.UnitsMin+1)
				}
			}
			return units
		}
	}
	return 0
}

func recomputePlayoutUnlocks(snap *snapshot.EventSnapshot, st *playoutState) {
	st.unlocked[0] = true
	for i := 0; i+1 < len(snap.Rows); i++ {
		if !st.unlocked[i] {
			break
		}
		if st.rowPoints[i] >= snap.UnlockPointsPerRow {
			st.unlocked[i+1] = true
		}
	}
}

func (s *rollout) SelectTargetTileForGrant(c *GrantContext) (string, bool) {
	return greedy{}.SelectTargetTileForGrant(c)
}
