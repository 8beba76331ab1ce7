package engine

import (
	"github.com/clanevents/bingosim/internal/snapshot"
	"github.com/clanevents/bingosim/internal/strategy"
)

// teamState is the run-scoped mutable state of one team, owned exclusively
// by the runner. The snapshot itself is never mutated.
type teamState struct {
	team  *snapshot.TeamSnapshot
	strat strategy.Strategy

	// Per-player capability sets, indexed like team.Players.
	caps []map[string]bool

	progress        map[string]int
	completed       map[string]bool
	unlocked        map[int]bool
	rowPoints       map[int]int
	rowUnlockedAt   map[int]float64
	tileCompletedAt map[string]float64

	points         int
	tilesCompleted int
	reachedRow     int

	// busy marks players with an attempt in flight, keyed by player ID.
	busy map[string]bool
}

func newTeamState(team *snapshot.TeamSnapshot) (*teamState, error) {
	strat, err := strategy.New(team.Strategy, team.StrategyParams)
	if err != nil {
		return nil, err
	}

	ts := &teamState{
		team:            team,
		strat:           strat,
		caps:            make([]map[string]bool, len(team.Players)),
		progress:        make(map[string]int),
		completed:       make(map[string]bool),
		unlocked:        map[int]bool{0: true},
		rowPoints:       make(map[int]int),
		rowUnlockedAt:   map[int]float64{0: 0},
		tileCompletedAt: make(map[string]float64),
		busy:            make(map[string]bool),
	}
	for i := range team.Players {
		ts.caps[i] = team.Players[i].CapabilitySet()
	}
	return ts, nil
}

func (ts *teamState) view(snap *snapshot.EventSnapshot) strategy.View {
	return strategy.View{
		Snap:      snap,
		Unlocked:  ts.unlocked,
		Completed: ts.completed,
		Progress:  ts.progress,
		RowPoints: ts.rowPoints,
	}
}

func (ts *teamState) result(winner bool) TeamRunResult {
	return TeamRunResult{
		TeamID:                  ts.team.ID,
		TeamName:                ts.team.Name,
		Strategy:                ts.team.Strategy,
		StrategyParams:          ts.team.StrategyParams,
		TotalPoints:             ts.points,
		TilesCompletedCount:     ts.tilesCompleted,
		RowReached:              ts.reachedRow,
		IsWinner:                winner,
		RowUnlockTimesJSON:      marshalTimes(ts.rowUnlockedAt, rowKey),
		TileCompletionTimesJSON: marshalTimes(ts.tileCompletedAt, func(k string) string { return k }),
	}
}

// intersectCaps is the capability set a formed unit acts with: only
// capabilities every member holds benefit the group.
func intersectCaps(sets []map[string]bool) map[string]bool {
	if len(sets) == 0 {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(sets[0]))
	for c := range sets[0] {
		out[c] = true
	}
	for _, s := range sets[1:] {
		for c := range out {
			if !s[c] {
				delete(out, c)
			}
		}
	}
	return out
}
