// Package engine is the deterministic discrete-event simulation core: one
// Run call advances every team of a snapshot on a shared simulated clock and
// produces one result per team. Identical snapshot + seed always yields
// byte-identical output; parallelism belongs across runs, never inside one.
package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/clanevents/bingosim/internal/schedule"
	"github.com/clanevents/bingosim/internal/snapshot"
	"github.com/clanevents/bingosim/internal/strategy"
)

// Options carries optional run hooks.
type Options struct {
	// Progress, when set, is called after every tile completion with the
	// team ID, tile key, and elapsed seconds.
	Progress func(teamID, tileKey string, elapsedSeconds float64)
}

// execution is one in-flight activity cycle for a lone player or a group.
type execution struct {
	seq        int
	completeAt float64
	team       *teamState
	members    []int
	activityID string
	rule       *snapshot.TileActivityRule
	tileKey    string
	groupSize  int
	unitCaps   map[string]bool
	rng        *rand.Rand
}

type runner struct {
	snap     *snapshot.EventSnapshot
	start    time.Time
	end      float64
	runSeed  int64
	states   []*teamState
	inflight []*execution
	seq      int
	now      float64
	opts     *Options
}

// Run executes one simulation of the snapshot under the given seed and
// returns one result per team. The snapshot is validated first; cancellation
// is cooperative and discards partial results.
func Run(ctx context.Context, snap *snapshot.EventSnapshot, seed string, opts *Options) ([]TeamRunResult, error) {
	if err := snapshot.Validate(snap); err != nil {
		return nil, err
	}
	start, err := snap.StartTime()
	if err != nil {
		return nil, fmt.Errorf("parsing event start: %w", err)
	}
	if opts == nil {
		opts = &Options{}
	}

	r := &runner{
		snap:    snap,
		start:   start,
		end:     float64(snap.DurationSeconds),
		runSeed: seedFromString(seed),
		opts:    opts,
	}
	for ti := range snap.Teams {
		ts, err := newTeamState(&snap.Teams[ti])
		if err != nil {
			return nil, fmt.Errorf("team %q: %w", snap.Teams[ti].ID, err)
		}
		r.states = append(r.states, ts)
	}

	if err := r.loop(ctx); err != nil {
		return nil, err
	}
	return r.results(), nil
}

// RunSerialized parses, validates, and runs a serialized snapshot.
func RunSerialized(ctx context.Context, data []byte, seed string, opts *Options) ([]TeamRunResult, error) {
	snap, err := snapshot.Parse(data)
	if err != nil {
		return nil, err
	}
	return Run(ctx, snap, seed, opts)
}

func (r *runner) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.resolveDue()

		if r.now >= r.end {
			return nil
		}

		instant := schedule.InstantAt(r.start, r.now)
		online := r.startExecutions(instant)

		if err := r.advance(instant, online); err != nil {
			return err
		}
	}
}

// startExecutions asks each team's strategy for a task per free online
// player, forms units under the activity's group constraints, and schedules
// every unit whose effective duration fits the session and event windows.
// Returns the number of players online this tick.
func (r *runner) startExecutions(instant time.Time) int {
	online := 0
	for _, ts := range r.states {
		type desire struct {
			player int
			task   strategy.Task
		}
		var desires []desire

		for pi := range ts.team.Players {
			p := &ts.team.Players[pi]
			if !schedule.IsOnlineAt(p.Schedule, instant) {
				continue
			}
			online++
			if ts.busy[p.ID] {
				continue
			}
			tc := &strategy.TaskContext{View: ts.view(r.snap), Player: p, Capabilities: ts.caps[pi]}
			task, ok := ts.strat.SelectTaskForPlayer(tc)
			if !ok {
				continue
			}
			desires = append(desires, desire{player: pi, task: task})
		}

		// Group players targeting the same activity/rule, preserving
		// player order so formation is deterministic.
		type unitKey struct {
			activityID string
			tileKey    string
			rule       *snapshot.TileActivityRule
		}
		var order []unitKey
		grouped := make(map[unitKey][]int)
		for _, d := range desires {
			k := unitKey{activityID: d.task.ActivityID, tileKey: d.task.TileKey, rule: d.task.Rule}
			if _, seen := grouped[k]; !seen {
				order = append(order, k)
			}
			grouped[k] = append(grouped[k], d.player)
		}

		for _, k := range order {
			act := r.snap.ActivitiesByID[k.activityID]
			for _, members := range formUnits(grouped[k], act.ModeSupport) {
				r.scheduleUnit(ts, members, k.activityID, &act, k.rule, k.tileKey, instant)
			}
		}
	}
	return online
}

// formUnits splits willing players into startable units. Group-capable
// activities form groups of up to the max size; a remainder below the min
// goes solo when solo is supported, otherwise waits for the next tick.
func formUnits(members []int, ms *snapshot.ModeSupport) [][]int {
	var units [][]int
	rest := members

	if ms.SupportsGroup {
		min := 1
		if ms.MinGroupSize != nil && *ms.MinGroupSize > 1 {
			min = *ms.MinGroupSize
		}
		max := len(members)
		if ms.MaxGroupSize != nil && *ms.MaxGroupSize > 0 {
			max = *ms.MaxGroupSize
		}
		for len(rest) >= min && len(rest) > 0 {
			n := max
			if n > len(rest) {
				n = len(rest)
			}
			if n < min {
				break
			}
			units = append(units, rest[:n])
			rest = rest[n:]
		}
	}
	if ms.SupportsSolo {
		for _, m := range rest {
			units = append(units, []int{m})
		}
	}
	return units
}

// scheduleUnit computes the unit's effective cycle duration and schedules
// completion, unless it would spill past the event end or any member's
// current session.
func (r *runner) scheduleUnit(ts *teamState, members []int, activityID string, act *snapshot.Activity, rule *snapshot.TileActivityRule, tileKey string, instant time.Time) {
	seq := r.seq
	r.seq++
	rng := rand.New(rand.NewSource(executionSeed(r.runSeed, seq)))

	// Cycle duration: the slowest perturbed attempt dominates.
	duration := 0.0
	for _, att := range act.Attempts {
		d := att.BaselineSeconds
		if att.VarianceSeconds > 0 {
			d += (rng.Float64()*2 - 1) * att.VarianceSeconds
		}
		if d < 1 {
			d = 1
		}
		if d > duration {
			duration = d
		}
	}
	if duration <= 0 {
		return
	}

	unitCaps := make([]map[string]bool, 0, len(members))
	slowestSkill := 0.0
	for _, pi := range members {
		unitCaps = append(unitCaps, ts.caps[pi])
		if s := ts.team.Players[pi].SkillMultiplier; s > slowestSkill {
			slowestSkill = s
		}
	}
	caps := intersectCaps(unitCaps)

	bandTime, _ := SelectGroupBand(act.GroupScalingBands, len(members))
	ruleTime := CombinedTimeMultiplier(rule, caps)
	completeAt := r.now + duration*bandTime*ruleTime*slowestSkill

	if completeAt > r.end {
		return
	}
	for _, pi := range members {
		p := &ts.team.Players[pi]
		if sessEnd, ok := schedule.CurrentSessionEnd(p.Schedule, instant); ok {
			if completeAt >= schedule.ElapsedSeconds(r.start, sessEnd) {
				return
			}
		}
	}

	for _, pi := range members {
		ts.busy[ts.team.Players[pi].ID] = true
	}
	r.inflight = append(r.inflight, &execution{
		seq:        seq,
		completeAt: completeAt,
		team:       ts,
		members:    members,
		activityID: activityID,
		rule:       rule,
		tileKey:    tileKey,
		groupSize:  len(members),
		unitCaps:   caps,
		rng:        rng,
	})
}

// advance moves simulated time to the next relevant instant: the earliest
// in-flight completion, the earliest future session start, the earliest
// session end of an online player (so gated attempts re-evaluate), or the
// event end. Idle time is never stepped second-by-second.
func (r *runner) advance(instant time.Time, online int) error {
	next := math.Inf(1)
	for _, e := range r.inflight {
		if e.completeAt < next {
			next = e.completeAt
		}
	}

	nextStart, hasFuture := schedule.EarliestNextSessionStart(r.snap, instant)
	if hasFuture {
		if el := schedule.ElapsedSeconds(r.start, nextStart); el > r.now && el < next {
			next = el
		}
	}

	for _, ts := range r.states {
		for pi := range ts.team.Players {
			p := &ts.team.Players[pi]
			if sessEnd, ok := schedule.CurrentSessionEnd(p.Schedule, instant); ok {
				if el := schedule.ElapsedSeconds(r.start, sessEnd); el > r.now && el < next {
					next = el
				}
			}
		}
	}

	if len(r.inflight) == 0 && online == 0 && !hasFuture {
		return &NoProgressError{
			CurrentTime:   instant,
			AttemptedTime: instant,
			OnlinePlayers: online,
		}
	}

	if next > r.end || math.IsInf(next, 1) {
		next = r.end
	}
	if next <= r.now {
		return &NoProgressError{
			CurrentTime:   instant,
			AttemptedTime: schedule.InstantAt(r.start, next),
			OnlinePlayers: online,
		}
	}

	r.now = next
	return nil
}

// resolveDue resolves every in-flight execution whose completion time has
// arrived, in (completion time, schedule order) order.
func (r *runner) resolveDue() {
	var due, rest []*execution
	for _, e := range r.inflight {
		if e.completeAt <= r.now {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	r.inflight = rest

	sort.Slice(due, func(i, j int) bool {
		if due[i].completeAt != due[j].completeAt {
			return due[i].completeAt < due[j].completeAt
		}
		return due[i].seq < due[j].seq
	})
	for _, e := range due {
		r.resolve(e)
	}
}

// resolve samples outcomes for every attempt of the finished cycle and
// applies the granted progress. PerPlayer attempts roll once per member with
// that member's capabilities; PerGroup attempts roll once with the unit's
// shared capabilities.
func (r *runner) resolve(e *execution) {
	ts := e.team
	for _, pi := range e.members {
		ts.busy[ts.team.Players[pi].ID] = false
	}

	act := r.snap.ActivitiesByID[e.activityID]
	_, bandProb := SelectGroupBand(act.GroupScalingBands, e.groupSize)

	for ai := range act.Attempts {
		att := &act.Attempts[ai]

		var rollCaps []map[string]bool
		if att.RollScope == snapshot.RollPerGroup {
			rollCaps = []map[string]bool{e.unitCaps}
		} else {
			for _, pi := range e.members {
				rollCaps = append(rollCaps, ts.caps[pi])
			}
		}

		for _, caps := range rollCaps {
			probMult := bandProb * CombinedProbabilityMultiplier(e.rule, caps)
			weighted := ApplyProbabilityMultiplier(att.Outcomes, e.rule.DropKeys, probMult)
			out := sampleOutcome(weighted, e.rng)
			if out == nil {
				continue
			}
			for _, grant := range out.Grants {
				units := grantUnits(&grant, e.rng)
				if units > 0 {
					r.applyGrant(ts, grant.DropKey, units, e.completeAt)
				}
			}
		}
	}
}

func sampleOutcome(weighted []WeightedOutcome, rng *rand.Rand) *snapshot.Outcome {
	total := 0.0
	for _, w := range weighted {
		total += w.Weight
	}
	if total <= 0 {
		return nil
	}
	roll := rng.Float64() * total
	acc := 0.0
	for _, w := range weighted {
		acc += w.Weight
		if roll < acc {
			return w.Outcome
		}
	}
	return weighted[len(weighted)-1].Outcome
}

func grantUnits(g *snapshot.ProgressGrant, rng *rand.Rand) int {
	if g.Units != nil {
		return *g.Units
	}
	if g.UnitsMax < g.UnitsMin {
		return 0
	}
	return g.UnitsMin + rng.Intn(g.UnitsMax-g.UnitsMin+1)
}

// applyGrant routes progress to a tile. When more than one eligible
// incomplete tile accepts the drop key the team's strategy decides; zero
// eligible tiles discards the grant.
func (r *runner) applyGrant(ts *teamState, dropKey string, units int, at float64) {
	var candidates []string
	for ri := range r.snap.Rows {
		if !ts.unlocked[ri] {
			continue
		}
		for ti := range r.snap.Rows[ri].Tiles {
			tile := &r.snap.Rows[ri].Tiles[ti]
			if ts.completed[tile.Key] {
				continue
			}
			for ai := range tile.AllowedActivities {
				if tile.AllowedActivities[ai].AcceptsDropKey(dropKey) {
					candidates = append(candidates, tile.Key)
					break
				}
			}
		}
	}

	var target string
	switch len(candidates) {
	case 0:
		return
	case 1:
		target = candidates[0]
	default:
		gc := &strategy.GrantContext{View: ts.view(r.snap), DropKey: dropKey, Candidates: candidates}
		chosen, ok := ts.strat.SelectTargetTileForGrant(gc)
		if !ok {
			return
		}
		target = chosen
	}

	row, tile, ok := tileIndex(r.snap, target)
	if !ok {
		return
	}

	ts.progress[target] += units
	if ts.progress[target] < tile.RequiredCount || ts.completed[target] {
		return
	}

	ts.completed[target] = true
	ts.tileCompletedAt[target] = at
	ts.points += tile.Points
	ts.tilesCompleted++
	ts.rowPoints[row] += tile.Points

	newUnlocked := UnlockedRows(r.snap.UnlockPointsPerRow, ts.rowPoints, len(r.snap.Rows))
	unlockChanged := false
	for ri := range newUnlocked {
		if !ts.unlocked[ri] {
			ts.rowUnlockedAt[ri] = at
			ts.strat.InvalidateRowCache(ri)
			unlockChanged = true
		}
	}
	ts.unlocked = newUnlocked
	ts.strat.InvalidateRowCache(row)
	if unlockChanged {
		ts.strat.InvalidateAllCaches()
	}

	for ri := range ts.unlocked {
		if ri > ts.reachedRow {
			ts.reachedRow = ri
		}
	}

	if r.opts.Progress != nil {
		r.opts.Progress(ts.team.ID, target, at)
	}
}

func tileIndex(snap *snapshot.EventSnapshot, key string) (int, *snapshot.Tile, bool) {
	for ri := range snap.Rows {
		for ti := range snap.Rows[ri].Tiles {
			if snap.Rows[ri].Tiles[ti].Key == key {
				return ri, &snap.Rows[ri].Tiles[ti], true
			}
		}
	}
	return 0, nil, false
}

// results ranks teams by (row reached, points) and flags every team
// matching the best pair as a winner.
func (r *runner) results() []TeamRunResult {
	bestRow, bestPoints := -1, -1
	for _, ts := range r.states {
		if ts.reachedRow > bestRow || (ts.reachedRow == bestRow && ts.points > bestPoints) {
			bestRow = ts.reachedRow
			bestPoints = ts.points
		}
	}

	out := make([]TeamRunResult, 0, len(r.states))
	for _, ts := range r.states {
		winner := ts.reachedRow == bestRow && ts.points == bestPoints
		out = append(out, ts.result(winner))
	}
	return out
}
