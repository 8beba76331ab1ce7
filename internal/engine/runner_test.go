package engine

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/clanevents/bingosim/internal/snapshot"
)

func intp(v int) *int { return &v }

// fourTileSnapshot is the end-to-end board: a single row of 1/2/3/4 point
// tiles, one always-online player, one activity whose single outcome always
// grants one accepted unit.
func fourTileSnapshot() *snapshot.EventSnapshot {
	tile := func(key string, points int) snapshot.Tile {
		return snapshot.Tile{
			Key:           key,
			Name:          key,
			Points:        points,
			RequiredCount: 1,
			AllowedActivities: []snapshot.TileActivityRule{{
				ActivityID:  "gather",
				ActivityKey: "gather",
				DropKeys:    []string{"token"},
				Modifiers:   []snapshot.ActivityModifierRule{},
			}},
		}
	}

	return &snapshot.EventSnapshot{
		Name:               "Mini Bingo",
		DurationSeconds:    24 * 3600,
		UnlockPointsPerRow: 5,
		StartsAt:           "2026-09-04T18:00:00Z",
		Rows: []snapshot.Row{{
			Index: 0,
			Tiles: []snapshot.Tile{tile("t1", 1), tile("t2", 2), tile("t3", 3), tile("t4", 4)},
		}},
		ActivitiesByID: map[string]snapshot.Activity{
			"gather": {
				Key: "gather",
				Attempts: []snapshot.Attempt{{
					Key:             "loop",
					RollScope:       snapshot.RollPerPlayer,
					BaselineSeconds: 300,
					Outcomes: []snapshot.Outcome{{
						WeightNumerator:   1,
						WeightDenominator: 1,
						Grants:            []snapshot.ProgressGrant{{DropKey: "token", Units: intp(1)}},
					}},
				}},
				ModeSupport: &snapshot.ModeSupport{SupportsSolo: true},
			},
		},
		Teams: []snapshot.TeamSnapshot{{
			ID:       "team-1",
			Name:     "Solo Squad",
			Strategy: "greedy",
			Players: []snapshot.PlayerSnapshot{{
				ID:              "p1",
				Name:            "Ann",
				SkillMultiplier: 1.0,
				Schedule:        &snapshot.WeeklySchedule{},
			}},
		}},
	}
}

func TestRunEndToEnd(t *testing.T) {
	results, err := Run(context.Background(), fourTileSnapshot(), "seed-1", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	res := results[0]
	if res.TilesCompletedCount != 4 {
		t.Errorf("tiles completed = %d, want 4", res.TilesCompletedCount)
	}
	if res.TotalPoints != 10 {
		t.Errorf("points = %d, want 10", res.TotalPoints)
	}
	if res.RowReached != 0 {
		t.Errorf("row reached = %d, want 0 (only row present)", res.RowReached)
	}
	if !res.IsWinner {
		t.Error("sole team should be the winner")
	}

	var completions map[string]float64
	if err := json.Unmarshal([]byte(res.TileCompletionTimesJSON), &completions); err != nil {
		t.Fatalf("decoding completion times: %v", err)
	}
	if len(completions) != 4 {
		t.Errorf("expected 4 completion timestamps, got %v", completions)
	}
	// Greedy works the 4-point tile first.
	if completions["t4"] >= completions["t1"] {
		t.Errorf("t4 should complete before t1: %v", completions)
	}
}

func TestRunDeterminism(t *testing.T) {
	snap := fourTileSnapshot()
	// Add variance and a rarer outcome so the RNG actually matters.
	act := snap.ActivitiesByID["gather"]
	act.Attempts[0].VarianceSeconds = 120
	act.Attempts[0].Outcomes = []snapshot.Outcome{
		{WeightNumerator: 3, WeightDenominator: 4, Grants: nil},
		{WeightNumerator: 1, WeightDenominator: 4, Grants: []snapshot.ProgressGrant{{DropKey: "token", UnitsMin: 1, UnitsMax: 2}}},
	}
	snap.ActivitiesByID["gather"] = act

	first, err := Run(context.Background(), snap, "seed-42", nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Run(context.Background(), snap, "seed-42", nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical seed produced different results:\n%+v\n%+v", first, second)
	}

	third, err := Run(context.Background(), snap, "seed-43", nil)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if reflect.DeepEqual(first, third) {
		t.Error("different seeds should not produce identical timing maps")
	}
}

func TestGroupTimingDominatedBySlowestMember(t *testing.T) {
	base := fourTileSnapshot()
	act := base.ActivitiesByID["gather"]
	act.ModeSupport = &snapshot.ModeSupport{SupportsGroup: true, MinGroupSize: intp(2)}
	act.Attempts[0].RollScope = snapshot.RollPerGroup
	base.ActivitiesByID["gather"] = act
	base.Teams[0].Players = []snapshot.PlayerSnapshot{
		{ID: "fast", Name: "Fast", SkillMultiplier: 0.8, Schedule: &snapshot.WeeklySchedule{}},
		{ID: "slow", Name: "Slow", SkillMultiplier: 1.4, Schedule: &snapshot.WeeklySchedule{}},
	}

	groupRes, err := Run(context.Background(), base, "seed-7", nil)
	if err != nil {
		t.Fatalf("group run: %v", err)
	}

	solo := fourTileSnapshot()
	solo.Teams[0].Players[0].SkillMultiplier = 0.8

	soloRes, err := Run(context.Background(), solo, "seed-7", nil)
	if err != nil {
		t.Fatalf("solo run: %v", err)
	}

	groupFirst := firstCompletion(t, groupRes[0].TileCompletionTimesJSON)
	soloFirst := firstCompletion(t, soloRes[0].TileCompletionTimesJSON)

	// Zero variance, 300 s baseline: the pair completes at the 1.4 rate,
	// the solo fast player at 0.8.
	if groupFirst < 300*1.4 {
		t.Errorf("group completed in %v s, faster than its slowest member's %v s", groupFirst, 300*1.4)
	}
	if groupFirst <= soloFirst {
		t.Errorf("group (%v s) should be slower than the fast solo player (%v s)", groupFirst, soloFirst)
	}
}

func firstCompletion(t *testing.T, timesJSON string) float64 {
	t.Helper()
	var m map[string]float64
	if err := json.Unmarshal([]byte(timesJSON), &m); err != nil {
		t.Fatalf("decoding times: %v", err)
	}
	first := 0.0
	for _, v := range m {
		if first == 0 || v < first {
			first = v
		}
	}
	if first == 0 {
		t.Fatal("no completions recorded")
	}
	return first
}

func TestNoProgressGuard(t *testing.T) {
	snap := fourTileSnapshot()
	// Nobody can ever come online: the loop must abort, not spin.
	snap.Teams[0].Players = nil

	_, err := Run(context.Background(), snap, "seed-1", nil)
	var npe *NoProgressError
	if !errors.As(err, &npe) {
		t.Fatalf("expected NoProgressError, got %v", err)
	}
	if npe.OnlinePlayers != 0 {
		t.Errorf("online players = %d, want 0", npe.OnlinePlayers)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, fourTileSnapshot(), "seed-1", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunRespectsSessionBoundaries(t *testing.T) {
	snap := fourTileSnapshot()
	// Friday 18:00 UTC start; the player is only online Fridays 18:00–19:00.
	snap.Teams[0].Players[0].Schedule = &snapshot.WeeklySchedule{Sessions: []snapshot.ScheduledSession{
		{DayOfWeek: 5, StartMinuteOfDay: 18 * 60, DurationMinutes: 60},
	}}
	snap.DurationSeconds = 3600 * 2

	results, err := Run(context.Background(), snap, "seed-1", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var completions map[string]float64
	json.Unmarshal([]byte(results[0].TileCompletionTimesJSON), &completions)
	for key, at := range completions {
		if at >= 3600 {
			t.Errorf("tile %s completed at %v s, outside the 3600 s session", key, at)
		}
	}
	if len(completions) == 0 {
		t.Error("expected some tiles to complete inside the session")
	}
}

func TestRunProgressCallback(t *testing.T) {
	var seen []string
	opts := &Options{Progress: func(teamID, tileKey string, elapsed float64) {
		seen = append(seen, tileKey)
	}}

	if _, err := Run(context.Background(), fourTileSnapshot(), "seed-1", opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(seen) != 4 {
		t.Errorf("progress callback fired %d times, want 4", len(seen))
	}
}
