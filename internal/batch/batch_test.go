package batch

import (
	"context"
	"reflect"
	"testing"

	"github.com/clanevents/bingosim/internal/snapshot"
)

func intp(v int) *int { return &v }

// miniSnapshot is a single-row board with a variance-heavy activity so runs
// with different seeds actually diverge.
func miniSnapshot() *snapshot.EventSnapshot {
	tile := func(key string, points int) snapshot.Tile {
		return snapshot.Tile{
			Key:           key,
			Name:          key,
			Points:        points,
			RequiredCount: 2,
			AllowedActivities: []snapshot.TileActivityRule{{
				ActivityID:  "gather",
				ActivityKey: "gather",
				DropKeys:    []string{"token"},
				Modifiers:   []snapshot.ActivityModifierRule{},
			}},
		}
	}

	return &snapshot.EventSnapshot{
		Name:               "Batch Board",
		DurationSeconds:    6 * 3600,
		UnlockPointsPerRow: 5,
		StartsAt:           "2026-09-04T18:00:00Z",
		Rows: []snapshot.Row{{
			Index: 0,
			Tiles: []snapshot.Tile{tile("t1", 2), tile("t2", 3), tile("t3", 4)},
		}},
		ActivitiesByID: map[string]snapshot.Activity{
			"gather": {
				Key: "gather",
				Attempts: []snapshot.Attempt{{
					Key:             "loop",
					RollScope:       snapshot.RollPerPlayer,
					BaselineSeconds: 300,
					VarianceSeconds: 120,
					Outcomes: []snapshot.Outcome{
						{
							WeightNumerator:   1,
							WeightDenominator: 2,
							Grants:            []snapshot.ProgressGrant{{DropKey: "token", Units: intp(1)}},
						},
						{WeightNumerator: 1, WeightDenominator: 2},
					},
				}},
				ModeSupport: &snapshot.ModeSupport{SupportsSolo: true},
			},
		},
		Teams: []snapshot.TeamSnapshot{{
			ID:       "team-1",
			Name:     "Runners",
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

func TestExecuteParallelismInvariant(t *testing.T) {
	snap := miniSnapshot()

	serial, err := Execute(context.Background(), snap, "batch-7", 6, &Options{Parallelism: 1})
	if err != nil {
		t.Fatalf("serial execute: %v", err)
	}
	parallel, err := Execute(context.Background(), snap, "batch-7", 6, &Options{Parallelism: 4})
	if err != nil {
		t.Fatalf("parallel execute: %v", err)
	}

	if !reflect.DeepEqual(serial, parallel) {
		t.Error("results differ between parallelism 1 and 4")
	}
	for i, res := range serial {
		if res.RunIndex != i {
			t.Errorf("result %d has run index %d", i, res.RunIndex)
		}
	}
}

func TestExecuteDistinctSeedsDiverge(t *testing.T) {
	results, err := Execute(context.Background(), miniSnapshot(), "batch-9", 8, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	seeds := make(map[string]bool)
	diverged := false
	for _, res := range results {
		if seeds[res.Seed] {
			t.Errorf("duplicate run seed %q", res.Seed)
		}
		seeds[res.Seed] = true
		if !reflect.DeepEqual(res.Teams, results[0].Teams) {
			diverged = true
		}
	}
	if !diverged {
		t.Error("expected at least one run to differ under a variance-heavy activity")
	}
}

func TestExecuteCallsOnRunDone(t *testing.T) {
	seen := make(map[int]bool)
	_, err := Execute(context.Background(), miniSnapshot(), "batch-3", 5, &Options{
		Parallelism: 3,
		OnRunDone:   func(res RunResult) { seen[res.RunIndex] = true },
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(seen) != 5 {
		t.Errorf("OnRunDone fired for %d runs, want 5", len(seen))
	}
}

func TestExecuteRejectsZeroRuns(t *testing.T) {
	if _, err := Execute(context.Background(), miniSnapshot(), "s", 0, nil); err == nil {
		t.Fatal("expected an error for zero runs")
	}
}

func TestExecuteCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Execute(ctx, miniSnapshot(), "s", 4, nil); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}
