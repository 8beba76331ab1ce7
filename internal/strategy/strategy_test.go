package strategy

import (
	"testing"

	"github.com/clanevents/bingosim/internal/snapshot"
)

type tileSpec struct {
	key      string
	points   int
	row      int
	activity string
	caps     []string
}

// buildSnap assembles a board from tile specs. Every activity has one
// 60-second attempt whose single outcome always grants one unit of
// "drop-<activity>", which the tile's rule accepts.
func buildSnap(unlockPoints, rowCount int, tiles []tileSpec) *snapshot.EventSnapshot {
	one := 1
	snap := &snapshot.EventSnapshot{
		Name:               "strategy board",
		DurationSeconds:    24 * 3600,
		UnlockPointsPerRow: unlockPoints,
		StartsAt:           "2026-09-04T18:00:00Z",
		Rows:               make([]snapshot.Row, rowCount),
		ActivitiesByID:     make(map[string]snapshot.Activity),
	}
	for i := range snap.Rows {
		snap.Rows[i].Index = i
	}

	for _, ts := range tiles {
		drop := "drop-" + ts.activity
		if _, ok := snap.ActivitiesByID[ts.activity]; !ok {
			snap.ActivitiesByID[ts.activity] = snapshot.Activity{
				Key: ts.activity,
				Attempts: []snapshot.Attempt{{
					Key:             "cycle",
					RollScope:       snapshot.RollPerPlayer,
					BaselineSeconds: 60,
					Outcomes: []snapshot.Outcome{{
						WeightNumerator:   1,
						WeightDenominator: 1,
						Grants:            []snapshot.ProgressGrant{{DropKey: drop, Units: &one}},
					}},
				}},
				ModeSupport: &snapshot.ModeSupport{SupportsSolo: true},
			}
		}
		snap.Rows[ts.row].Tiles = append(snap.Rows[ts.row].Tiles, snapshot.Tile{
			Key:           ts.key,
			Name:          ts.key,
			Points:        ts.points,
			RequiredCount: 1,
			AllowedActivities: []snapshot.TileActivityRule{{
				ActivityID:           ts.activity,
				ActivityKey:          ts.activity,
				DropKeys:             []string{drop},
				RequiredCapabilities: ts.caps,
				Modifiers:            []snapshot.ActivityModifierRule{},
			}},
		})
	}
	return snap
}

func testContext(snap *snapshot.EventSnapshot, unlockedRows ...int) *TaskContext {
	unlocked := make(map[int]bool)
	for _, r := range unlockedRows {
		unlocked[r] = true
	}
	return &TaskContext{
		View: View{
			Snap:      snap,
			Unlocked:  unlocked,
			Completed: make(map[string]bool),
			Progress:  make(map[string]int),
			RowPoints: make(map[int]int),
		},
		Player:       &snapshot.PlayerSnapshot{ID: "p", SkillMultiplier: 1},
		Capabilities: map[string]bool{},
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	if _, err := New("psychic", nil); err == nil {
		t.Fatal("expected error for unknown strategy key")
	}
	for _, key := range []string{KeyGreedy, KeyRowUnlocking, KeyComboUnlocking, KeyRollout} {
		if _, err := New(key, nil); err != nil {
			t.Errorf("New(%q): %v", key, err)
		}
	}
}

func TestSelectTaskNoEligibleTile(t *testing.T) {
	snap := buildSnap(5, 1, []tileSpec{{key: "a", points: 2, activity: "act", caps: []string{"elite"}}})
	c := testContext(snap, 0) // player lacks "elite"

	for _, key := range []string{KeyGreedy, KeyRowUnlocking, KeyComboUnlocking, KeyRollout} {
		s, _ := New(key, nil)
		if _, ok := s.SelectTaskForPlayer(c); ok {
			t.Errorf("%s: expected no task when nothing is eligible", key)
		}
	}
}

func TestEstimateTileSeconds(t *testing.T) {
	snap := buildSnap(5, 1, []tileSpec{{key: "a", points: 2, activity: "act"}})
	tile := &snap.Rows[0].Tiles[0]

	// One guaranteed unit per 60 s cycle, 5 remaining: 300 s.
	if est := EstimateTileSeconds(snap, tile, 5); est != 300 {
		t.Errorf("estimate = %v, want 300", est)
	}

	// No rule can ever progress the tile: infinite.
	orphan := &snapshot.Tile{Key: "x", Points: 1, RequiredCount: 1}
	if est := EstimateTileSeconds(snap, orphan, 1); !isInf(est) {
		t.Errorf("estimate for unworkable tile = %v, want +Inf", est)
	}
}

func isInf(v float64) bool { return v > 1e17 }
