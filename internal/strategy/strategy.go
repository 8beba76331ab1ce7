// Package strategy holds the pluggable team decision policies: which task a
// free player should start, and which tile absorbs an ambiguous progress
// grant. Policies are pure with respect to the passed-in context, apart from
// bounded per-row caches that the runner invalidates on unlock/completion.
package strategy

import (
	"fmt"

	"github.com/clanevents/bingosim/internal/snapshot"
)

// View is a read-only picture of one team's run state.
type View struct {
	Snap      *snapshot.EventSnapshot
	Unlocked  map[int]bool
	Completed map[string]bool
	Progress  map[string]int
	RowPoints map[int]int
}

// Remaining is the progress still needed to complete a tile.
func (v *View) Remaining(tile *snapshot.Tile) int {
	r := tile.RequiredCount - v.Progress[tile.Key]
	if r < 0 {
		return 0
	}
	return r
}

// TaskContext is the input to task selection for one free player.
type TaskContext struct {
	View
	Player       *snapshot.PlayerSnapshot
	Capabilities map[string]bool
}

// Task is a chosen unit of work: progress the tile via the rule's activity.
type Task struct {
	TileKey    string
	ActivityID string
	Rule       *snapshot.TileActivityRule
}

// GrantContext is the input to grant allocation when a drop key is accepted
// by more than one eligible incomplete tile. Candidates are in board order.
type GrantContext struct {
	View
	DropKey    string
	Candidates []string
}

// Strategy is the team decision policy contract. Both selectors return
// false when nothing is eligible; the runner treats that as idle, never as
// an error.
type Strategy interface {
	SelectTaskForPlayer(c *TaskContext) (Task, bool)
	SelectTargetTileForGrant(c *GrantContext) (string, bool)

	// Cache invalidation hooks, called by the runner whenever a row's
	// unlock state changes or a tile on a cached row completes.
	InvalidateRowCache(rowIndex int)
	InvalidateAllCaches()
}

// Strategy keys accepted in team snapshots.
const (
	KeyGreedy         = "greedy"
	KeyRowUnlocking   = "row_unlocking"
	KeyComboUnlocking = "combo_unlocking"
	KeyRollout        = "rollout"
)

// New builds a strategy from its snapshot key and optional parameters.
func New(key string, params map[string]float64) (Strategy, error) {
	switch key {
	case KeyGreedy:
		return &greedy{}, nil
	case KeyRowUnlocking:
		return newRowUnlocking(), nil
	case KeyComboUnlocking:
		return newComboUnlocking(), nil
	case KeyRollout:
		return newRollout(params), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", key)
	}
}

// candidate is one eligible (tile, rule) pair for a player.
type candidate struct {
	row  int
	tile *snapshot.Tile
	rule *snapshot.TileActivityRule
}

// eligibleCandidates enumerates, in board order, the incomplete tiles on
// unlocked rows that the player can work: the player holds every required
// capability on the rule and the rule's activity has at least one attempt.
func eligibleCandidates(c *TaskContext) []candidate {
	var out []candidate
	for ri := range c.Snap.Rows {
		if !c.Unlocked[ri] {
			continue
		}
		row := &c.Snap.Rows[ri]
		for ti := range row.Tiles {
			tile := &row.Tiles[ti]
			if c.Completed[tile.Key] {
				continue
			}
			for ai := range tile.AllowedActivities {
				rule := &tile.AllowedActivities[ai]
				if !ruleUsable(c.Snap, rule, c.Capabilities) {
					continue
				}
				out = append(out, candidate{row: ri, tile: tile, rule: rule})
			}
		}
	}
	return out
}

func ruleUsable(snap *snapshot.EventSnapshot, rule *snapshot.TileActivityRule, caps map[string]bool) bool {
	for _, need := range rule.RequiredCapabilities {
		if !caps[need] {
			return false
		}
	}
	act, ok := snap.ActivitiesByID[rule.ActivityID]
	return ok && len(act.Attempts) > 0
}

// bestRuleForTile picks the fastest usable rule for a tile, preferring the
// earliest rule on estimate ties.
func bestRuleForTile(c *TaskContext, tile *snapshot.Tile) (*snapshot.TileActivityRule, bool) {
	var best *snapshot.TileActivityRule
	bestEst := 0.0
	remaining := c.Remaining(tile)
	for ai := range tile.AllowedActivities {
		rule := &tile.AllowedActivities[ai]
		if !ruleUsable(c.Snap, rule, c.Capabilities) {
			continue
		}
		est := estimateRuleSeconds(c.Snap, rule, remaining)
		if best == nil || est < bestEst {
			best = rule
			bestEst = est
		}
	}
	return best, best != nil
}

func taskFor(c *TaskContext, tile *snapshot.Tile) (Task, bool) {
	rule, ok := bestRuleForTile(c, tile)
	if !ok {
		return Task{}, false
	}
	return Task{TileKey: tile.Key, ActivityID: rule.ActivityID, Rule: rule}, true
}

func maxUnlockedRow(unlocked map[int]bool, rowCount int) int {
	far := 0
	for i := 0; i < rowCount; i++ {
		if unlocked[i] && i > far {
			far = i
		}
	}
	return far
}

// tileAt resolves a tile key to its row index and definition.
func tileAt(snap *snapshot.EventSnapshot, key string) (int, *snapshot.Tile, bool) {
	for ri := range snap.Rows {
		for ti := range snap.Rows[ri].Tiles {
			if snap.Rows[ri].Tiles[ti].Key == key {
				return ri, &snap.Rows[ri].Tiles[ti], true
			}
		}
	}
	return 0, nil, false
}
