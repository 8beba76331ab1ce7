package strategy

import "testing"

func TestGreedyPicksHighestPoints(t *testing.T) {
	snap := buildSnap(5, 1, []tileSpec{
		{key: "a", points: 2, activity: "act"},
		{key: "b", points: 4, activity: "act"},
		{key: "c", points: 3, activity: "act"},
	})
	c := testContext(snap, 0)
	s, _ := New(KeyGreedy, nil)

	task, ok := s.SelectTaskForPlayer(c)
	if !ok {
		t.Fatal("expected a task")
	}
	if task.TileKey != "b" {
		t.Errorf("task tile = %q, want the 4-point tile %q", task.TileKey, "b")
	}

	target, ok := s.SelectTargetTileForGrant(&GrantContext{
		View:       c.View,
		DropKey:    "drop-act",
		Candidates: []string{"a", "b", "c"},
	})
	if !ok || target != "b" {
		t.Errorf("grant target = %q, want %q", target, "b")
	}
}

func TestGreedyTieBreaksOnKey(t *testing.T) {
	snap := buildSnap(5, 1, []tileSpec{
		{key: "x", points: 4, activity: "act"},
		{key: "a", points: 4, activity: "act"},
	})
	c := testContext(snap, 0)
	s, _ := New(KeyGreedy, nil)

	task, ok := s.SelectTaskForPlayer(c)
	if !ok || task.TileKey != "a" {
		t.Errorf("task tile = %q, want alphabetically-first %q", task.TileKey, "a")
	}

	target, _ := s.SelectTargetTileForGrant(&GrantContext{
		View:       c.View,
		DropKey:    "drop-act",
		Candidates: []string{"x", "a"},
	})
	if target != "a" {
		t.Errorf("grant target = %q, want %q", target, "a")
	}
}

func TestGreedyIgnoresLockedRows(t *testing.T) {
	snap := buildSnap(5, 2, []tileSpec{
		{key: "low", points: 1, row: 0, activity: "act"},
		{key: "big", points: 9, row: 1, activity: "act"},
	})
	c := testContext(snap, 0) // row 1 locked
	s, _ := New(KeyGreedy, nil)

	task, ok := s.SelectTaskForPlayer(c)
	if !ok || task.TileKey != "low" {
		t.Errorf("task tile = %q, want %q (row 1 is locked)", task.TileKey, "low")
	}
}

func TestGreedyNoGrantTarget(t *testing.T) {
	snap := buildSnap(5, 1, []tileSpec{{key: "a", points: 2, activity: "act"}})
	c := testContext(snap, 0)
	s, _ := New(KeyGreedy, nil)

	if _, ok := s.SelectTargetTileForGrant(&GrantContext{View: c.View, DropKey: "drop-act"}); ok {
		t.Error("expected no target with zero candidates")
	}
}
