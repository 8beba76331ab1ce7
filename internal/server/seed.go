package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/clanevents/bingosim/internal/snapshot"
)

// SeedDemo creates the initial admin account and a demo snapshot on an empty
// database. Idempotent: existing admins and snapshots are left alone.
func SeedDemo(ctx context.Context, logger *slog.Logger, db *sql.DB, store *Store, adminEmail, adminPassword string) error {
	var admins int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&admins); err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if admins == 0 && adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		_, err = db.ExecContext(ctx,
			`INSERT INTO admins (id, email, password_hash) VALUES (?, ?, ?)`,
			newID(), adminEmail, string(hash),
		)
		if err != nil {
			return fmt.Errorf("creating admin: %w", err)
		}
		logger.Info("admin account created", "email", adminEmail)
	}

	var snaps int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&snaps); err != nil {
		return fmt.Errorf("counting snapshots: %w", err)
	}
	if snaps > 0 {
		return nil
	}

	data, err := json.Marshal(demoSnapshot())
	if err != nil {
		return fmt.Errorf("encoding demo snapshot: %w", err)
	}
	if _, err := store.CreateSnapshot(ctx, "Demo Autumn Bingo", data); err != nil {
		return fmt.Errorf("storing demo snapshot: %w", err)
	}
	logger.Info("demo snapshot created")
	return nil
}

// demoSnapshot is a small two-row board with two teams on different
// strategies, so a fresh install has something to simulate.
func demoSnapshot() *snapshot.EventSnapshot {
	one := 1
	tile := func(key string, points, required int, activity, drop string) snapshot.Tile {
		return snapshot.Tile{
			Key:           key,
			Name:          key,
			Points:        points,
			RequiredCount: required,
			AllowedActivities: []snapshot.TileActivityRule{{
				ActivityID:  activity,
				ActivityKey: activity,
				DropKeys:    []string{drop},
				Modifiers:   []snapshot.ActivityModifierRule{},
			}},
		}
	}
	player := func(id, name string, skill float64, caps ...string) snapshot.PlayerSnapshot {
		return snapshot.PlayerSnapshot{
			ID:              id,
			Name:            name,
			SkillMultiplier: skill,
			Capabilities:    caps,
			Schedule:        &snapshot.WeeklySchedule{},
		}
	}

	return &snapshot.EventSnapshot{
		Name:               "Demo Autumn Bingo",
		DurationSeconds:    3 * 24 * 3600,
		UnlockPointsPerRow: 6,
		StartsAt:           "2026-10-02T18:00:00Z",
		Rows: []snapshot.Row{
			{Index: 0, Tiles: []snapshot.Tile{
				tile("logs", 2, 3, "woodcut", "oak-log"),
				tile("ore", 3, 3, "mine", "iron-ore"),
				tile("fish", 4, 2, "fish", "raw-shark"),
			}},
			{Index: 1, Tiles: []snapshot.Tile{
				tile("gem", 5, 1, "mine", "uncut-gem"),
				tile("feast", 6, 4, "fish", "raw-shark"),
			}},
		},
		ActivitiesByID: map[string]snapshot.Activity{
			"woodcut": {
				Key: "woodcut",
				Attempts: []snapshot.Attempt{{
					Key:             "chop",
					RollScope:       snapshot.RollPerPlayer,
					BaselineSeconds: 240,
					VarianceSeconds: 60,
					Outcomes: []snapshot.Outcome{{
						WeightNumerator:   1,
						WeightDenominator: 1,
						Grants:            []snapshot.ProgressGrant{{DropKey: "oak-log", Units: &one}},
					}},
				}},
				ModeSupport: &snapshot.ModeSupport{SupportsSolo: true},
			},
			"mine": {
				Key: "mine",
				Attempts: []snapshot.Attempt{{
					Key:             "swing",
					RollScope:       snapshot.RollPerPlayer,
					BaselineSeconds: 300,
					VarianceSeconds: 90,
					Outcomes: []snapshot.Outcome{
						{
							WeightNumerator:   3,
							WeightDenominator: 4,
							Grants:            []snapshot.ProgressGrant{{DropKey: "iron-ore", Units: &one}},
						},
						{
							WeightNumerator:   1,
							WeightDenominator: 4,
							Grants:            []snapshot.ProgressGrant{{DropKey: "uncut-gem", Units: &one}},
						},
					},
				}},
				ModeSupport: &snapshot.ModeSupport{SupportsSolo: true},
			},
			"fish": {
				Key: "fish",
				Attempts: []snapshot.Attempt{{
					Key:             "cast",
					RollScope:       snapshot.RollPerGroup,
					BaselineSeconds: 360,
					VarianceSeconds: 120,
					Outcomes: []snapshot.Outcome{
						{
							WeightNumerator:   1,
							WeightDenominator: 2,
							Grants:            []snapshot.ProgressGrant{{DropKey: "raw-shark", UnitsMin: 1, UnitsMax: 2}},
						},
						{WeightNumerator: 1, WeightDenominator: 2},
					},
				}},
				ModeSupport: &snapshot.ModeSupport{
					SupportsSolo:  true,
					SupportsGroup: true,
					MaxGroupSize:  intPtr(3),
				},
			},
		},
		Teams: []snapshot.TeamSnapshot{
			{
				ID:       "team-greedy",
				Name:     "Point Chasers",
				Strategy: "greedy",
				Players: []snapshot.PlayerSnapshot{
					player("g1", "Ada", 1.0),
					player("g2", "Bo", 1.2),
				},
			},
			{
				ID:       "team-rows",
				Name:     "Row Crew",
				Strategy: "row_unlocking",
				Players: []snapshot.PlayerSnapshot{
					player("r1", "Cyn", 0.9),
					player("r2", "Dee", 1.1),
				},
			},
		},
	}
}

func intPtr(v int) *int { return &v }
