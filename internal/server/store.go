package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clanevents/bingosim/internal/batch"
)

var ErrNotFound = errors.New("not found")

// Batch lifecycle states.
const (
	BatchPending   = "pending"
	BatchRunning   = "running"
	BatchCompleted = "completed"
	BatchFailed    = "failed"
)

// SnapshotSummary is the stored snapshot's metadata.
type SnapshotSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// SnapshotDetail adds the raw snapshot document.
type SnapshotDetail struct {
	SnapshotSummary
	Data json.RawMessage `json:"data"`
}

// BatchDetail is the stored state of one batch.
type BatchDetail struct {
	ID            string `json:"id"`
	SnapshotID    string `json:"snapshotId"`
	Seed          string `json:"seed"`
	RunsTotal     int    `json:"runsTotal"`
	RunsCompleted int    `json:"runsCompleted"`
	Parallelism   int    `json:"parallelism"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// RunTeamRow is one team's result in one run of a batch.
type RunTeamRow struct {
	RunIndex                int                `json:"runIndex"`
	Seed                    string             `json:"seed"`
	TeamID                  string             `json:"teamId"`
	TeamName                string             `json:"teamName"`
	Strategy                string             `json:"strategy"`
	StrategyParams          map[string]float64 `json:"strategyParams,omitempty"`
	TotalPoints             int                `json:"totalPoints"`
	TilesCompletedCount     int                `json:"tilesCompletedCount"`
	RowReached              int                `json:"rowReached"`
	IsWinner                bool               `json:"isWinner"`
	RowUnlockTimesJSON      string             `json:"rowUnlockTimesJson"`
	TileCompletionTimesJSON string             `json:"tileCompletionTimesJson"`
}

// Store persists snapshots, batches, and per-run team results in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateSnapshot(ctx context.Context, name string, data []byte) (SnapshotSummary, error) {
	sum := SnapshotSummary{ID: newID(), Name: name, CreatedAt: nowUTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, data, created_at) VALUES (?, ?, ?, ?)`,
		sum.ID, sum.Name, string(data), sum.CreatedAt,
	)
	if err != nil {
		return SnapshotSummary{}, fmt.Errorf("inserting snapshot: %w", err)
	}
	return sum, nil
}

func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM snapshots ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := []SnapshotSummary{}
	for rows.Next() {
		var sum SnapshotSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, sum)
	}
	return snaps, rows.Err()
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (SnapshotDetail, error) {
	var det SnapshotDetail
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, data, created_at FROM snapshots WHERE id = ?`, id,
	).Scan(&det.ID, &det.Name, &data, &det.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotDetail{}, ErrNotFound
	}
	if err != nil {
		return SnapshotDetail{}, err
	}
	det.Data = json.RawMessage(data)
	return det, nil
}

func (s *Store) CreateBatch(ctx context.Context, snapshotID, seed string, runs, parallelism int) (BatchDetail, error) {
	b := BatchDetail{
		ID:          newID(),
		SnapshotID:  snapshotID,
		Seed:        seed,
		RunsTotal:   runs,
		Parallelism: parallelism,
		Status:      BatchPending,
		CreatedAt:   nowUTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, snapshot_id, seed, runs_total, parallelism, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SnapshotID, b.Seed, b.RunsTotal, b.Parallelism, b.Status, b.CreatedAt,
	)
	if err != nil {
		return BatchDetail{}, fmt.Errorf("inserting batch: %w", err)
	}
	return b, nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (BatchDetail, error) {
	var b BatchDetail
	err := s.db.QueryRowContext(ctx,
		`SELECT id, snapshot_id, seed, runs_total, runs_completed, parallelism, status, error, created_at
		 FROM batches WHERE id = ?`, id,
	).Scan(&b.ID, &b.SnapshotID, &b.Seed, &b.RunsTotal, &b.RunsCompleted,
		&b.Parallelism, &b.Status, &b.Error, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BatchDetail{}, ErrNotFound
	}
	return b, err
}

func (s *Store) MarkBatchRunning(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ? WHERE id = ?`, BatchRunning, id,
	)
	return err
}

// RecordRun stores every team result of one finished run and bumps the
// batch's completed counter, atomically.
func (s *Store) RecordRun(ctx context.Context, batchID string, res batch.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, team := range res.Teams {
		params := ""
		if len(team.StrategyParams) > 0 {
			raw, err := json.Marshal(team.StrategyParams)
			if err != nil {
				return err
			}
			params = string(raw)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_results (
				batch_id, run_index, seed, team_id, team_name, strategy, strategy_params_json,
				total_points, tiles_completed, row_reached, is_winner,
				row_unlock_times_json, tile_completion_times_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			batchID, res.RunIndex, res.Seed, team.TeamID, team.TeamName, team.Strategy, params,
			team.TotalPoints, team.TilesCompletedCount, team.RowReached, team.IsWinner,
			team.RowUnlockTimesJSON, team.TileCompletionTimesJSON,
		)
		if err != nil {
			return fmt.Errorf("inserting run result: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE batches SET runs_completed = runs_completed + 1 WHERE id = ?`, batchID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) FinishBatch(ctx context.Context, id, status, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, error = ? WHERE id = ?`, status, errMsg, id,
	)
	return err
}

func (s *Store) ListBatchResults(ctx context.Context, batchID string) ([]RunTeamRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_index, seed, team_id, team_name, strategy, strategy_params_json,
		        total_points, tiles_completed, row_reached, is_winner,
		        row_unlock_times_json, tile_completion_times_json
		 FROM run_results WHERE batch_id = ?
		 ORDER BY run_index, team_id`, batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []RunTeamRow{}
	for rows.Next() {
		var row RunTeamRow
		var params string
		err := rows.Scan(&row.RunIndex, &row.Seed, &row.TeamID, &row.TeamName,
			&row.Strategy, &params, &row.TotalPoints, &row.TilesCompletedCount,
			&row.RowReached, &row.IsWinner,
			&row.RowUnlockTimesJSON, &row.TileCompletionTimesJSON)
		if err != nil {
			return nil, err
		}
		if params != "" {
			if err := json.Unmarshal([]byte(params), &row.StrategyParams); err != nil {
				return nil, fmt.Errorf("decoding strategy params: %w", err)
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func newID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
