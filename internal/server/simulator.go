package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clanevents/bingosim/internal/batch"
	"github.com/clanevents/bingosim/internal/snapshot"
)

const snapshotCacheSize = 32

// Simulator owns batch execution: it parses snapshots through a bounded LRU
// cache, runs batches in the background, persists every finished run, and
// publishes progress to SSE subscribers.
type Simulator struct {
	store  *Store
	cache  *snapshotCache
	broker *Broker
	logger *slog.Logger

	// base outlives HTTP requests so launched batches keep running; it is
	// cancelled on process shutdown.
	base context.Context
	wg   sync.WaitGroup
}

func NewSimulator(base context.Context, store *Store, logger *slog.Logger) *Simulator {
	return &Simulator{
		store:  store,
		cache:  newSnapshotCache(snapshotCacheSize),
		broker: NewBroker(),
		logger: logger,
		base:   base,
	}
}

// Snapshot returns the parsed, validated snapshot for id, through the cache.
func (s *Simulator) Snapshot(ctx context.Context, id string) (*snapshot.EventSnapshot, error) {
	if snap, ok := s.cache.get(id); ok {
		return snap, nil
	}
	det, err := s.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot.Parse(det.Data)
	if err != nil {
		return nil, err
	}
	s.cache.put(id, snap)
	return snap, nil
}

// Launch starts the batch in the background. Progress lands in the store and
// on the broker; the call returns immediately.
func (s *Simulator) Launch(b BatchDetail, snap *snapshot.EventSnapshot) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(b, snap)
	}()
}

// Wait blocks until every launched batch has finished.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

func (s *Simulator) execute(b BatchDetail, snap *snapshot.EventSnapshot) {
	ctx := s.base
	log := s.logger.With("batch_id", b.ID, "snapshot_id", b.SnapshotID)

	if err := s.store.MarkBatchRunning(ctx, b.ID); err != nil {
		log.Error("marking batch running", "error", err)
		return
	}
	log.Info("batch started", "runs", b.RunsTotal, "parallelism", b.Parallelism)

	completed := 0
	_, err := batch.Execute(ctx, snap, b.Seed, b.RunsTotal, &batch.Options{
		Parallelism: b.Parallelism,
		OnRunDone: func(res batch.RunResult) {
			if err := s.store.RecordRun(ctx, b.ID, res); err != nil {
				log.Error("recording run", "run_index", res.RunIndex, "error", err)
				return
			}
			completed++
			s.broker.Publish(b.ID, BatchEvent{
				Type:          "run",
				RunIndex:      res.RunIndex,
				RunsCompleted: completed,
				RunsTotal:     b.RunsTotal,
			})
		},
	})

	status, errMsg := BatchCompleted, ""
	if err != nil {
		status, errMsg = BatchFailed, err.Error()
		log.Error("batch failed", "error", err)
	} else {
		log.Info("batch completed", "runs", b.RunsTotal)
	}

	if err := s.store.FinishBatch(context.WithoutCancel(ctx), b.ID, status, errMsg); err != nil {
		log.Error("finishing batch", "error", err)
	}
	s.broker.Publish(b.ID, BatchEvent{
		Type:          "done",
		RunsCompleted: completed,
		RunsTotal:     b.RunsTotal,
		Status:        status,
		Error:         errMsg,
	})
}
