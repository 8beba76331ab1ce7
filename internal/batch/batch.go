// Package batch runs many independently seeded simulations of one snapshot.
// Parallelism lives here, across runs; each run stays single threaded.
package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/clanevents/bingosim/internal/engine"
	"github.com/clanevents/bingosim/internal/snapshot"
)

// RunResult is the outcome of one run within a batch.
type RunResult struct {
	RunIndex int                    `json:"runIndex"`
	Seed     string                 `json:"seed"`
	Teams    []engine.TeamRunResult `json:"teams"`
}

// Options tunes batch execution.
type Options struct {
	// Parallelism bounds concurrent runs. Values below 1 mean serial.
	Parallelism int

	// OnRunDone, when set, is called once per finished run. Calls are
	// serialized but arrive in completion order, not run-index order.
	OnRunDone func(res RunResult)
}

// Execute runs the snapshot runs times, deriving each run's seed from
// batchSeed, and returns results ordered by run index. The same snapshot,
// batch seed, and run count produce identical results at any parallelism.
func Execute(ctx context.Context, snap *snapshot.EventSnapshot, batchSeed string, runs int, opts *Options) ([]RunResult, error) {
	if runs < 1 {
		return nil, fmt.Errorf("batch needs at least one run, got %d", runs)
	}
	if opts == nil {
		opts = &Options{}
	}
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]RunResult, runs)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < runs; i++ {
		i := i
		g.Go(func() error {
			seed := engine.RunSeedString(batchSeed, i)
			teams, err := engine.Run(gctx, snap, seed, nil)
			if err != nil {
				return fmt.Errorf("run %d (seed %q): %w", i, seed, err)
			}
			results[i] = RunResult{RunIndex: i, Seed: seed, Teams: teams}
			if opts.OnRunDone != nil {
				mu.Lock()
				opts.OnRunDone(results[i])
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
