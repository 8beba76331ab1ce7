// Command simulate runs a batch of seeded simulations against a snapshot
// file and writes the per-run team results as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/clanevents/bingosim/internal/batch"
	"github.com/clanevents/bingosim/internal/snapshot"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		snapPath = fs.String("snapshot", "", "path to the event snapshot JSON file")
		seed     = fs.String("seed", "", "batch seed string")
		runs     = fs.Int("runs", 1, "number of runs")
		parallel = fs.Int("parallel", 1, "maximum concurrent runs")
		outPath  = fs.String("out", "", "output file (default stdout)")
		verbose  = fs.Bool("v", false, "log per-run progress")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *snapPath == "" || *seed == "" {
		fs.Usage()
		return fmt.Errorf("-snapshot and -seed are required")
	}

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	data, err := os.ReadFile(*snapPath)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	snap, err := snapshot.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}

	opts := &batch.Options{Parallelism: *parallel}
	if *verbose {
		opts.OnRunDone = func(res batch.RunResult) {
			logger.Info("run finished", "run_index", res.RunIndex, "seed", res.Seed)
		}
	}

	results, err := batch.Execute(ctx, snap, *seed, *runs, opts)
	if err != nil {
		return fmt.Errorf("executing batch: %w", err)
	}

	out := stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}
