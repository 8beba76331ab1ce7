package engine

import (
	"fmt"
	"hash/fnv"
)

// RunSeedString derives the per-run seed string for one run of a batch.
// Batches of thousands of runs each get an independent, reproducible seed.
func RunSeedString(batchSeed string, runIndex int) string {
	return fmt.Sprintf("%s_%d", batchSeed, runIndex)
}

// RNGSeed derives the integer RNG seed for one run of a batch. Distinct run
// indices yield distinct seeds for the same batch seed.
func RNGSeed(batchSeed string, runIndex int) int64 {
	return seedFromString(RunSeedString(batchSeed, runIndex))
}

func seedFromString(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// executionSeed gives every scheduled execution its own RNG stream, so
// outcome sampling does not depend on how many unrelated executions were
// scheduled before it.
func executionSeed(runSeed int64, seq int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d", runSeed, seq)
	return int64(h.Sum64())
}
