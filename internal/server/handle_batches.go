package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// BatchLaunchRequest is the request body for POST /api/snapshots/{id}/batches.
type BatchLaunchRequest struct {
	Seed        string `json:"seed"`
	Runs        int    `json:"runs"`
	Parallelism int    `json:"parallelism"`
}

// BatchResultsResponse is the response for GET /api/batches/{id}/results.
type BatchResultsResponse struct {
	Batch   BatchDetail  `json:"batch"`
	Results []RunTeamRow `json:"results"`
}

const maxBatchRuns = 100000

func handleLaunchBatch(sim *Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BatchLaunchRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Seed == "" {
			writeError(w, http.StatusBadRequest, "seed is required")
			return
		}
		if req.Runs < 1 || req.Runs > maxBatchRuns {
			writeError(w, http.StatusBadRequest, "runs must be between 1 and 100000")
			return
		}
		if req.Parallelism < 1 {
			req.Parallelism = 1
		}

		snapshotID := chi.URLParam(r, "id")
		snap, err := sim.Snapshot(r.Context(), snapshotID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		b, err := sim.store.CreateBatch(r.Context(), snapshotID, req.Seed, req.Runs, req.Parallelism)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sim.Launch(b, snap)
		writeJSON(w, http.StatusAccepted, b)
	}
}

func handleGetBatch(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := store.GetBatch(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func handleBatchResults(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		b, err := store.GetBatch(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		results, err := store.ListBatchResults(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, BatchResultsResponse{Batch: b, Results: results})
	}
}
