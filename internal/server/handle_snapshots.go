package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clanevents/bingosim/internal/snapshot"
)

// Snapshot uploads are full event documents; 4 MB is generous for any board.
const maxSnapshotBytes = 4 << 20

func handleCreateSnapshot(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		data, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading request body")
			return
		}
		if len(data) > maxSnapshotBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "snapshot too large")
			return
		}

		snap, err := snapshot.Parse(data)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		sum, err := store.CreateSnapshot(r.Context(), snap.Name, data)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, sum)
	}
}

func handleListSnapshots(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snaps, err := store.ListSnapshots(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, snaps)
	}
}

func handleGetSnapshot(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		det, err := store.GetSnapshot(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, det)
	}
}
