package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// apiRouter wires the production routes against an in-memory database and
// returns a login helper yielding admin cookies.
func apiRouter(t *testing.T) (*chi.Mux, *sql.DB, func() []*http.Cookie) {
	t.Helper()
	db := setupTestDB(t)
	logger := testLogger()

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	_, err = db.Exec(`INSERT INTO admins (id, email, password_hash) VALUES (?, ?, ?)`,
		newID(), "admin@bingosim.local", string(hash))
	if err != nil {
		t.Fatalf("seeding admin: %v", err)
	}

	sim := NewSimulator(context.Background(), NewStore(db), logger)
	t.Cleanup(sim.Wait)

	r := chi.NewRouter()
	addRoutes(r, logger, db, sim, "")

	login := func() []*http.Cookie {
		body, _ := json.Marshal(AdminLoginRequest{Email: "admin@bingosim.local", Password: "changeme"})
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
		}
		return w.Result().Cookies()
	}

	return r, db, login
}

func uploadSnapshot(t *testing.T, r http.Handler, cookies []*http.Cookie) SnapshotSummary {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/snapshots", bytes.NewReader(miniSnapshotJSON(t)))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sum SnapshotSummary
	json.NewDecoder(w.Body).Decode(&sum)
	return sum
}

func TestSnapshotUploadAndFetch(t *testing.T) {
	r, _, login := apiRouter(t)
	cookies := login()

	sum := uploadSnapshot(t, r, cookies)
	if sum.Name != "Mini Board" {
		t.Errorf("name = %q, want %q", sum.Name, "Mini Board")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/"+sum.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	var det SnapshotDetail
	json.NewDecoder(w.Body).Decode(&det)
	if det.ID != sum.ID || len(det.Data) == 0 {
		t.Errorf("detail = %+v, want stored document", det)
	}
}

func TestSnapshotUploadRequiresAuth(t *testing.T) {
	r, _, _ := apiRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/snapshots", bytes.NewReader(miniSnapshotJSON(t)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestSnapshotUploadRejectsInvalid(t *testing.T) {
	r, _, login := apiRouter(t)
	cookies := login()

	req := httptest.NewRequest(http.MethodPost, "/api/snapshots",
		bytes.NewReader([]byte(`{"name":"broken","durationSeconds":0}`)))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func waitForBatch(t *testing.T, r http.Handler, id string) BatchDetail {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/api/batches/"+id, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("get batch: expected 200, got %d", w.Code)
		}

		var b BatchDetail
		json.NewDecoder(w.Body).Decode(&b)
		if b.Status == BatchCompleted || b.Status == BatchFailed {
			return b
		}
		if time.Now().After(deadline) {
			t.Fatalf("batch %s still %q after deadline", id, b.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestBatchEndToEnd(t *testing.T) {
	r, _, login := apiRouter(t)
	cookies := login()
	sum := uploadSnapshot(t, r, cookies)

	body, _ := json.Marshal(BatchLaunchRequest{Seed: "batch-seed", Runs: 3, Parallelism: 2})
	req := httptest.NewRequest(http.MethodPost, "/api/snapshots/"+sum.ID+"/batches", bytes.NewReader(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("launch: expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var launched BatchDetail
	json.NewDecoder(w.Body).Decode(&launched)

	done := waitForBatch(t, r, launched.ID)
	if done.Status != BatchCompleted {
		t.Fatalf("batch status = %q (error %q), want completed", done.Status, done.Error)
	}
	if done.RunsCompleted != 3 {
		t.Errorf("runs completed = %d, want 3", done.RunsCompleted)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/batches/"+launched.ID+"/results", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("results: expected 200, got %d", w.Code)
	}

	var resp BatchResultsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Results) != 3 {
		t.Fatalf("got %d result rows, want 3 (one team x three runs)", len(resp.Results))
	}
	for i, row := range resp.Results {
		if row.RunIndex != i {
			t.Errorf("row %d has run index %d", i, row.RunIndex)
		}
		if !row.IsWinner {
			t.Errorf("sole team should win run %d", i)
		}
		if row.TotalPoints != 5 {
			t.Errorf("run %d points = %d, want 5", i, row.TotalPoints)
		}
	}
}

func TestLaunchBatchValidation(t *testing.T) {
	r, _, login := apiRouter(t)
	cookies := login()
	sum := uploadSnapshot(t, r, cookies)

	post := func(path string, body []byte) int {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	noRuns, _ := json.Marshal(BatchLaunchRequest{Seed: "s", Runs: 0})
	if code := post("/api/snapshots/"+sum.ID+"/batches", noRuns); code != http.StatusBadRequest {
		t.Errorf("zero runs: expected 400, got %d", code)
	}

	noSeed, _ := json.Marshal(BatchLaunchRequest{Runs: 1})
	if code := post("/api/snapshots/"+sum.ID+"/batches", noSeed); code != http.StatusBadRequest {
		t.Errorf("empty seed: expected 400, got %d", code)
	}

	ok, _ := json.Marshal(BatchLaunchRequest{Seed: "s", Runs: 1})
	if code := post("/api/snapshots/missing/batches", ok); code != http.StatusNotFound {
		t.Errorf("missing snapshot: expected 404, got %d", code)
	}
}

func TestGetBatchNotFound(t *testing.T) {
	r, _, _ := apiRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/batches/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
