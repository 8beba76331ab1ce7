package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "BingoSim API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Monte Carlo simulation service for clan bingo events.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/snapshots
	listSnapshots, _ := r.NewOperationContext(http.MethodGet, "/api/snapshots")
	listSnapshots.SetSummary("List snapshots")
	listSnapshots.SetDescription("Returns all stored event snapshots, newest first.")
	listSnapshots.AddRespStructure([]SnapshotSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listSnapshots)

	// POST /api/snapshots
	createSnapshot, _ := r.NewOperationContext(http.MethodPost, "/api/snapshots")
	createSnapshot.SetSummary("Upload snapshot")
	createSnapshot.SetDescription("Validates and stores an event snapshot document. Requires admin_session cookie.")
	createSnapshot.AddRespStructure(SnapshotSummary{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSnapshot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createSnapshot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createSnapshot)

	// GET /api/snapshots/{id}
	getSnapshot, _ := r.NewOperationContext(http.MethodGet, "/api/snapshots/{id}")
	getSnapshot.SetSummary("Get snapshot")
	getSnapshot.SetDescription("Returns a snapshot with its full document.")
	getSnapshot.AddRespStructure(SnapshotDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getSnapshot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSnapshot)

	// POST /api/snapshots/{id}/batches
	launchBatch, _ := r.NewOperationContext(http.MethodPost, "/api/snapshots/{id}/batches")
	launchBatch.SetSummary("Launch batch")
	launchBatch.SetDescription("Starts a seeded batch of simulation runs for the snapshot. Requires admin_session cookie.")
	launchBatch.AddReqStructure(BatchLaunchRequest{})
	launchBatch.AddRespStructure(BatchDetail{}, openapi.WithHTTPStatus(http.StatusAccepted))
	launchBatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	launchBatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	launchBatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(launchBatch)

	// GET /api/batches/{id}
	getBatch, _ := r.NewOperationContext(http.MethodGet, "/api/batches/{id}")
	getBatch.SetSummary("Get batch")
	getBatch.SetDescription("Returns the batch's status and run progress.")
	getBatch.AddRespStructure(BatchDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getBatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getBatch)

	// GET /api/batches/{id}/results
	getResults, _ := r.NewOperationContext(http.MethodGet, "/api/batches/{id}/results")
	getResults.SetSummary("Batch results")
	getResults.SetDescription("Returns every recorded per-team run result of the batch.")
	getResults.AddRespStructure(BatchResultsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getResults.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getResults)

	// GET /api/batches/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/batches/{id}/events")
	getEvents.SetSummary("SSE progress stream")
	getEvents.SetDescription("Server-Sent Events stream of run-completion progress for the batch.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	getEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getEvents)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with email and password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.SetDescription("Clears admin session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.SetDescription("Returns the currently authenticated admin. Requires admin_session cookie.")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
