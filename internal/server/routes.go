package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, db *sql.DB, sim *Simulator, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("BingoSim API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	r.Route("/api", func(r chi.Router) {
		// Read endpoints are open.
		r.Get("/snapshots", handleListSnapshots(sim.store))
		r.Get("/snapshots/{id}", handleGetSnapshot(sim.store))
		r.Get("/batches/{id}", handleGetBatch(sim.store))
		r.Get("/batches/{id}/results", handleBatchResults(sim.store))
		r.Get("/batches/{id}/events", handleBatchEvents(sim))

		// Mutations require an admin session.
		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(db))
			r.Post("/snapshots", handleCreateSnapshot(sim.store))
			r.Post("/snapshots/{id}/batches", handleLaunchBatch(sim))
		})

		r.Post("/admin/login", handleAdminLogin(db))
		r.Post("/admin/logout", handleAdminLogout(db))
		r.Get("/admin/me", handleAdminMe(db))
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
