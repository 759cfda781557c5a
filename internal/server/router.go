// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/jsonstore/internal/documents"
	"github.com/maruel/jsonstore/internal/metrics"
	"github.com/maruel/jsonstore/internal/server/handlers"
)

// NewRouter creates and configures the HTTP router.
//
// Serves the document API at /api/json, plus /api/health, /api/schema and the
// Prometheus metrics at /metrics.
func NewRouter(svc *documents.Service, cfg *Config) http.Handler {
	mux := &http.ServeMux{}
	dh := handlers.NewDocumentHandler(svc)
	version := ""
	if cfg != nil {
		version = cfg.Version
	}
	hh := handlers.NewHealthHandler(version)
	sh := handlers.NewSchemaHandler()

	mux.Handle("GET /api/health", Wrap(hh.Health, cfg))
	mux.Handle("GET /api/schema", Wrap(sh.Schema, cfg))

	// Documents. The literal "count" segment wins over {id}.
	mux.Handle("GET /api/json", Wrap(dh.ListDocuments, cfg))
	mux.Handle("POST /api/json", Wrap(dh.CreateDocument, cfg))
	mux.Handle("DELETE /api/json", Wrap(dh.DeleteWhere, cfg))
	mux.Handle("GET /api/json/count", Wrap(dh.CountDocuments, cfg))
	mux.Handle("GET /api/json/{id}", Wrap(dh.GetDocument, cfg))
	mux.Handle("PATCH /api/json/{id}", Wrap(dh.PatchDocument, cfg))
	mux.Handle("DELETE /api/json/{id}", Wrap(dh.DeleteDocument, cfg))
	mux.Handle("PATCH /api/json/{id}/merge", Wrap(dh.MergePatchDocument, cfg))

	mux.Handle("GET /metrics", metrics.Handler())

	return metrics.InstrumentHandler(LogRequests(mux))
}
