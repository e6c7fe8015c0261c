// Package httpapi wires the thinnest HTTP surface the Query Service needs
// to be driven end-to-end: query execution and the health endpoints, per
// SPEC_FULL.md's HTTP SURFACE SCOPE decision.
package httpapi

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// BuildInfo carries the ldflags-stamped version banner for /api/health,
// matching the teacher's version/commit/date globals in api/main.go.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRouter assembles the chi router: logger+recoverer middleware, CORS
// from CORS_ORIGINS (default "*"), health endpoints, and the query
// execution endpoint, mirroring api/main.go's router assembly.
func NewRouter(svc QueryExecutor, build BuildInfo, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOrigins := []string{"*"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsOrigins = strings.Split(origins, ",")
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &handler{svc: svc, build: build, logger: logger}

	r.Get("/healthz", h.healthz)
	r.Get("/", h.health)
	r.Get("/api", h.health)
	r.Get("/api/health", h.health)
	r.Post("/api/v1/query/execute", h.executeQuery)

	return r
}
