package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/model"
)

// QueryExecutor is the subset of query.Service the HTTP layer depends on.
type QueryExecutor interface {
	Execute(ctx context.Context, connectionID string, q *model.QueryModel) (*model.QueryResult, error)
}

type handler struct {
	svc    QueryExecutor
	build  BuildInfo
	logger *slog.Logger
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.build.Version,
	})
}

type executeRequest struct {
	ConnectionID string           `json:"connectionId"`
	Query        model.QueryModel `json:"query"`
}

// executeQuery handles POST /api/v1/query/execute, per spec §6. A backend
// failure during execute is not an HTTP error: it comes back as a 200 with
// QueryResult.error populated, per spec §7.
func (h *handler) executeQuery(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConnectionID == "" {
		writeError(w, http.StatusBadRequest, "connectionId is required")
		return
	}

	result, err := h.svc.Execute(r.Context(), req.ConnectionID, &req.Query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if ae, ok := err.(*apperrors.Error); ok {
		switch ae.Kind {
		case apperrors.KindInvalidQuery, apperrors.KindUnsupported, apperrors.KindConfigError:
			status = http.StatusBadRequest
		case apperrors.KindNotFound:
			status = http.StatusNotFound
		case apperrors.KindBackendError:
			status = http.StatusInternalServerError
		}
	}
	h.logger.Error("query request failed", "error", err)
	writeError(w, status, sanitizeError(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
