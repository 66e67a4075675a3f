package api

import (
	"net/http"

	"github.com/koopa0/chinchilla/internal/log"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checker HealthChecker
	logger  log.Logger
}

// NewHealthHandler creates a health handler. checker may be nil, in which
// case readiness always reports unavailable.
func NewHealthHandler(checker HealthChecker, logger log.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 whenever the process is serving.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 only when the document store is reachable.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		http.Error(w, "store not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.checker.Healthy(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
