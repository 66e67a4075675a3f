package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/koopa0/chinchilla/internal/agent"
	"github.com/koopa0/chinchilla/internal/log"
)

// maxQueryLen caps the query length in runes. Longer inputs are almost
// always pasted noise and would blow the rewrite prompt.
const maxQueryLen = 2000

// QueryHandler dispatches queries to category engines.
type QueryHandler struct {
	registry       *agent.Registry
	requestTimeout time.Duration
	logger         log.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(registry *agent.Registry, requestTimeout time.Duration, logger log.Logger) *QueryHandler {
	return &QueryHandler{registry: registry, requestTimeout: requestTimeout, logger: logger}
}

// RegisterRoutes registers query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.resolve)
	mux.HandleFunc("GET /api/categories", h.categories)
}

// resolve runs one request through the matching category engine.
func (h *QueryHandler) resolve(w http.ResponseWriter, r *http.Request) {
	var req agent.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "missing_category", "category is required")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}
	if utf8.RuneCountInString(req.Query) > maxQueryLen {
		writeError(w, http.StatusBadRequest, "query_too_long", "query exceeds maximum length")
		return
	}

	engine, err := h.registry.Lookup(req.Category)
	if err != nil {
		if errors.Is(err, agent.ErrUnknownCategory) {
			writeError(w, http.StatusNotFound, "unknown_category", "no such category: "+req.Category)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	resp, err := engine.Run(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeError(w, http.StatusGatewayTimeout, "timeout", "query resolution timed out")
			return
		}
		h.logger.Error("query resolution failed",
			"category", req.Category,
			"error", err,
			"request_id", requestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "resolution_failed", "")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// CategoriesResponse lists the registered category names.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// categories returns the registered category names, sorted.
func (h *QueryHandler) categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: h.registry.Categories()})
}
