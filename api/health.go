package api

import (
	"context"
	"net/http"
	"time"

	"github.com/koopa0/artivault/internal/artifact"
	"github.com/koopa0/artivault/internal/log"
)

// readinessTimeout bounds the cache ping so a wedged database cannot
// hang the probe.
const readinessTimeout = 2 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store  *artifact.Store // optional
	logger log.Logger
}

// RegisterRoutes registers the probe endpoints.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
}

// Health reports process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether dependencies are reachable. Without a cache
// there is nothing to check and the service is ready by definition.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, CodeInternal, "artifact cache unreachable")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}
