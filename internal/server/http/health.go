package httpx

import (
	"context"
	"net/http"
)

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if r.opts.DBHealth == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()

	if err := r.opts.DBHealth(ctx); err != nil {
		r.log.Warn(req.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}
