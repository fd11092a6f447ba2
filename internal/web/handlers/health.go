package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports service liveness plus basic pipeline stats.
type HealthHandler struct {
	service   RecognizerService
	startedAt time.Time
}

// NewHealthHandler creates a health handler anchored at the server start time.
func NewHealthHandler(svc RecognizerService, startedAt time.Time) *HealthHandler {
	return &HealthHandler{service: svc, startedAt: startedAt}
}

// Check handles GET /api/v1/health. The endpoint stays green even when the
// backing store is down; the enrolled count is simply omitted in that case.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}
	if count, err := h.service.EnrolledCount(r.Context()); err == nil {
		body["enrolled_users"] = count
	}
	respondJSON(w, http.StatusOK, body)
}
