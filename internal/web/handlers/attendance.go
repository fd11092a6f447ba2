package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// AttendanceHandler serves the attendance log.
type AttendanceHandler struct {
	service RecognizerService
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(svc RecognizerService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// parseTimeParam accepts RFC 3339 timestamps and plain dates (2024-06-01).
func parseTimeParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// List handles GET /api/v1/attendance with optional query parameters
// user_id, from and to. Bounds are inclusive; events come back oldest
// first.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.RecordFilter{UserID: r.URL.Query().Get("user_id")}

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from parameter")
			return
		}
		filter.Start = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to parameter")
			return
		}
		filter.End = t
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		respondError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	events, err := h.service.Records(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "attendance log unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}
