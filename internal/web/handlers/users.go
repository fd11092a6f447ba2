package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// UsersHandler handles enrolled-user management.
type UsersHandler struct {
	service RecognizerService
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(svc RecognizerService) *UsersHandler {
	return &UsersHandler{service: svc}
}

// List handles GET /api/v1/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "user store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(users),
		"users": users,
	})
}

// Remove handles DELETE /api/v1/users/{userID}.
func (h *UsersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.service.RemoveUser(r.Context(), userID); err != nil {
		if errors.Is(err, recognizer.ErrInvalidUserID) {
			respondError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		respondError(w, http.StatusServiceUnavailable, "user store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"removed": recognizer.NormalizeUserID(userID)})
}
