package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// EnrollHandler handles user enrollment uploads.
type EnrollHandler struct {
	service RecognizerService
}

// NewEnrollHandler creates a new enroll handler.
func NewEnrollHandler(svc RecognizerService) *EnrollHandler {
	return &EnrollHandler{service: svc}
}

// Enroll handles POST /api/v1/enroll. Expects multipart fields "user_id"
// and "image". Repeated enrollments for the same user accumulate
// embeddings, which improves matching across angles and lighting.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	image, err := imageFromRequest(r, constants.MaxUploadSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := h.service.Enroll(r.Context(), userID, image)
	if err != nil {
		switch {
		case errors.Is(err, recognizer.ErrInvalidUserID):
			respondError(w, http.StatusBadRequest, "invalid user_id")
		case errors.Is(err, recognizer.ErrNoFace):
			respondError(w, http.StatusUnprocessableEntity, "no face found in image")
		case errors.Is(err, detector.ErrDetectionFailed):
			respondError(w, http.StatusUnprocessableEntity, "image could not be processed")
		default:
			respondError(w, http.StatusInternalServerError, "enrollment failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
