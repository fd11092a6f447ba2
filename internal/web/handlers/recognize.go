package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/detector"
)

// RecognizeHandler handles face recognition uploads.
type RecognizeHandler struct {
	service RecognizerService
}

// NewRecognizeHandler creates a new recognize handler.
func NewRecognizeHandler(svc RecognizerService) *RecognizeHandler {
	return &RecognizeHandler{service: svc}
}

// Recognize handles POST /api/v1/recognize. The image is posted as the
// multipart field "image"; an optional "source" field tags where the
// sighting came from (camera id, kiosk name).
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	image, err := imageFromRequest(r, constants.MaxUploadSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = "api"
	}

	results, err := h.service.RecognizeAndLog(r.Context(), image, source)
	if err != nil {
		if errors.Is(err, detector.ErrDetectionFailed) {
			respondError(w, http.StatusUnprocessableEntity, "image could not be processed")
			return
		}
		if results == nil {
			respondError(w, http.StatusServiceUnavailable, "recognition unavailable")
			return
		}
		// Degraded mode or partial ledger failure: the matches are still
		// valid, so return them and log the condition.
		log.Printf("recognition degraded for source %s: %v", sanitizeForLog(source), err)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"faces_count": len(results),
		"faces":       results,
	})
}
