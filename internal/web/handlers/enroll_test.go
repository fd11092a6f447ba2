package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/detector"
)

func TestEnrollSuccess(t *testing.T) {
	env := newTestEnv()
	env.det.detections = []detector.Detection{
		{Embedding: []float64{1, 2, 3, 4}, BBox: detector.BBox{Right: 100, Bottom: 100}, Score: 0.99},
	}
	handler := NewEnrollHandler(env.service)

	req := multipartRequest("/api/v1/enroll", []byte("img"), map[string]string{"user_id": "Carol Díaz"})
	rec := httptest.NewRecorder()
	handler.Enroll(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		UserID     string `json:"user_id"`
		Embeddings int    `json:"embeddings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.UserID != "carol_diaz" {
		t.Errorf("expected normalized id carol_diaz, got %q", resp.UserID)
	}
	if resp.Embeddings != 1 {
		t.Errorf("expected 1 embedding, got %d", resp.Embeddings)
	}

	mapping, _ := env.store.Load(context.Background())
	if len(mapping["carol_diaz"]) != 1 {
		t.Error("embedding not persisted")
	}
}

func TestEnrollMissingUserID(t *testing.T) {
	env := newTestEnv()
	handler := NewEnrollHandler(env.service)

	rec := httptest.NewRecorder()
	handler.Enroll(rec, multipartRequest("/api/v1/enroll", []byte("img"), nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEnrollSentinelUserID(t *testing.T) {
	env := newTestEnv()
	env.det.detections = []detector.Detection{
		{Embedding: []float64{1, 2, 3, 4}, Score: 0.99},
	}
	handler := NewEnrollHandler(env.service)

	rec := httptest.NewRecorder()
	handler.Enroll(rec, multipartRequest("/api/v1/enroll", []byte("img"), map[string]string{"user_id": "Unknown"}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for sentinel id, got %d", rec.Code)
	}
}

func TestEnrollNoFace(t *testing.T) {
	env := newTestEnv()
	handler := NewEnrollHandler(env.service)

	rec := httptest.NewRecorder()
	handler.Enroll(rec, multipartRequest("/api/v1/enroll", []byte("img"), map[string]string{"user_id": "dave"}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}
