package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/retry"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

// stubDetector returns canned detections for handler tests.
type stubDetector struct {
	detections []detector.Detection
	err        error
}

func (s *stubDetector) Detect(ctx context.Context, image []byte) ([]detector.Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detections, nil
}

type testEnv struct {
	service *recognizer.Service
	store   *mock.EmbeddingStore
	ledger  *mock.Ledger
	det     *stubDetector
}

func newTestEnv() *testEnv {
	st := mock.NewEmbeddingStore()
	st.Seed(store.Mapping{
		"alice": {{0, 0, 0, 0}},
		"bob":   {{10, 10, 10, 10}},
	})
	ledger := mock.NewLedger(5 * time.Minute)
	det := &stubDetector{}
	svc := recognizer.New(det, st, ledger, recognizer.Options{
		Threshold:   0.6,
		SnapshotTTL: time.Minute,
		Retry: retry.Policy{
			MaxAttempts:     1,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
		},
	})
	return &testEnv{service: svc, store: st, ledger: ledger, det: det}
}

// multipartRequest builds a multipart POST with an image part plus extra
// string fields.
func multipartRequest(target string, image []byte, fields map[string]string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if image != nil {
		part, _ := mw.CreateFormFile("image", "face.jpg")
		part.Write(image)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
