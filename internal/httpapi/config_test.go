package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSetMaxBodyBytes(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(123)
	if maxBodyBytes != 123 {
		t.Fatalf("maxBodyBytes=%d", maxBodyBytes)
	}
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("non-positive should reset to default, got %d", maxBodyBytes)
	}
}

func TestSetCORSOptions_CopiesSlices(t *testing.T) {
	defer SetCORSOptions(false, nil, nil, nil)
	origins := []string{"https://a.example"}
	SetCORSOptions(true, origins, []string{"GET"}, []string{"Content-Type"})
	origins[0] = "mutated"
	if !corsEnabled || corsAllowedOrigins[0] != "https://a.example" {
		t.Fatalf("unexpected cors state: %v %v", corsEnabled, corsAllowedOrigins)
	}
}

func TestCORS_PreflightWhenEnabled(t *testing.T) {
	defer SetCORSOptions(false, nil, nil, nil)
	SetCORSOptions(true, []string{"https://a.example"}, []string{"GET", "POST"}, []string{"Content-Type"})
	r := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodOptions, "/fit", nil)
	req.Header.Set("Origin", "https://a.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://a.example" {
		t.Fatalf("allow-origin=%q status=%d", got, w.Code)
	}
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	defer SetRateLimit(0)
	SetRateLimit(2)
	r := NewMux(&mockService{})
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		r.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status=%d", last.Code)
	}
	if !strings.Contains(last.Body.String(), "rate_limited") {
		t.Fatalf("body=%q", last.Body.String())
	}
}

func TestSetRateLimit_Negative(t *testing.T) {
	defer SetRateLimit(0)
	SetRateLimit(-5)
	if rateLimitPerMinute != 0 {
		t.Fatalf("rateLimitPerMinute=%d", rateLimitPerMinute)
	}
}
