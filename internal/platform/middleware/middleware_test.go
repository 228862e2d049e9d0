package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func doRequest(mw echo.MiddlewareFunc, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(handler)(c)
	return rec, err
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRequestIDGenerated(t *testing.T) {
	rec, err := doRequest(RequestID(), okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID header")
	}
}

func TestRequestIDHonorsCaller(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := RequestID()(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "caller-id" {
		t.Errorf("expected caller-supplied id, got %q", got)
	}
	if got, _ := c.Get("request_id").(string); got != "caller-id" {
		t.Errorf("expected id on context, got %q", got)
	}
}

func logRequest(t *testing.T, target string, handler echo.HandlerFunc) string {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := Logger(logger)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.String()
}

func TestLoggerOmitsQueryString(t *testing.T) {
	out := logRequest(t, "/api/v1/intake-sessions?patient_ref=patient-1", okHandler)
	if !strings.Contains(out, `"path":"/api/v1/intake-sessions"`) {
		t.Errorf("expected the request path in the log, got %s", out)
	}
	if strings.Contains(out, "patient_ref") {
		t.Errorf("query parameters must not be logged, got %s", out)
	}
}

func TestLoggerSkipsHealthChecks(t *testing.T) {
	if out := logRequest(t, "/health", okHandler); out != "" {
		t.Errorf("health probes should not be logged, got %s", out)
	}
	if out := logRequest(t, "/health/db", okHandler); out != "" {
		t.Errorf("db health probes should not be logged, got %s", out)
	}
}

func TestLoggerWarnsOnClientErrors(t *testing.T) {
	out := logRequest(t, "/", func(c echo.Context) error {
		return c.NoContent(http.StatusUnprocessableEntity)
	})
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level for a 4xx response, got %s", out)
	}
}

func TestRecoveryConvertsPanic(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	_, err := doRequest(Recovery(logger), func(c echo.Context) error {
		panic("boom")
	})
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 HTTPError from panic, got %v", err)
	}
}

func TestSecurityHeadersSet(t *testing.T) {
	rec, err := doRequest(SecurityHeaders(), okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Cache-Control"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("expected %s header to be set", h)
		}
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected no-store, got %q", got)
	}
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3})
	e := echo.New()
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := mw(okHandler)(c); err != nil {
			t.Fatalf("request %d unexpectedly limited: %v", i, err)
		}
	}
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("first request unexpectedly limited: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req2, rec2)
	err := mw(okHandler)(c2)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", err)
	}
	if rec2.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on limited response")
	}
}

func TestRequestTimeoutReturns504(t *testing.T) {
	rec, err := doRequest(RequestTimeout(20*time.Millisecond), func(c echo.Context) error {
		select {
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		case <-time.After(200 * time.Millisecond):
			return c.NoContent(http.StatusOK)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
}

func TestRequestTimeoutPassesFastHandlers(t *testing.T) {
	rec, err := doRequest(RequestTimeout(time.Second), okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
