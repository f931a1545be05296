package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/config"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/log"
)

func TestHealthEndpointAlwaysOK(t *testing.T) {
	srv := NewServer(NewEventsHandler(&recordingProcessor{}, log.NewNop()), nil, log.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReadyEndpointFailsWithoutPool(t *testing.T) {
	srv := NewServer(NewEventsHandler(&recordingProcessor{}, log.NewNop()), nil, log.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRecoveryMiddlewareConvertsPanics(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := chain(panicking, recoveryMiddleware(log.NewNop()), loggingMiddleware(log.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestEventsRouteOnlyAcceptsPOST(t *testing.T) {
	srv := NewServer(NewEventsHandler(&recordingProcessor{}, log.NewNop()), nil, log.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/slack/events", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestDefaultAddrMatchesConfigDefault(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != DefaultAddr {
		t.Errorf("config listen_addr default = %q, api.DefaultAddr = %q; keep them in sync", cfg.ListenAddr, DefaultAddr)
	}
}
