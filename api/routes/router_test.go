package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/golacotv/golaco-backend/pkg/config"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

func newTestRouter(registry *prometheus.Registry) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:   &config.Config{App: config.AppConfig{Env: "test", Port: "0"}},
		Logger:   logg,
		Registry: registry,
	})
}

func TestHealthLiveReportsEnv(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Golaco-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
}

func TestPublicPing(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public ping got %d", resp.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route got %d", resp.Code)
	}
}

func TestMetricsMountedOnlyWithRegistry(t *testing.T) {
	without := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	without.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without registry got %d", resp.Code)
	}

	with := newTestRouter(prometheus.NewRegistry())
	resp = httptest.NewRecorder()
	with.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with registry got %d", resp.Code)
	}
}

func TestWebhookEndpointsFailClosedWithoutRails(t *testing.T) {
	router := newTestRouter(nil)
	for _, path := range []string{"/api/v1/webhooks/pix", "/api/v1/webhooks/stripe"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 for %s without a configured rail got %d", path, resp.Code)
		}
	}
}
