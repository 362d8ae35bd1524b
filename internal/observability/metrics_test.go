package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestGuardAndAuthzDecisionsAreCounted(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveGuardDecision("protected", "redirect_login")
	metrics.ObserveGuardDecision("protected", "redirect_login")
	metrics.ObserveSessionFailure()
	metrics.ObserveAuthzDecision("permission", false)
	metrics.ObserveAuthzDecision("role", true)

	body := scrape(t, metrics)
	for _, want := range []string{
		`tenantdesk_guard_decisions_total{class="protected",outcome="redirect_login"} 2`,
		`tenantdesk_guard_session_failures_total 1`,
		`tenantdesk_authz_decisions_total{check="permission",result="deny"} 1`,
		`tenantdesk_authz_decisions_total{check="role",result="allow"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveGuardDecision("public", "pass")
	metrics.ObserveSessionFailure()
	metrics.ObserveAuthzDecision("role", true)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}

func TestRegistererExposesCustomCollectors(t *testing.T) {
	metrics := NewMetrics()
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tenantdesk_active_sessions",
		Help: "Sessions currently stored.",
	})
	if err := metrics.Registerer().Register(sessions); err != nil {
		t.Fatalf("register collector: %v", err)
	}
	sessions.Set(3)

	body := scrape(t, metrics)
	if !strings.Contains(body, "tenantdesk_active_sessions 3") {
		t.Fatalf("expected custom gauge in metrics output:\n%s", body)
	}
}
