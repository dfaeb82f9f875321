package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/auth"
	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/history"
	"github.com/yanqian/rockwatch/internal/domain/localization"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/routing"
	"github.com/yanqian/rockwatch/internal/domain/site"
	"github.com/yanqian/rockwatch/internal/infra/config"
	"github.com/yanqian/rockwatch/internal/infra/historyrepo"
	"github.com/yanqian/rockwatch/internal/infra/latestcache"
	"github.com/yanqian/rockwatch/internal/infra/siteregistry"
	"github.com/yanqian/rockwatch/internal/infra/thresholdfile"
)

type routerUnderTest struct {
	server  *http.Server
	history history.Service
	auth    auth.Service
}

func newRouterUnderTest(t *testing.T, secret string, reports ReportSource) routerUnderTest {
	t.Helper()
	logger := newTestLogger()

	table, err := thresholdfile.Default()
	require.NoError(t, err)
	orchestrator, err := risk.NewOrchestrator(table, nil, risk.DefaultClassifierConfig(), nil, logger)
	require.NoError(t, err)
	catalog, err := localization.BuiltinCatalog()
	require.NoError(t, err)
	router, err := routing.NewRouter(routing.DefaultTable())
	require.NoError(t, err)
	pipeline := evaluation.NewPipeline(orchestrator, risk.NewAssembler(table), localization.NewRenderer(catalog, logger), router)

	historySvc := history.NewService(history.Config{}, historyrepo.NewMemoryRepository(0), logger)
	evaluator := evaluation.NewService(evaluation.Config{}, pipeline, historySvc, latestcache.NewMemoryStore(), nil, nil, logger)
	registry, err := siteregistry.NewStatic([]site.Site{
		{ID: "jh-01", Name: "Jharia Pit 4", Region: "JHARKHAND"},
	})
	require.NoError(t, err)
	authSvc := auth.NewService(auth.Config{Secret: secret}, logger)

	cfg := &config.Config{
		HTTP:    config.HTTPConfig{Address: ":0"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	handler := NewHandler(evaluator, historySvc, registry, reports, nil, logger)
	return routerUnderTest{server: NewRouter(cfg, handler, authSvc), history: historySvc, auth: authSvc}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func performRequest(server *http.Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

const highReadings = `{"siteId":"jh-01","readings":{"vibration":8.2,"acoustic":96.4,"slope_stability":0.2}}`

func TestRouter_EvaluateReturnsBundle(t *testing.T) {
	r := newRouterUnderTest(t, "", nil)

	rec := performRequest(r.server, http.MethodPost, "/api/v1/evaluations", highReadings)
	require.Equal(t, http.StatusOK, rec.Code)

	var bundle evaluation.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	require.Equal(t, risk.LevelHigh, bundle.Assessment.Level)
	require.Equal(t, "jh-01", bundle.Site.ID)
	require.Len(t, bundle.Alerts, 2)
	require.Equal(t, "hi", bundle.Alerts[0].Language)

	latest := performRequest(r.server, http.MethodGet, "/api/v1/sites/jh-01/latest", "")
	require.Equal(t, http.StatusOK, latest.Code)
	var got evaluation.Bundle
	require.NoError(t, json.Unmarshal(latest.Body.Bytes(), &got))
	require.Equal(t, bundle.ID, got.ID)

	stored := performRequest(r.server, http.MethodGet, "/api/v1/assessments/"+bundle.ID, "")
	require.Equal(t, http.StatusOK, stored.Code)

	hist := performRequest(r.server, http.MethodGet, "/api/v1/sites/jh-01/history?limit=5", "")
	require.Equal(t, http.StatusOK, hist.Code)
	require.Contains(t, hist.Body.String(), bundle.ID)
}

func TestRouter_EvaluateErrors(t *testing.T) {
	r := newRouterUnderTest(t, "", nil)

	rec := performRequest(r.server, http.MethodPost, "/api/v1/evaluations", `{"siteId":"nope","readings":{"vibration":1}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, site.CodeNotFound, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(r.server, http.MethodPost, "/api/v1/evaluations", `{"siteId":"jh-01","readings":{"unknown_gauge":4}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, risk.CodeInsufficientData, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(r.server, http.MethodPost, "/api/v1/evaluations", `{"siteId":"jh-01","readings":"loud"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_LatestBeforeFirstEvaluation(t *testing.T) {
	r := newRouterUnderTest(t, "", nil)
	rec := performRequest(r.server, http.MethodGet, "/api/v1/sites/jh-01/latest", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_SitesListsRegistry(t *testing.T) {
	r := newRouterUnderTest(t, "", nil)
	rec := performRequest(r.server, http.MethodGet, "/api/v1/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sites []site.Site `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sites, 1)
	require.Equal(t, []string{"hi", "en"}, body.Sites[0].Languages)
}

func TestRouter_AlertLifecycle(t *testing.T) {
	r := newRouterUnderTest(t, "", nil)
	rec := performRequest(r.server, http.MethodPost, "/api/v1/evaluations", highReadings)
	require.Equal(t, http.StatusOK, rec.Code)
	var bundle evaluation.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))

	active := performRequest(r.server, http.MethodGet, "/api/v1/alerts?status=active", "")
	require.Equal(t, http.StatusOK, active.Code)
	require.Contains(t, active.Body.String(), bundle.ID)

	rec = performRequest(r.server, http.MethodPost, "/api/v1/alerts/"+bundle.ID+"/acknowledge", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(r.server, http.MethodPost, "/api/v1/alerts/"+bundle.ID+"/acknowledge", `{"by":"shift-lead"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var alert history.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))
	require.Equal(t, history.StatusAcknowledged, alert.Status)
	require.Equal(t, "shift-lead", alert.AcknowledgedBy)

	rec = performRequest(r.server, http.MethodPost, "/api/v1/alerts/"+bundle.ID+"/acknowledge", `{"by":"again"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = performRequest(r.server, http.MethodPost, "/api/v1/alerts/"+bundle.ID+"/resolve", "")
	require.Equal(t, http.StatusOK, rec.Code)

	stats := performRequest(r.server, http.MethodGet, "/api/v1/alerts/stats", "")
	require.Equal(t, http.StatusOK, stats.Code)
	var s history.Stats
	require.NoError(t, json.Unmarshal(stats.Body.Bytes(), &s))
	require.Equal(t, 1, s.Total)
	require.Equal(t, 1, s.ByStatus[history.StatusResolved])
	require.Equal(t, 1, s.ByLevel[risk.LevelHigh])

	rec = performRequest(r.server, http.MethodPost, "/api/v1/alerts/missing/resolve", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = performRequest(r.server, http.MethodGet, "/api/v1/alerts?status=bogus", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MutatingRoutesRequireTokenWhenAuthEnabled(t *testing.T) {
	r := newRouterUnderTest(t, "test-secret", nil)

	rec := performRequest(r.server, http.MethodPost, "/api/v1/evaluations", highReadings)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = performRequest(r.server, http.MethodPost, "/api/v1/evaluations", highReadings, "Authorization", "Bearer garbage")
	require.Equal(t, http.StatusForbidden, rec.Code)

	token, err := r.auth.Issue(context.Background(), "shift-lead", auth.RoleOperator)
	require.NoError(t, err)
	rec = performRequest(r.server, http.MethodPost, "/api/v1/evaluations", highReadings, "Authorization", "Bearer "+token.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var bundle evaluation.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))

	// the token subject is recorded as the acknowledging operator
	rec = performRequest(r.server, http.MethodPost, "/api/v1/alerts/"+bundle.ID+"/acknowledge", `{"by":"someone-else"}`, "Authorization", "Bearer "+token.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var alert history.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))
	require.Equal(t, "shift-lead", alert.AcknowledgedBy)

	// reads stay open
	rec = performRequest(r.server, http.MethodGet, "/api/v1/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

type stubReports struct {
	pdf []byte
	err error
}

func (s stubReports) Report(context.Context, string) ([]byte, error) {
	return s.pdf, s.err
}

func TestRouter_ReportPrefersArchive(t *testing.T) {
	r := newRouterUnderTest(t, "", stubReports{pdf: []byte("%PDF-archived")})
	rec := performRequest(r.server, http.MethodGet, "/api/v1/assessments/any/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t, "%PDF-archived", rec.Body.String())
}

func TestRouter_ReportRendersFromHistory(t *testing.T) {
	r := newRouterUnderTest(t, "", stubReports{err: errors.New("not archived")})
	rec := performRequest(r.server, http.MethodPost, "/api/v1/evaluations", highReadings)
	require.Equal(t, http.StatusOK, rec.Code)
	var bundle evaluation.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))

	rec = performRequest(r.server, http.MethodGet, "/api/v1/assessments/"+bundle.ID+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = performRequest(r.server, http.MethodGet, "/api/v1/assessments/missing/report", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := newRouterUnderTest(t, "", nil)
	require.Equal(t, http.StatusOK, performRequest(r.server, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, performRequest(r.server, http.MethodGet, "/metrics", "").Code)
	require.Equal(t, http.StatusServiceUnavailable, performRequest(r.server, http.MethodGet, "/api/v1/ws/alerts", "").Code)
}

func TestRetryExclusionPatterns(t *testing.T) {
	patterns := []string{"/api/v1/alerts/*/acknowledge", "/api/v1/alerts/*/resolve"}
	require.True(t, excluded("/api/v1/alerts/abc-123/acknowledge", patterns))
	require.True(t, excluded("/api/v1/alerts/abc/resolve", patterns))
	require.False(t, excluded("/api/v1/evaluations", patterns))
	require.False(t, excluded("/api/v1/alerts/a/b/resolve", patterns))
}

func TestRetryRepeatsTransientFailures(t *testing.T) {
	attempts := 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "payload", string(body))
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := withRetry(inner, config.RetryConfig{Enabled: true, MaxAttempts: 2, BaseBackoff: time.Millisecond}, newTestLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/evaluations", bytes.NewBufferString("payload")))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, attempts)
	require.Equal(t, "2", rec.Header().Get(retryAttemptHeader))
}

func TestRetrySkipsExcludedRoutes(t *testing.T) {
	attempts := 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})
	h := withRetry(inner, config.RetryConfig{
		Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond,
		Exclude: []string{"/api/v1/alerts/*/resolve"},
	}, newTestLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/x/resolve", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, attempts)
}

func TestClientLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newClientLimiter(config.RateLimitConfig{RequestsPerMinute: 60, Burst: 2}, func() time.Time { return now })

	_, ok := limiter.take("10.0.0.1")
	require.True(t, ok)
	_, ok = limiter.take("10.0.0.1")
	require.True(t, ok)
	wait, ok := limiter.take("10.0.0.1")
	require.False(t, ok)
	require.Equal(t, time.Second, wait)

	_, ok = limiter.take("10.0.0.2")
	require.True(t, ok, "buckets are per client")

	now = now.Add(time.Second)
	_, ok = limiter.take("10.0.0.1")
	require.True(t, ok)
}

func TestErrorResponsesCarryRequestID(t *testing.T) {
	r := newRouterUnderTest(t, "", nil)
	rec := performRequest(r.server, http.MethodGet, "/api/v1/sites/missing/latest", "", requestIDHeader, "req-42")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "req-42", rec.Header().Get(requestIDHeader))

	var payload struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "req-42", payload.Error.RequestID)
	require.Equal(t, site.CodeNotFound, payload.Error.Code)
}

func TestCORSOnlyEchoesAllowedOrigins(t *testing.T) {
	handler := corsMiddleware([]string{"https://ops.example.com"})
	for origin, want := range map[string]string{
		"https://ops.example.com":  "https://ops.example.com",
		"https://evil.example.com": "",
	} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodOptions, "/api/v1/sites", nil)
		c.Request.Header.Set("Origin", origin)
		handler(c)
		require.Equal(t, want, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}
