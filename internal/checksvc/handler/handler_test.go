package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc/checksvctest"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc/handler"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/rules"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/proto"
)

func newRouter(t *testing.T, opts ...checksvc.Option) (http.Handler, *metrics.Metrics) {
	t.Helper()
	engine, err := checksvctest.Engine()
	require.NoError(t, err)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := checksvc.New(engine, opts...)
	return handler.NewRouter(handler.New(svc, 1<<10), handler.RouterConfig{
		Metrics:        m,
		Health:         health.NewChecker(time.Second),
		RequestTimeout: 5 * time.Second,
	}), m
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

const checkBody = `{"title":"guide","units":[{"raw":"Send an e-mail.","file":"guide.xml","line":4}]}`

func TestCheckJSON(t *testing.T) {
	h, m := newRouter(t)
	rec := do(h, http.MethodPost, "/api/v1/check", checkBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	var resp proto.CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "guide", resp.Title)
	assert.Equal(t, int32(1), resp.Errors)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, "e-mail", resp.Diagnostics[0].Match)
	assert.Equal(t, []string{"email"}, resp.Diagnostics[0].Suggestions)
	assert.Equal(t, int32(4), resp.Diagnostics[0].Line)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/check", "200")))
}

func TestCheckFormats(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(h, http.MethodPost, "/api/v1/check?format=xml", checkBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, rec.Body.String(), "<?xml")
	assert.Contains(t, rec.Body.String(), "e-mail")

	rec = do(h, http.MethodPost, "/api/v1/check?format=text", checkBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "guide.xml")

	rec = do(h, http.MethodPost, "/api/v1/check?format=yaml", checkBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "unknown report format")
}

func TestCheckRejectsBadRequests(t *testing.T) {
	h, _ := newRouter(t)
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"units":`, http.StatusBadRequest},
		{"unknown field", `{"units":[{"raw":"x"}],"colour":true}`, http.StatusBadRequest},
		{"no units", `{"units":[]}`, http.StatusBadRequest},
		{"negative line", `{"units":[{"raw":"x","line":-2}]}`, http.StatusBadRequest},
		{"store without store", `{"units":[{"raw":"x"}],"store":true}`, http.StatusServiceUnavailable},
		{"too large", `{"units":[{"raw":"` + strings.Repeat("a", 2<<10) + `"}]}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/v1/check", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, errorBody(t, rec))
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	h, _ := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(middleware.RequestIDHeader))
}

func TestRuleSetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rules":[{"accept":"website","groups":[{"patterns":[{"text":"web-site"}]}]}]}`), 0o644))

	h, _ := newRouter(t, checksvc.WithLoader(rules.Loader(path)))

	rec := do(h, http.MethodGet, "/api/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var before proto.RuleSetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.True(t, before.Loaded)
	assert.True(t, before.Prefilter)

	rec = do(h, http.MethodPost, "/api/v1/rules/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var after proto.RuleSetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.NotEqual(t, before.Version, after.Version)

	rec = do(h, http.MethodPost, "/api/v1/check", `{"units":[{"raw":"Visit the web-site."}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "website")

	require.NoError(t, os.WriteFile(path, []byte(`{"rules":[{"groups":[{"patterns":[{"text":""}]}]}]}`), 0o644))
	rec = do(h, http.MethodPost, "/api/v1/rules/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/rules", "")
	var kept proto.RuleSetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kept))
	assert.Equal(t, after.Version, kept.Version)
}

func TestReloadWithoutSource(t *testing.T) {
	h, _ := newRouter(t)
	rec := do(h, http.MethodPost, "/api/v1/rules/reload", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no rules source is configured", errorBody(t, rec))
}

func TestReports(t *testing.T) {
	h, _ := newRouter(t, checksvc.WithStore(&checksvctest.Store{}))

	rec := do(h, http.MethodGet, "/api/v1/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":[]}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/v1/check", `{"title":"stored","units":[{"raw":"an e-mail"}],"store":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp proto.CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.ReportID)

	rec = do(h, http.MethodGet, "/api/v1/reports?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list proto.ListReportsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Reports, 1)
	assert.Equal(t, "stored", list.Reports[0].Title)

	rec = do(h, http.MethodGet, "/api/v1/reports/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"stored"`)

	rec = do(h, http.MethodGet, "/api/v1/reports/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/reports/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/reports?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportsWithoutStore(t *testing.T) {
	h, _ := newRouter(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/api/v1/reports", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/api/v1/reports/1", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodPost, "/api/v1/cache/invalidate", "").Code)
}

func TestHealthRoutes(t *testing.T) {
	h, _ := newRouter(t)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/ready", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodGet, "/api/v1/check", "").Code)
}

