package app

import (
	"bytes"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ardash/internal/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("UPLOAD_TTL", "2h")
	t.Setenv("LINKED_WORKBOOK", "/data/ar.xlsx")
	t.Setenv("DATE_DAY_FIRST", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.UploadTTL)
	assert.Equal(t, int64(20<<20), cfg.UploadMaxBytes)
	assert.Equal(t, "/data/ar.xlsx", cfg.LinkedWorkbook)
	assert.True(t, cfg.DateDayFirst)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidLimits(t *testing.T) {
	t.Setenv("UPLOAD_MAX_BYTES", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestRouterServesHealthStaticAndMetrics(t *testing.T) {
	cfg := &Config{AppEnv: "production", AppRequestTimeout: time.Second}
	router := NewRouter(RouterParams{Config: cfg, Metrics: observability.NewMetrics()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ardash_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRootRedirectsToDashboard(t *testing.T) {
	router := NewRouter(RouterParams{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/ar", rec.Header().Get("Location"))
}

func TestMimeTypesRegistered(t *testing.T) {
	assert.NotEmpty(t, mime.TypeByExtension(".xlsx"))
	assert.NotEmpty(t, mime.TypeByExtension(".csv"))
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "staging", LogFormat: "JSON", LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"service":"ardash"`)
	assert.Contains(t, out, `"env":"staging"`)

	buf.Reset()
	newLogger(&buf, nil).Debug("quiet")
	assert.Empty(t, buf.String())
}
