package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/relink/config"
	"github.com/sp3dr4/relink/internal/application"
	"github.com/sp3dr4/relink/internal/domain"
	"github.com/sp3dr4/relink/internal/infrastructure/cache"
	"github.com/sp3dr4/relink/internal/infrastructure/memory"
	"github.com/sp3dr4/relink/internal/pkg/metrics"
)

const testBaseURL = "http://localhost:8080"

type downCache struct{}

func (downCache) Get(context.Context, string) (string, error) {
	return "", domain.ErrCacheUnavailable
}

func (downCache) Set(context.Context, string, string, time.Duration) error {
	return domain.ErrCacheUnavailable
}

func (downCache) Ping(context.Context) error {
	return domain.ErrCacheUnavailable
}

// downRepository fails every call the way a store with an exhausted pool does.
type downRepository struct {
	*memory.URLRepository
}

func (downRepository) Create(context.Context, *domain.URL) (*domain.URL, error) {
	return nil, domain.ErrStoreUnavailable
}

func (downRepository) FindByShortCode(context.Context, string) (*domain.URL, error) {
	return nil, domain.ErrStoreUnavailable
}

func (downRepository) Exists(context.Context, string) (bool, error) {
	return false, domain.ErrStoreUnavailable
}

func (downRepository) HealthCheck(context.Context) error {
	return domain.ErrStoreUnavailable
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "relink_test"},
	}
}

func newTestRouter(t *testing.T, repo domain.URLRepository, c domain.Cache) chi.Router {
	t.Helper()
	registry, err := metrics.NewPrometheusRegistry(testConfig().Metrics)
	require.NoError(t, err)

	service := application.NewURLService(
		repo,
		c,
		application.NewCodeGenerator(repo, 8, 10),
		application.Settings{BaseURL: testBaseURL},
		registry,
		discardLogger(),
	)
	return NewRouter(NewHandlers(service, repo), discardLogger(), testConfig(), registry, nil)
}

func doRequest(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func seedURL(t *testing.T, repo domain.URLRepository, shortCode, originalURL string, createdAt time.Time, ttl time.Duration) {
	t.Helper()
	url, err := domain.NewURL(shortCode, originalURL, createdAt, ttl)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), url)
	require.NoError(t, err)
}

func TestHandlers_Shorten(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		payload string
	}{
		{name: "shorten", path: "/shorten", payload: `{"original_url": "https://example.com/a"}`},
		{name: "legacy route", path: "/url/create_short_url", payload: `{"original_url": "https://example.com/a"}`},
		{name: "url field", path: "/shorten", payload: `{"url": "https://example.com/a"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, memory.NewURLRepository(), cache.NewMemoryCache(time.Minute))

			w := doRequest(router, http.MethodPost, tt.path, tt.payload)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			body := decodeBody(t, w)
			assert.Equal(t, true, body["success"])
			assert.Equal(t, "https://example.com/a", body["original_url"])
			code, _ := body["short_code"].(string)
			assert.Len(t, code, 8)
			assert.Equal(t, testBaseURL+"/"+code, body["short_url"])
			assert.NotEmpty(t, body["created_at"])
			assert.NotEmpty(t, body["expires_at"])
		})
	}
}

func TestHandlers_Shorten_Failures(t *testing.T) {
	tests := []struct {
		name       string
		repo       domain.URLRepository
		payload    string
		wantStatus int
		wantDetail bool
	}{
		{
			name:       "malformed body",
			repo:       memory.NewURLRepository(),
			payload:    `{"original_url": `,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing url",
			repo:       memory.NewURLRepository(),
			payload:    `{}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: true,
		},
		{
			name:       "invalid url",
			repo:       memory.NewURLRepository(),
			payload:    `{"original_url": "not-a-url"}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: true,
		},
		{
			name:       "store unavailable",
			repo:       downRepository{memory.NewURLRepository()},
			payload:    `{"original_url": "https://example.com"}`,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.repo, cache.NewNoOpCache())

			w := doRequest(router, http.MethodPost, "/shorten", tt.payload)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["reason"])
			if tt.wantDetail {
				details, ok := body["details"].(map[string]any)
				require.True(t, ok, "expected details in %v", body)
				assert.Contains(t, details, "original_url")
				assert.Len(t, details, 1)
			} else {
				assert.NotContains(t, body, "details")
			}
		})
	}
}

func TestHandlers_Redirect(t *testing.T) {
	repo := memory.NewURLRepository()
	now := time.Now()
	seedURL(t, repo, "live1234", "https://example.com/live", now, time.Hour)
	seedURL(t, repo, "dead1234", "https://example.com/dead", now.Add(-2*time.Hour), time.Hour)
	router := newTestRouter(t, repo, cache.NewMemoryCache(time.Minute))

	tests := []struct {
		name         string
		method       string
		target       string
		wantStatus   int
		wantLocation string
	}{
		{name: "get", method: http.MethodGet, target: "/live1234", wantStatus: http.StatusFound, wantLocation: "https://example.com/live"},
		{name: "head", method: http.MethodHead, target: "/live1234", wantStatus: http.StatusFound, wantLocation: "https://example.com/live"},
		{name: "legacy full url", method: http.MethodGet, target: "/url/redirect_to_original?short_url=http://localhost:8080/live1234", wantStatus: http.StatusFound, wantLocation: "https://example.com/live"},
		{name: "legacy code", method: http.MethodGet, target: "/url/redirect_to_original?short_url=live1234", wantStatus: http.StatusFound, wantLocation: "https://example.com/live"},
		{name: "unknown", method: http.MethodGet, target: "/nope0000", wantStatus: http.StatusNotFound},
		{name: "legacy missing param", method: http.MethodGet, target: "/url/redirect_to_original", wantStatus: http.StatusNotFound},
		{name: "expired", method: http.MethodGet, target: "/dead1234", wantStatus: http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.target, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			}
		})
	}
}

func TestHandlers_Redirect_StoreUnavailable(t *testing.T) {
	router := newTestRouter(t, downRepository{memory.NewURLRepository()}, downCache{})

	w := doRequest(router, http.MethodGet, "/abcd1234", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Service temporarily unavailable", decodeBody(t, w)["error"])
}

func TestHandlers_CacheDown(t *testing.T) {
	router := newTestRouter(t, memory.NewURLRepository(), downCache{})

	w := doRequest(router, http.MethodPost, "/shorten", `{"original_url": "https://example.com/cd"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	code := decodeBody(t, w)["short_code"].(string)

	w = doRequest(router, http.MethodGet, "/"+code, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/cd", w.Header().Get("Location"))
}

func TestHandlers_Ready(t *testing.T) {
	tests := []struct {
		name         string
		repo         domain.URLRepository
		cache        domain.Cache
		wantStatus   int
		wantDatabase string
		wantCache    string
	}{
		{name: "all healthy", repo: memory.NewURLRepository(), cache: cache.NewNoOpCache(), wantStatus: http.StatusOK, wantDatabase: "ok", wantCache: "ok"},
		{name: "cache degraded", repo: memory.NewURLRepository(), cache: downCache{}, wantStatus: http.StatusOK, wantDatabase: "ok", wantCache: "degraded"},
		{name: "store down", repo: downRepository{memory.NewURLRepository()}, cache: cache.NewNoOpCache(), wantStatus: http.StatusServiceUnavailable, wantDatabase: "unavailable", wantCache: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.repo, tt.cache)

			w := doRequest(router, http.MethodGet, "/ready", "")
			assert.Equal(t, tt.wantStatus, w.Code)

			body := decodeBody(t, w)
			assert.Equal(t, tt.wantDatabase, body["database"])
			assert.Equal(t, tt.wantCache, body["cache"])
		})
	}
}

func TestHandlers_HealthAndRoot(t *testing.T) {
	router := newTestRouter(t, memory.NewURLRepository(), cache.NewNoOpCache())

	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = doRequest(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "Welcome")
}

func TestHandlers_Metrics(t *testing.T) {
	router := newTestRouter(t, memory.NewURLRepository(), cache.NewNoOpCache())

	w := doRequest(router, http.MethodPost, "/shorten", `{"original_url": "https://example.com/m"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "relink_test_urls_created_total 1")
}

func TestLoggingMiddleware_TraceID(t *testing.T) {
	router := newTestRouter(t, memory.NewURLRepository(), cache.NewNoOpCache())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-Id", "abc123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get("X-Trace-Id"))

	w = doRequest(router, http.MethodGet, "/health", "")
	assert.Len(t, w.Header().Get("X-Trace-Id"), 32)
}

func TestShortCodeFromURL(t *testing.T) {
	tests := map[string]string{
		"abc12345":                          "abc12345",
		"http://abc12345":                   "abc12345",
		"https://rl.example/abc12345":       "abc12345",
		"https://rl.example/abc12345/":      "abc12345",
		"  http://localhost:8080/abc12345 ": "abc12345",
		"":                                  "",
	}

	for input, want := range tests {
		assert.Equal(t, want, shortCodeFromURL(input), input)
	}
}
