package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/relink/internal/domain"
	"github.com/sp3dr4/relink/internal/infrastructure/memory"
)

const testBaseURL = "http://localhost:8080"

type cacheEntry struct {
	url string
	ttl time.Duration
}

// recordingCache keeps every write so tests can inspect TTLs.
type recordingCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	getErr  error
	setErr  error
	sets    int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]cacheEntry)}
}

func (c *recordingCache) Get(_ context.Context, shortCode string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	entry, ok := c.entries[shortCode]
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return entry.url, nil
}

func (c *recordingCache) Set(_ context.Context, shortCode, originalURL string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[shortCode] = cacheEntry{url: originalURL, ttl: ttl}
	return nil
}

func (c *recordingCache) Ping(context.Context) error {
	return c.getErr
}

func (c *recordingCache) entry(shortCode string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[shortCode]
	return entry, ok
}

// countingRepository counts reads against the wrapped repository.
type countingRepository struct {
	*memory.URLRepository
	finds int
	err   error
}

func (r *countingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.URL, error) {
	r.finds++
	if r.err != nil {
		return nil, r.err
	}
	return r.URLRepository.FindByShortCode(ctx, shortCode)
}

func newTestService(repo domain.URLRepository, cache domain.Cache) *URLService {
	return NewURLService(
		repo,
		cache,
		NewCodeGenerator(repo, DefaultShortCodeLength, DefaultMaxGenerationAttempts),
		Settings{BaseURL: testBaseURL},
		nil,
		nil,
	)
}

func seedURL(t *testing.T, repo domain.URLRepository, shortCode, originalURL string, createdAt time.Time, ttl time.Duration) {
	t.Helper()
	url, err := domain.NewURL(shortCode, originalURL, createdAt, ttl)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), url)
	require.NoError(t, err)
}

func TestURLService_CreateShortURL(t *testing.T) {
	repo := memory.NewURLRepository()
	cache := newRecordingCache()
	service := newTestService(repo, cache)
	before := time.Now()

	resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com/a"})
	require.NoError(t, err)

	assert.Len(t, resp.ShortCode, 8)
	for _, r := range resp.ShortCode {
		assert.True(t, strings.ContainsRune(alphabet, r))
	}
	assert.Equal(t, "https://example.com/a", resp.OriginalURL)
	assert.Equal(t, testBaseURL+"/"+resp.ShortCode, resp.ShortURL)
	assert.WithinDuration(t, before.Add(30*24*time.Hour), resp.ExpiresAt, 5*time.Second)
	assert.Equal(t, 30*24*time.Hour, resp.ExpiresAt.Sub(resp.CreatedAt))

	stored, err := repo.FindByShortCode(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", stored.OriginalURL)

	entry, ok := cache.entry(resp.ShortCode)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", entry.url)
	assert.InDelta(t, (30 * 24 * time.Hour).Seconds(), entry.ttl.Seconds(), 5)
	assert.Equal(t, entry.ttl, entry.ttl.Truncate(time.Second))
}

func TestURLService_CreateShortURL_ShortURLTrimsSlash(t *testing.T) {
	repo := memory.NewURLRepository()
	service := NewURLService(repo, newRecordingCache(), NewCodeGenerator(repo, 8, 10),
		Settings{BaseURL: "https://rl.example/"}, nil, nil)

	resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://rl.example/"+resp.ShortCode, resp.ShortURL)
}

func TestURLService_CreateShortURL_Validation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		msg  string
	}{
		{name: "empty", url: "", msg: "original_url is required"},
		{name: "not a url", url: "not-a-url", msg: "valid http or https URL"},
		{name: "unsupported scheme", url: "ftp://example.com/file", msg: "valid http or https URL"},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", 2048), msg: "at most 2048 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewURLRepository()
			cache := newRecordingCache()
			service := newTestService(repo, cache)

			resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: tt.url})
			assert.Nil(t, resp)
			require.ErrorIs(t, err, domain.ErrInvalidURL)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Fields["original_url"], tt.msg)
			assert.Zero(t, cache.sets)
		})
	}
}

func TestURLService_CreateShortURL_MaxLengthBoundary(t *testing.T) {
	repo := memory.NewURLRepository()
	service := newTestService(repo, newRecordingCache())

	prefix := "https://example.com/"
	url := prefix + strings.Repeat("a", 2048-len(prefix))
	require.Len(t, url, 2048)

	_, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: url})
	assert.NoError(t, err)
}

func TestURLService_CreateShortURL_CacheDown(t *testing.T) {
	repo := memory.NewURLRepository()
	cache := newRecordingCache()
	cache.setErr = domain.ErrCacheUnavailable
	service := newTestService(repo, cache)

	resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com/down"})
	require.NoError(t, err)

	exists, err := repo.Exists(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, cache.sets)
}

func TestURLService_CreateShortURL_GenerationExhausted(t *testing.T) {
	repo := memory.NewURLRepository()
	generator := NewCodeGenerator(checkerFunc(func(context.Context, string) (bool, error) {
		return true, nil
	}), 8, 10)
	service := NewURLService(repo, newRecordingCache(), generator, Settings{BaseURL: testBaseURL}, nil, nil)

	_, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
}

func TestURLService_CreateShortURL_ConstraintViolation(t *testing.T) {
	repo := memory.NewURLRepository()
	seedURL(t, repo, "taken123", "https://example.com/first", time.Now(), time.Hour)

	// The check claims the code is free, so only the insert can catch the race.
	generator := NewCodeGenerator(checkerFunc(func(context.Context, string) (bool, error) {
		return false, nil
	}), 8, 1)
	generator.random = strings.NewReader(strings.Repeat("\x13\x00\x0a\x04\x0d\x35\x36\x37", 2))
	cache := newRecordingCache()
	service := NewURLService(repo, cache, generator, Settings{BaseURL: testBaseURL}, nil, nil)

	_, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com/second"})
	require.ErrorIs(t, err, domain.ErrShortCodeExists)

	stored, err := repo.FindByShortCode(context.Background(), "taken123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/first", stored.OriginalURL)
	assert.Zero(t, cache.sets)
}

func TestURLService_CreateShortURL_Uniqueness(t *testing.T) {
	repo := memory.NewURLRepository()
	service := newTestService(repo, newRecordingCache())

	seen := make(map[string]struct{})
	for range 100 {
		resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com/same"})
		require.NoError(t, err)
		_, dup := seen[resp.ShortCode]
		require.False(t, dup, "duplicate code %s", resp.ShortCode)
		seen[resp.ShortCode] = struct{}{}
	}
}

func TestURLService_Resolve_RoundTrip(t *testing.T) {
	repo := memory.NewURLRepository()
	service := newTestService(repo, newRecordingCache())

	resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com/round"})
	require.NoError(t, err)

	for range 3 {
		got, err := service.Resolve(context.Background(), resp.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/round", got)
	}
}

func TestURLService_Resolve_NotFound(t *testing.T) {
	repo := &countingRepository{URLRepository: memory.NewURLRepository()}
	cache := newRecordingCache()
	service := newTestService(repo, cache)

	_, err := service.Resolve(context.Background(), "zzzzzzzz")
	assert.ErrorIs(t, err, domain.ErrURLNotFound)
	assert.Equal(t, 1, repo.finds)
	assert.Zero(t, cache.sets)
}

func TestURLService_Resolve_EmptyCode(t *testing.T) {
	repo := &countingRepository{URLRepository: memory.NewURLRepository()}
	service := newTestService(repo, newRecordingCache())

	_, err := service.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrURLNotFound)
	assert.Zero(t, repo.finds)
}

func TestURLService_Resolve_CacheHitIsTrusted(t *testing.T) {
	repo := &countingRepository{URLRepository: memory.NewURLRepository()}
	cache := newRecordingCache()
	cache.entries["cached01"] = cacheEntry{url: "https://example.com/cached", ttl: time.Minute}
	service := newTestService(repo, cache)

	got, err := service.Resolve(context.Background(), "cached01")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cached", got)
	assert.Zero(t, repo.finds)
}

func TestURLService_Resolve_RepopulatesCache(t *testing.T) {
	repo := &countingRepository{URLRepository: memory.NewURLRepository()}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seedURL(t, repo, "abc12345", "https://example.com/x", now.Add(-time.Hour), 2*time.Hour+500*time.Millisecond)

	cache := newRecordingCache()
	service := newTestService(repo, cache)
	service.now = func() time.Time { return now }

	got, err := service.Resolve(context.Background(), "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", got)

	entry, ok := cache.entry("abc12345")
	require.True(t, ok)
	assert.Equal(t, time.Hour, entry.ttl)

	_, err = service.Resolve(context.Background(), "abc12345")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.finds)
}

func TestURLService_Resolve_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		getErr error
	}{
		{name: "cache miss", getErr: nil},
		{name: "cache down", getErr: domain.ErrCacheUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewURLRepository()
			seedURL(t, repo, "old12345", "https://example.com/old", now.Add(-48*time.Hour), 24*time.Hour)

			cache := newRecordingCache()
			cache.getErr = tt.getErr
			service := newTestService(repo, cache)
			service.now = func() time.Time { return now }

			_, err := service.Resolve(context.Background(), "old12345")
			assert.ErrorIs(t, err, domain.ErrURLExpired)
			assert.Zero(t, cache.sets)
		})
	}
}

func TestURLService_Resolve_ExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.NewURLRepository()
	seedURL(t, repo, "edge1234", "https://example.com/edge", now.Add(-time.Hour), time.Hour)

	cache := newRecordingCache()
	service := newTestService(repo, cache)
	service.now = func() time.Time { return now }

	got, err := service.Resolve(context.Background(), "edge1234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/edge", got)
	assert.Zero(t, cache.sets, "zero remaining TTL must not be cached")

	service.now = func() time.Time { return now.Add(time.Nanosecond) }
	_, err = service.Resolve(context.Background(), "edge1234")
	assert.ErrorIs(t, err, domain.ErrURLExpired)
}

func TestURLService_Resolve_CacheDown(t *testing.T) {
	repo := memory.NewURLRepository()
	cache := newRecordingCache()
	cache.getErr = domain.ErrCacheUnavailable
	cache.setErr = domain.ErrCacheUnavailable
	service := newTestService(repo, cache)

	resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com/cd"})
	require.NoError(t, err)

	got, err := service.Resolve(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cd", got)
}

func TestURLService_Resolve_StoreUnavailable(t *testing.T) {
	repo := &countingRepository{
		URLRepository: memory.NewURLRepository(),
		err:           errors.Join(domain.ErrStoreUnavailable, errors.New("dial tcp: connection refused")),
	}
	service := newTestService(repo, newRecordingCache())

	_, err := service.Resolve(context.Background(), "abc12345")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrURLNotFound)
}

func TestURLService_CacheHealth(t *testing.T) {
	cache := newRecordingCache()
	service := newTestService(memory.NewURLRepository(), cache)
	assert.NoError(t, service.CacheHealth(context.Background()))

	cache.getErr = domain.ErrCacheUnavailable
	assert.ErrorIs(t, service.CacheHealth(context.Background()), domain.ErrCacheUnavailable)
}
