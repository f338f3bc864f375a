package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sp3dr4/relink/internal/domain"
	"github.com/sp3dr4/relink/internal/pkg/logging"
	"github.com/sp3dr4/relink/internal/pkg/metrics"
)

const (
	DefaultExpirationWindow = 30 * 24 * time.Hour
	DefaultMaxURLLength     = 2048
)

// Settings holds the tunables of the alias lifecycle.
type Settings struct {
	BaseURL          string
	ExpirationWindow time.Duration
	MaxURLLength     int
}

// URLService creates aliases and resolves them, keeping the cache beside the
// durable store.
type URLService struct {
	repo      domain.URLRepository
	cache     domain.Cache
	generator *CodeGenerator
	settings  Settings
	metrics   metrics.Registry
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

func NewURLService(
	repo domain.URLRepository,
	cache domain.Cache,
	generator *CodeGenerator,
	settings Settings,
	registry metrics.Registry,
	logger *slog.Logger,
) *URLService {
	if settings.ExpirationWindow <= 0 {
		settings.ExpirationWindow = DefaultExpirationWindow
	}
	if settings.MaxURLLength <= 0 {
		settings.MaxURLLength = DefaultMaxURLLength
	}
	if registry == nil {
		registry = metrics.NewNoOpRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	return &URLService{
		repo:      repo,
		cache:     cache,
		generator: generator,
		settings:  settings,
		metrics:   registry,
		logger:    logger,
		validate:  validate,
		now:       time.Now,
	}
}

type CreateURLRequest struct {
	OriginalURL string `json:"original_url" validate:"required,http_url"`
}

type URLResponse struct {
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ValidationError lists the rejected request fields. It matches
// domain.ErrInvalidURL with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidURL
}

// CreateShortURL stores a new alias for req.OriginalURL. A code collision at
// insert time is returned as domain.ErrShortCodeExists; callers may retry.
func (s *URLService) CreateShortURL(ctx context.Context, req CreateURLRequest) (*URLResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	shortCode, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	url, err := domain.NewURL(shortCode, req.OriginalURL, s.now(), s.settings.ExpirationWindow)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, url)
	if err != nil {
		if errors.Is(err, domain.ErrShortCodeExists) {
			s.log(ctx).Warn("Short code taken between check and insert", "short_code", shortCode)
		}
		return nil, fmt.Errorf("create url: %w", err)
	}
	s.metrics.IncURLsCreated()

	s.storeInCache(ctx, created)

	return &URLResponse{
		ShortCode:   created.ShortCode,
		ShortURL:    strings.TrimRight(s.settings.BaseURL, "/") + "/" + created.ShortCode,
		OriginalURL: created.OriginalURL,
		CreatedAt:   created.CreatedAt,
		ExpiresAt:   created.ExpiresAt,
	}, nil
}

// Resolve returns the original URL for shortCode.
//
// A cache hit is returned as is: the entry's own TTL already ends at the
// record's expiry, so it is not checked against the store again. On a miss or
// a cache failure the durable store decides, and the cache is refilled from
// the record. Terminal errors are domain.ErrURLNotFound and
// domain.ErrURLExpired; store failures are returned wrapped.
func (s *URLService) Resolve(ctx context.Context, shortCode string) (string, error) {
	if shortCode == "" {
		s.metrics.RecordResolution(metrics.OutcomeNotFound)
		return "", domain.ErrURLNotFound
	}

	if originalURL, ok := s.lookupCache(ctx, shortCode); ok {
		s.metrics.RecordResolution(metrics.OutcomeCacheHit)
		return originalURL, nil
	}

	url, err := s.repo.FindByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, domain.ErrURLNotFound) {
			s.metrics.RecordResolution(metrics.OutcomeNotFound)
			return "", domain.ErrURLNotFound
		}
		s.metrics.RecordResolution(metrics.OutcomeError)
		return "", fmt.Errorf("find url: %w", err)
	}

	s.storeInCache(ctx, url)

	if !url.Live(s.now()) {
		s.metrics.RecordResolution(metrics.OutcomeExpired)
		return "", domain.ErrURLExpired
	}

	s.metrics.RecordResolution(metrics.OutcomeFound)
	return url.OriginalURL, nil
}

// CacheHealth pings the cache. It is informational only.
func (s *URLService) CacheHealth(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// lookupCache reports a hit only when the cache answered with a value. Misses
// and failures both send the caller to the durable store.
func (s *URLService) lookupCache(ctx context.Context, shortCode string) (string, bool) {
	originalURL, err := s.cache.Get(ctx, shortCode)
	switch {
	case err == nil:
		s.metrics.RecordCacheOperation("get", metrics.CacheStatusHit)
		return originalURL, true
	case errors.Is(err, domain.ErrCacheMiss):
		s.metrics.RecordCacheOperation("get", metrics.CacheStatusMiss)
	default:
		s.metrics.RecordCacheOperation("get", metrics.CacheStatusError)
		s.log(ctx).Warn("Cache lookup failed, falling back to store", "short_code", shortCode, "error", err)
	}
	return "", false
}

// storeInCache writes url with the time it has left. It has no error result:
// a skipped or failed write only costs a later cache miss.
func (s *URLService) storeInCache(ctx context.Context, url *domain.URL) {
	ttl := url.RemainingTTL(s.now())
	if ttl < time.Second {
		s.metrics.RecordCacheOperation("set", metrics.CacheStatusSkipped)
		return
	}

	if err := s.cache.Set(ctx, url.ShortCode, url.OriginalURL, ttl); err != nil {
		s.metrics.RecordCacheOperation("set", metrics.CacheStatusError)
		s.log(ctx).Warn("Cache write failed", "short_code", url.ShortCode, "error", err)
		return
	}
	s.metrics.RecordCacheOperation("set", metrics.CacheStatusOK)
}

func (s *URLService) validateRequest(req CreateURLRequest) error {
	fields := make(map[string]string)

	if err := s.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
		}
		for _, e := range validationErrors {
			fields[e.Field()] = validationMessage(e)
		}
	}

	if _, invalid := fields["original_url"]; !invalid && len(req.OriginalURL) > s.settings.MaxURLLength {
		fields["original_url"] = fmt.Sprintf("original_url must be at most %d characters long", s.settings.MaxURLLength)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *URLService) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, s.logger)
}

func validationMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid http or https URL", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// jsonFieldName makes validation errors report the JSON field names clients send.
func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}
