package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sp3dr4/relink/internal/application"
	"github.com/sp3dr4/relink/internal/domain"
	"github.com/sp3dr4/relink/internal/pkg/logging"
)

const maxRequestBodyBytes = 64 << 10

type Handlers struct {
	service *application.URLService
	repo    domain.URLRepository
}

func NewHandlers(service *application.URLService, repo domain.URLRepository) *Handlers {
	return &Handlers{
		service: service,
		repo:    repo,
	}
}

// ShortenRequest is the create payload. Older clients send the target as "url".
type ShortenRequest struct {
	OriginalURL string `json:"original_url" example:"https://example.com/some/long/path"`
	URL         string `json:"url,omitempty"`
}

// ShortenResponse is returned when an alias is created.
type ShortenResponse struct {
	Success bool `json:"success" example:"true"`
	application.URLResponse
}

// FailureResponse represents a failed create.
type FailureResponse struct {
	Success bool              `json:"success" example:"false"`
	Reason  string            `json:"reason" example:"Validation failed"`
	Details map[string]string `json:"details,omitempty"`
}

// ReadyResponse reports store and cache health.
type ReadyResponse struct {
	Status    string `json:"status" example:"ready"`
	Database  string `json:"database" example:"ok"`
	Cache     string `json:"cache" example:"ok"`
	Timestamp string `json:"timestamp" example:"2024-01-31T12:00:00Z"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error" example:"Short URL not found"`
}

// HandleRoot returns a short welcome message.
//
//	@Summary	Service welcome
//	@Tags		root
//	@Produce	json
//	@Success	200	{object}	object{message=string}
//	@Router		/ [get]
func (h *Handlers) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the relink URL API. Visit /swagger/index.html for documentation",
	})
}

// HandleHealth handles the health check endpoint.
//
//	@Summary		Health check endpoint
//	@Description	Check if the service is running
//	@Tags			health
//	@Produce		plain
//	@Success		200	{string}	string	"OK"
//	@Router			/health [get]
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// HandleReady handles the readiness check endpoint. An unreachable cache is
// reported as degraded but does not fail readiness.
//
//	@Summary		Readiness check endpoint
//	@Description	Check if the service is ready to serve requests (includes database connectivity)
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	ReadyResponse	"Service is ready"
//	@Failure		503	{object}	ReadyResponse	"Service is not ready"
//	@Router			/ready [get]
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	logger := logging.FromContext(ctx)
	body := ReadyResponse{
		Status:    "ready",
		Database:  "ok",
		Cache:     "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := h.service.CacheHealth(ctx); err != nil {
		logger.Warn("Cache unreachable", "error", err)
		body.Cache = "degraded"
	}

	if err := h.repo.HealthCheck(ctx); err != nil {
		logger.Error("Readiness check failed", "error", err)
		body.Status = "not ready"
		body.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	respondWithJSON(w, status, body)
}

// HandleShorten handles the URL shortening endpoint.
//
//	@Summary		Create a short URL
//	@Description	Create a shortened URL from a long URL. 409 responses are safe to retry.
//	@Tags			urls
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ShortenRequest	true	"URL to shorten"
//	@Success		201		{object}	ShortenResponse	"Successfully created short URL"
//	@Failure		400		{object}	FailureResponse	"Invalid request or validation error"
//	@Failure		409		{object}	FailureResponse	"Short code could not be allocated, retry"
//	@Failure		503		{object}	FailureResponse	"Store unavailable"
//	@Router			/shorten [post]
//	@Router			/url/create_short_url [post]
func (h *Handlers) HandleShorten(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var req ShortenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		logger.Warn("Failed to decode request", "error", err)
		respondWithFailure(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	originalURL := strings.TrimSpace(req.OriginalURL)
	if originalURL == "" {
		originalURL = strings.TrimSpace(req.URL)
	}

	response, err := h.service.CreateShortURL(r.Context(), application.CreateURLRequest{OriginalURL: originalURL})
	if err != nil {
		h.handleCreateError(w, logger, err)
		return
	}

	logger.Info("Created short URL", "short_code", response.ShortCode, "original_url", response.OriginalURL)
	respondWithJSON(w, http.StatusCreated, ShortenResponse{Success: true, URLResponse: *response})
}

func (h *Handlers) handleCreateError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var validationErr *application.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondWithFailure(w, http.StatusBadRequest, "Validation failed", validationErr.Fields)
	case errors.Is(err, domain.ErrInvalidURL):
		respondWithFailure(w, http.StatusBadRequest, "Validation failed", nil)
	case errors.Is(err, domain.ErrGenerationExhausted):
		logger.Warn("Short code generation exhausted", "error", err)
		respondWithFailure(w, http.StatusConflict, "Could not allocate a short code, please retry", nil)
	case errors.Is(err, domain.ErrShortCodeExists):
		respondWithFailure(w, http.StatusConflict, "Short code collision, please retry", nil)
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Error("Store unavailable", "error", err)
		respondWithFailure(w, http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
	default:
		logger.Error("Failed to create short URL", "error", err)
		respondWithFailure(w, http.StatusInternalServerError, "Failed to create short URL", nil)
	}
}

// HandleRedirect handles the redirect endpoint.
//
//	@Summary		Redirect to original URL
//	@Description	Redirect to the original URL using the short code
//	@Tags			urls
//	@Param			shortCode	path	string	true	"Short code"
//	@Success		302			"Redirect to original URL"
//	@Failure		404			{object}	ErrorResponse	"Short URL not found"
//	@Failure		410			{object}	ErrorResponse	"Short URL expired"
//	@Failure		503			{object}	ErrorResponse	"Store unavailable"
//	@Router			/{shortCode} [get]
func (h *Handlers) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	h.redirect(w, r, chi.URLParam(r, "shortCode"))
}

// HandleLegacyRedirect accepts the short URL, or just its code, as a query parameter.
//
//	@Summary	Redirect to original URL (legacy)
//	@Tags		urls
//	@Param		short_url	query	string	true	"Short URL or short code"
//	@Success	302			"Redirect to original URL"
//	@Failure	404			{object}	ErrorResponse	"Short URL not found"
//	@Failure	410			{object}	ErrorResponse	"Short URL expired"
//	@Failure	503			{object}	ErrorResponse	"Store unavailable"
//	@Router		/url/redirect_to_original [get]
func (h *Handlers) HandleLegacyRedirect(w http.ResponseWriter, r *http.Request) {
	h.redirect(w, r, shortCodeFromURL(r.URL.Query().Get("short_url")))
}

func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, shortCode string) {
	logger := logging.FromContext(r.Context())

	originalURL, err := h.service.Resolve(r.Context(), shortCode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrURLNotFound):
			respondWithError(w, http.StatusNotFound, "Short URL not found")
		case errors.Is(err, domain.ErrURLExpired):
			respondWithError(w, http.StatusGone, "Short URL expired")
		case errors.Is(err, domain.ErrStoreUnavailable):
			logger.Error("Store unavailable", "short_code", shortCode, "error", err)
			respondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		default:
			logger.Error("Failed to resolve short URL", "short_code", shortCode, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	logger.Info("Redirecting", "short_code", shortCode, "original_url", originalURL)
	http.Redirect(w, r, originalURL, http.StatusFound)
}

// shortCodeFromURL keeps the last path segment, so both "http://host/abc" and
// "abc" yield "abc".
func shortCodeFromURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	return raw
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithFailure(w http.ResponseWriter, code int, reason string, details map[string]string) {
	respondWithJSON(w, code, FailureResponse{Success: false, Reason: reason, Details: details})
}
