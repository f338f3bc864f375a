package domain

import (
	"errors"
	"time"
)

var (
	ErrURLNotFound         = errors.New("url not found")
	ErrURLExpired          = errors.New("url expired")
	ErrShortCodeExists     = errors.New("short code already exists")
	ErrInvalidURL          = errors.New("invalid url")
	ErrInvalidShortCode    = errors.New("invalid short code")
	ErrInvalidExpiration   = errors.New("expiration must be after creation")
	ErrGenerationExhausted = errors.New("short code generation exhausted")
	ErrStoreUnavailable    = errors.New("durable store unavailable")
)

// URL is the authoritative alias record. Records are immutable once stored.
type URL struct {
	ID          int64     `db:"id" json:"id"`
	ShortCode   string    `db:"short_code" json:"shortCode"`
	OriginalURL string    `db:"original_url" json:"originalUrl"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
}

func NewURL(shortCode, originalURL string, createdAt time.Time, ttl time.Duration) (*URL, error) {
	if shortCode == "" {
		return nil, ErrInvalidShortCode
	}
	if originalURL == "" {
		return nil, ErrInvalidURL
	}
	if ttl <= 0 {
		return nil, ErrInvalidExpiration
	}

	createdAt = createdAt.UTC()
	return &URL{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(ttl),
	}, nil
}

// Live reports whether the record can still be resolved at now.
func (u *URL) Live(now time.Time) bool {
	return !now.After(u.ExpiresAt)
}

// RemainingTTL is the whole number of seconds left before expiry, truncated.
// It is zero or negative once the record is no longer worth caching.
func (u *URL) RemainingTTL(now time.Time) time.Duration {
	return u.ExpiresAt.Sub(now).Truncate(time.Second)
}
