package domain

import "context"

// URLRepository is the durable store holding the alias records.
type URLRepository interface {
	// Create inserts url atomically. It returns ErrShortCodeExists when the
	// short code is taken and never overwrites an existing record.
	Create(ctx context.Context, url *URL) (*URL, error)
	FindByShortCode(ctx context.Context, shortCode string) (*URL, error)
	Exists(ctx context.Context, shortCode string) (bool, error)
	Close() error
	HealthCheck(ctx context.Context) error
}
