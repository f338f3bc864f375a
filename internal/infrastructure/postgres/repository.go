package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sp3dr4/relink/internal/domain"
	"github.com/sp3dr4/relink/internal/infrastructure/database"
)

const (
	shortCodeConstraint = "urls_short_code_key"

	insertURL = `
		INSERT INTO urls (short_code, original_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, short_code, original_url, created_at, expires_at`
	selectURL = `
		SELECT id, short_code, original_url, created_at, expires_at
		FROM urls WHERE short_code = $1`
	existsURL = `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`
)

var _ domain.URLRepository = (*URLRepository)(nil)

// URLRepository stores records in postgres. Uniqueness of short codes is
// enforced by the table's unique constraint alone.
type URLRepository struct {
	pool *database.Pool
}

func NewURLRepository(pool *database.Pool) *URLRepository {
	return &URLRepository{pool: pool}
}

func (r *URLRepository) Create(ctx context.Context, url *domain.URL) (*domain.URL, error) {
	var created domain.URL
	err := r.pool.Scoped(ctx, func(conn *sqlx.Conn) error {
		return conn.QueryRowxContext(ctx, insertURL, url.ShortCode, url.OriginalURL, url.CreatedAt, url.ExpiresAt).
			StructScan(&created)
	})
	if err != nil {
		return nil, translateError(err, "create URL")
	}
	return &created, nil
}

func (r *URLRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.URL, error) {
	var url domain.URL
	err := r.pool.Scoped(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &url, selectURL, shortCode)
	})
	if err != nil {
		return nil, translateError(err, "find URL by short code")
	}
	return &url, nil
}

func (r *URLRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	err := r.pool.Scoped(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &exists, existsURL, shortCode)
	})
	if err != nil {
		return false, translateError(err, "check URL existence")
	}
	return exists, nil
}

func (r *URLRepository) Close() error {
	if r.pool == nil {
		return nil
	}
	return r.pool.Close()
}

func (r *URLRepository) HealthCheck(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("%w: no connection pool", domain.ErrStoreUnavailable)
	}
	return r.pool.Ping(ctx)
}

// translateError maps driver errors onto domain errors. Connection failures,
// resource exhaustion and server shutdown all mean the store is unavailable.
func translateError(err error, operation string) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrURLNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == shortCodeConstraint:
			return domain.ErrShortCodeExists
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "53", pqErr.Code.Class() == "57":
			return fmt.Errorf("%w: %s: %s", domain.ErrStoreUnavailable, operation, pqErr.Message)
		default:
			return fmt.Errorf("%s: %s [%s]: %w", operation, pqErr.Code.Name(), pqErr.Code, err)
		}
	}

	if database.IsConnectionError(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
