package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sp3dr4/relink/internal/domain"
)

var _ domain.URLRepository = (*URLRepository)(nil)

// URLRepository keeps records in process. It honours the same contract as the
// SQL stores: inserts never overwrite, and a closed repository reports the
// store as unavailable.
type URLRepository struct {
	mu      sync.RWMutex
	records map[string]domain.URL
	lastID  int64
	closed  bool
}

func NewURLRepository() *URLRepository {
	return &URLRepository{records: make(map[string]domain.URL)}
}

func (r *URLRepository) Create(_ context.Context, url *domain.URL) (*domain.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errClosed("create")
	}
	if _, taken := r.records[url.ShortCode]; taken {
		return nil, domain.ErrShortCodeExists
	}

	r.lastID++
	record := *url
	record.ID = r.lastID
	r.records[record.ShortCode] = record
	return &record, nil
}

func (r *URLRepository) FindByShortCode(_ context.Context, shortCode string) (*domain.URL, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errClosed("find")
	}
	record, ok := r.records[shortCode]
	if !ok {
		return nil, domain.ErrURLNotFound
	}
	return &record, nil
}

func (r *URLRepository) Exists(_ context.Context, shortCode string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, errClosed("exists")
	}
	_, ok := r.records[shortCode]
	return ok, nil
}

// Close drops nothing; records stay readable only until the process exits.
func (r *URLRepository) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *URLRepository) HealthCheck(context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return errClosed("health check")
	}
	return nil
}

func errClosed(op string) error {
	return fmt.Errorf("%w: memory %s: repository closed", domain.ErrStoreUnavailable, op)
}
