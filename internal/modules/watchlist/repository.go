package watchlist

import (
	"context"
	"sort"
	"sync"
)

// Repository stores watchlist entries keyed by stock code.
type Repository interface {
	Upsert(ctx context.Context, e *Entry) error
	Get(ctx context.Context, stockCode string) (*Entry, error)
	List(ctx context.Context) ([]*Entry, error)
	EnabledCodes(ctx context.Context) ([]string, error)
	SetEnabled(ctx context.Context, stockCode string, enabled bool) error
	Remove(ctx context.Context, stockCode string) error
	Count(ctx context.Context) (int, error)
}

// MemoryRepository is the in-memory reference implementation, used by tests
// and by replay runs that carry an explicit security list.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryRepository creates an empty in-memory watchlist.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]Entry)}
}

// Upsert stores or replaces the entry for its code.
func (r *MemoryRepository) Upsert(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.entries[e.StockCode] = *e
	r.mu.Unlock()
	return nil
}

// Get returns the entry for stockCode, or nil when absent.
func (r *MemoryRepository) Get(ctx context.Context, stockCode string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[stockCode]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// List returns all entries ordered by stock code.
func (r *MemoryRepository) List(ctx context.Context) ([]*Entry, error) {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		copied := e
		out = append(out, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StockCode < out[j].StockCode })
	return out, nil
}

// EnabledCodes returns the codes of enabled entries, ordered.
func (r *MemoryRepository) EnabledCodes(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	var codes []string
	for code, e := range r.entries {
		if e.Enabled {
			codes = append(codes, code)
		}
	}
	r.mu.RUnlock()

	sort.Strings(codes)
	return codes, nil
}

// SetEnabled flips the enabled flag; a missing code is a no-op.
func (r *MemoryRepository) SetEnabled(ctx context.Context, stockCode string, enabled bool) error {
	r.mu.Lock()
	if e, ok := r.entries[stockCode]; ok {
		e.Enabled = enabled
		r.entries[stockCode] = e
	}
	r.mu.Unlock()
	return nil
}

// Remove drops the entry for stockCode.
func (r *MemoryRepository) Remove(ctx context.Context, stockCode string) error {
	r.mu.Lock()
	delete(r.entries, stockCode)
	r.mu.Unlock()
	return nil
}

// Count returns the number of entries.
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}
