package signals

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aristath/arbscan/internal/clock"
)

// ErrRepositoryIO marks a persistence failure. The repository's in-memory
// view stays consistent when it is returned.
var ErrRepositoryIO = errors.New("repository io")

// Repository persists and queries emitted signals. Implementations must be
// safe for concurrent use.
type Repository interface {
	Save(ctx context.Context, s *TradingSignal) error
	SaveAll(ctx context.Context, signals []*TradingSignal) error
	Get(ctx context.Context, signalID string) (*TradingSignal, error)
	GetAll(ctx context.Context) ([]*TradingSignal, error)
	GetToday(ctx context.Context) ([]*TradingSignal, error)
	GetRecent(ctx context.Context, limit int) ([]*TradingSignal, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// MemoryRepository keeps signals in memory, ordered by insertion. Reference
// semantics for the persistent implementations; used directly by tests and
// replay runs.
type MemoryRepository struct {
	clk clock.Clock

	mu    sync.RWMutex
	order []string
	byID  map[string]*TradingSignal
}

// NewMemoryRepository creates an empty in-memory repository. A nil clk
// falls back to the process-wide clock (GetToday needs one).
func NewMemoryRepository(clk clock.Clock) *MemoryRepository {
	if clk == nil {
		clk = clock.Get()
	}
	return &MemoryRepository{
		clk:  clk,
		byID: make(map[string]*TradingSignal),
	}
}

// Save stores s, replacing any signal with the same id.
func (r *MemoryRepository) Save(ctx context.Context, s *TradingSignal) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[s.SignalID]; !exists {
		r.order = append(r.order, s.SignalID)
	}
	cp := *s
	r.byID[s.SignalID] = &cp
	return nil
}

// SaveAll stores every signal; the first validation failure aborts.
func (r *MemoryRepository) SaveAll(ctx context.Context, signals []*TradingSignal) error {
	for _, s := range signals {
		if err := r.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the signal with signalID, or nil when absent.
func (r *MemoryRepository) Get(ctx context.Context, signalID string) (*TradingSignal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[signalID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// GetAll returns all signals in insertion order.
func (r *MemoryRepository) GetAll(ctx context.Context) ([]*TradingSignal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TradingSignal, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}

// GetToday returns signals whose timestamp falls on the clock's current
// A-share date.
func (r *MemoryRepository) GetToday(ctx context.Context) ([]*TradingSignal, error) {
	today := r.clk.Now(clock.ChinaTZ).Format("2006-01-02")

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*TradingSignal
	for _, id := range r.order {
		s := r.byID[id]
		if strings.HasPrefix(s.Timestamp, today) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// GetRecent returns up to limit signals, newest timestamps first.
func (r *MemoryRepository) GetRecent(ctx context.Context, limit int) ([]*TradingSignal, error) {
	all, _ := r.GetAll(ctx)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Count returns the number of stored signals.
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

// Clear drops all signals.
func (r *MemoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.byID = make(map[string]*TradingSignal)
	return nil
}
