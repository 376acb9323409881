package replay

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/arbscan/internal/modules/market"
)

// HistoricalQuoteProvider serves loaded series at a settable instant. The
// replay engine moves the instant before each tick; the chain then sees the
// provider as an ordinary QuoteProvider.
type HistoricalQuoteProvider struct {
	mu          sync.RWMutex
	series      map[string]*Series
	granularity Granularity
	instantKey  string
}

// NewHistoricalQuoteProvider creates an empty provider for one granularity.
func NewHistoricalQuoteProvider(g Granularity) *HistoricalQuoteProvider {
	return &HistoricalQuoteProvider{
		series:      make(map[string]*Series),
		granularity: g,
	}
}

// AddSeries registers a loaded series under its code.
func (p *HistoricalQuoteProvider) AddSeries(s *Series) {
	p.mu.Lock()
	p.series[s.Code] = s
	p.mu.Unlock()
}

// SetInstant positions the provider at t.
func (p *HistoricalQuoteProvider) SetInstant(t time.Time) {
	p.mu.Lock()
	p.instantKey = t.Format(keyLayout(p.granularity))
	p.mu.Unlock()
}

// GetQuote returns the quote for code at the current instant, or ErrNoData.
func (p *HistoricalQuoteProvider) GetQuote(ctx context.Context, code string) (*market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("quote %s: %w", code, market.ErrProviderTimeout)
	}

	p.mu.RLock()
	s, ok := p.series[code]
	key := p.instantKey
	p.mu.RUnlock()

	if !ok || key == "" {
		return nil, fmt.Errorf("quote %s: %w", code, market.ErrNoData)
	}
	q, ok := s.At(key)
	if !ok {
		return nil, fmt.Errorf("quote %s at %s: %w", code, key, market.ErrNoData)
	}
	return &q, nil
}

// Coverage summarizes loaded data per code: records and covered range.
type Coverage struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Records int    `json:"records"`
	First   string `json:"first"`
	Last    string `json:"last"`
}

// Coverage returns a per-code data summary ordered by code.
func (p *HistoricalQuoteProvider) Coverage() []Coverage {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Coverage, 0, len(p.series))
	for code, s := range p.series {
		first, last := s.Range()
		out = append(out, Coverage{
			Code:    code,
			Kind:    string(s.Kind),
			Records: s.Len(),
			First:   first,
			Last:    last,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// HoldingsSnapshot is the holdings map observed on one date.
type HoldingsSnapshot struct {
	Date     string                           `json:"date"` // compact, YYYYMMDD
	Holdings map[string][]market.HoldingEntry `json:"holdings"`
}

// HistoricalHoldingProvider serves holdings from dated snapshots at a
// settable instant. Between snapshots, step interpolation carries the last
// observed snapshot forward; linear interpolation additionally blends entry
// weights between the surrounding snapshots.
type HistoricalHoldingProvider struct {
	mu            sync.RWMutex
	snapshots     []HoldingsSnapshot // sorted by date
	interpolation string
	currentDate   string
}

// NewHistoricalHoldingProvider creates a provider; interpolation is
// "linear" or "step".
func NewHistoricalHoldingProvider(interpolation string) *HistoricalHoldingProvider {
	if interpolation == "" {
		interpolation = "step"
	}
	return &HistoricalHoldingProvider{interpolation: interpolation}
}

// AddSnapshot registers a dated snapshot, keeping snapshots sorted.
func (p *HistoricalHoldingProvider) AddSnapshot(s HoldingsSnapshot) {
	p.mu.Lock()
	p.snapshots = append(p.snapshots, s)
	sort.Slice(p.snapshots, func(i, j int) bool { return p.snapshots[i].Date < p.snapshots[j].Date })
	p.mu.Unlock()
}

// SetInstant positions the provider at t.
func (p *HistoricalHoldingProvider) SetInstant(t time.Time) {
	p.mu.Lock()
	p.currentDate = market.CompactDate(t)
	p.mu.Unlock()
}

// FindETFsHolding returns the ETFs holding securityCode at the current
// instant. Before the first snapshot, or with no snapshots, the result is
// empty.
func (p *HistoricalHoldingProvider) FindETFsHolding(ctx context.Context, securityCode string) ([]market.HoldingEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("holdings %s: %w", securityCode, market.ErrProviderTimeout)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	prev, next := p.surrounding()
	if prev < 0 {
		return nil, nil
	}

	entries := p.snapshots[prev].Holdings[securityCode]
	if p.interpolation != "linear" || next < 0 || next == prev {
		out := make([]market.HoldingEntry, len(entries))
		copy(out, entries)
		return out, nil
	}
	return p.blend(securityCode, prev, next), nil
}

// surrounding returns the indexes of the latest snapshot at or before the
// current date and the earliest one after it; -1 when absent.
func (p *HistoricalHoldingProvider) surrounding() (int, int) {
	prev, next := -1, -1
	for i, s := range p.snapshots {
		if s.Date <= p.currentDate {
			prev = i
		} else {
			next = i
			break
		}
	}
	return prev, next
}

// blend linearly interpolates entry weights between two snapshots by the
// elapsed fraction of the interval. Entries missing from the later snapshot
// keep their earlier values.
func (p *HistoricalHoldingProvider) blend(securityCode string, prev, next int) []market.HoldingEntry {
	prevSnap, nextSnap := p.snapshots[prev], p.snapshots[next]

	prevDay, err1 := market.ParseCompactDate(prevSnap.Date)
	nextDay, err2 := market.ParseCompactDate(nextSnap.Date)
	now, err3 := market.ParseCompactDate(p.currentDate)
	span := nextDay.Sub(prevDay)
	if err1 != nil || err2 != nil || err3 != nil || span <= 0 {
		out := make([]market.HoldingEntry, len(prevSnap.Holdings[securityCode]))
		copy(out, prevSnap.Holdings[securityCode])
		return out
	}
	frac := float64(now.Sub(prevDay)) / float64(span)

	nextByETF := make(map[string]market.HoldingEntry)
	for _, e := range nextSnap.Holdings[securityCode] {
		nextByETF[e.ETFCode] = e
	}

	var out []market.HoldingEntry
	for _, e := range prevSnap.Holdings[securityCode] {
		if later, ok := nextByETF[e.ETFCode]; ok {
			e.Weight += (later.Weight - e.Weight) * frac
		}
		out = append(out, e)
	}
	return out
}
