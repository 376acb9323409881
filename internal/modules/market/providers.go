package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoData marks a provider miss: no record for the requested key at the
// requested instant. The chain treats it as "no quote", never as a fault.
var ErrNoData = errors.New("no data")

// ErrProviderTimeout marks a provider call that exceeded its deadline. The
// chain degrades it to ErrNoData semantics.
var ErrProviderTimeout = errors.New("provider timeout")

// QuoteProvider looks up point-in-time quotes for securities and ETFs.
type QuoteProvider interface {
	GetQuote(ctx context.Context, code string) (*Quote, error)
}

// HoldingProvider returns the ETFs holding a given security, with weight,
// rank and top-10 share.
type HoldingProvider interface {
	FindETFsHolding(ctx context.Context, securityCode string) ([]HoldingEntry, error)
}

// MemoryQuoteProvider serves quotes from an in-memory map. Reference
// semantics for tests and the replay engine's building block.
type MemoryQuoteProvider struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewMemoryQuoteProvider creates an empty in-memory quote provider.
func NewMemoryQuoteProvider() *MemoryQuoteProvider {
	return &MemoryQuoteProvider{quotes: make(map[string]Quote)}
}

// SetQuote stores or replaces the quote for its code.
func (p *MemoryQuoteProvider) SetQuote(q Quote) {
	p.mu.Lock()
	p.quotes[q.Code] = q
	p.mu.Unlock()
}

// RemoveQuote drops the quote for code.
func (p *MemoryQuoteProvider) RemoveQuote(code string) {
	p.mu.Lock()
	delete(p.quotes, code)
	p.mu.Unlock()
}

// GetQuote returns the stored quote or ErrNoData.
func (p *MemoryQuoteProvider) GetQuote(ctx context.Context, code string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("quote %s: %w", code, ErrProviderTimeout)
	}

	p.mu.RLock()
	q, ok := p.quotes[code]
	p.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("quote %s: %w", code, ErrNoData)
	}
	return &q, nil
}

// MemoryHoldingProvider serves holdings from an in-memory map.
type MemoryHoldingProvider struct {
	mu       sync.RWMutex
	holdings map[string][]HoldingEntry
}

// NewMemoryHoldingProvider creates an empty in-memory holding provider.
func NewMemoryHoldingProvider() *MemoryHoldingProvider {
	return &MemoryHoldingProvider{holdings: make(map[string][]HoldingEntry)}
}

// SetHoldings stores the ETFs holding securityCode.
func (p *MemoryHoldingProvider) SetHoldings(securityCode string, entries []HoldingEntry) {
	p.mu.Lock()
	p.holdings[securityCode] = entries
	p.mu.Unlock()
}

// FindETFsHolding returns the stored entries; an unknown security yields an
// empty slice, not an error.
func (p *MemoryHoldingProvider) FindETFsHolding(ctx context.Context, securityCode string) ([]HoldingEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("holdings %s: %w", securityCode, ErrProviderTimeout)
	}

	p.mu.RLock()
	entries := p.holdings[securityCode]
	p.mu.RUnlock()

	out := make([]HoldingEntry, len(entries))
	copy(out, entries)
	return out, nil
}
