// Package watchlist holds the set of securities the live scanner watches.
package watchlist

import (
	"fmt"
	"time"
)

// Entry is one watched security.
type Entry struct {
	StockCode string    `json:"stock_code"`
	StockName string    `json:"stock_name"`
	Enabled   bool      `json:"enabled"`
	Note      string    `json:"note,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// Validate enforces the minimal invariants for a stored entry.
func (e *Entry) Validate() error {
	if e.StockCode == "" {
		return fmt.Errorf("watchlist entry: empty stock_code")
	}
	return nil
}
