// Package market holds the market-data domain model shared by the strategy
// chain, the live scanner and the replay engine: quotes, ETF holdings,
// detected events, provider contracts and the trading calendar.
package market

import (
	"fmt"
	"time"
)

// ETFCategory classifies an ETF by what its index tracks.
type ETFCategory string

const (
	CategoryBroadIndex ETFCategory = "broad_index"
	CategorySector     ETFCategory = "sector"
	CategoryTheme      ETFCategory = "theme"
	CategoryStrategy   ETFCategory = "strategy"
	CategoryOther      ETFCategory = "other"
)

// Quote is a point-in-time snapshot of one security.
type Quote struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"` // fractional, 0.1001 = +10.01%
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`
	Amount    float64   `json:"amount"`            // turnover in currency units
	Premium   float64   `json:"premium,omitempty"` // ETF quotes only, fractional over IOPV
	IsLimitUp bool      `json:"is_limit_up"`
	Timestamp time.Time `json:"timestamp"`
}

// HoldingEntry describes one ETF's position in a security: how much of the
// ETF's assets the security represents and where it ranks among holdings.
type HoldingEntry struct {
	ETFCode    string      `json:"etf_code"`
	ETFName    string      `json:"etf_name"`
	Weight     float64     `json:"weight"` // fraction of ETF assets, [0,1]
	Category   ETFCategory `json:"category"`
	Rank       int         `json:"rank"` // 1-based; -1 when unknown
	InTop10    bool        `json:"in_top10"`
	Top10Ratio float64     `json:"top10_ratio"` // [0,1]
}

// NewHoldingEntry validates the bounds the rest of the engine relies on.
func NewHoldingEntry(etfCode, etfName string, weight float64, category ETFCategory, rank int, inTop10 bool, top10Ratio float64) (HoldingEntry, error) {
	if etfCode == "" {
		return HoldingEntry{}, fmt.Errorf("holding entry: etf code is empty")
	}
	if weight < 0 || weight > 1 {
		return HoldingEntry{}, fmt.Errorf("holding entry %s: weight %.4f outside [0,1]", etfCode, weight)
	}
	if top10Ratio < 0 || top10Ratio > 1 {
		return HoldingEntry{}, fmt.Errorf("holding entry %s: top10 ratio %.4f outside [0,1]", etfCode, top10Ratio)
	}
	if rank < -1 {
		return HoldingEntry{}, fmt.Errorf("holding entry %s: rank %d below -1", etfCode, rank)
	}
	if category == "" {
		category = CategoryOther
	}
	return HoldingEntry{
		ETFCode:    etfCode,
		ETFName:    etfName,
		Weight:     weight,
		Category:   category,
		Rank:       rank,
		InTop10:    inTop10,
		Top10Ratio: top10Ratio,
	}, nil
}

// WeightPct returns the weight as a percentage.
func (h HoldingEntry) WeightPct() float64 {
	return h.Weight * 100
}
