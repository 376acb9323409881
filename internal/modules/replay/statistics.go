package replay

import (
	"sort"
	"strings"

	"github.com/aristath/arbscan/internal/modules/signals"
)

// CountPair is one (key, count) aggregation entry.
type CountPair struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// SignalStatistics aggregates one replay run's emitted signals.
type SignalStatistics struct {
	TotalSignals int `json:"total_signals"`

	HighConfidenceCount   int `json:"high_confidence_count"`
	MediumConfidenceCount int `json:"medium_confidence_count"`
	LowConfidenceCount    int `json:"low_confidence_count"`

	HighRiskCount   int `json:"high_risk_count"`
	MediumRiskCount int `json:"medium_risk_count"`
	LowRiskCount    int `json:"low_risk_count"`

	SignalsByDate  map[string]int `json:"signals_by_date"`  // compact YYYYMMDD
	SignalsByMonth map[string]int `json:"signals_by_month"` // YYYYMM
	SignalsByStock map[string]int `json:"signals_by_stock"`
	SignalsByETF   map[string]int `json:"signals_by_etf"`

	MostTriggeredStocks []CountPair `json:"most_triggered_stocks"`
	MostUsedETFs        []CountPair `json:"most_used_etfs"`
}

// signalDate extracts the compact date from a signal timestamp
// ("2006-01-02 15:04:05" or "2006-01-02").
func signalDate(timestamp string) string {
	if len(timestamp) < 10 {
		return ""
	}
	return strings.ReplaceAll(timestamp[:10], "-", "")
}

// ComputeStatistics aggregates sigs.
func ComputeStatistics(sigs []*signals.TradingSignal) *SignalStatistics {
	st := &SignalStatistics{
		SignalsByDate:  make(map[string]int),
		SignalsByMonth: make(map[string]int),
		SignalsByStock: make(map[string]int),
		SignalsByETF:   make(map[string]int),
	}

	for _, s := range sigs {
		st.TotalSignals++

		switch s.Confidence {
		case signals.ConfidenceHigh:
			st.HighConfidenceCount++
		case signals.ConfidenceMedium:
			st.MediumConfidenceCount++
		default:
			st.LowConfidenceCount++
		}

		switch s.RiskLevel {
		case signals.RiskHigh:
			st.HighRiskCount++
		case signals.RiskMedium:
			st.MediumRiskCount++
		default:
			st.LowRiskCount++
		}

		if date := signalDate(s.Timestamp); date != "" {
			st.SignalsByDate[date]++
			st.SignalsByMonth[date[:6]]++
		}
		st.SignalsByStock[s.StockCode]++
		st.SignalsByETF[s.ETFCode]++
	}

	st.MostTriggeredStocks = rankedPairs(st.SignalsByStock)
	st.MostUsedETFs = rankedPairs(st.SignalsByETF)
	return st
}

// rankedPairs orders a count map by count descending, key ascending on ties.
func rankedPairs(counts map[string]int) []CountPair {
	out := make([]CountPair, 0, len(counts))
	for key, count := range counts {
		out = append(out, CountPair{Key: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// AverageSignalsPerDay returns total signals over distinct signal days.
func (st *SignalStatistics) AverageSignalsPerDay() float64 {
	days := len(st.SignalsByDate)
	if days == 0 {
		return 0
	}
	return float64(st.TotalSignals) / float64(days)
}

// MaxSignalsDay returns the busiest day and its count; empty when no
// signals.
func (st *SignalStatistics) MaxSignalsDay() (string, int) {
	bestDay, bestCount := "", 0
	for day, count := range st.SignalsByDate {
		if count > bestCount || (count == bestCount && day < bestDay) {
			bestDay, bestCount = day, count
		}
	}
	return bestDay, bestCount
}
