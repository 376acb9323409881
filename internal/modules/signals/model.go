// Package signals defines the TradingSignal model, its confidence
// breakdown, persistence contracts and delivery sinks.
package signals

import (
	"fmt"
	"time"
)

// TimestampLayout is the canonical signal timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// Confidence grades how strong a signal is.
type Confidence string

// RiskLevel grades how risky acting on a signal is.
type RiskLevel string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"

	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank orders confidence levels: low < medium < high.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// Rank orders risk levels: low < medium < high.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// TradingSignal is the engine's output: a detected event paired with the
// chosen ETF and its evaluation. Immutable once built.
type TradingSignal struct {
	SignalID  string `json:"signal_id"`
	Timestamp string `json:"timestamp"` // TimestampLayout

	// Event security
	StockCode  string  `json:"stock_code"`
	StockName  string  `json:"stock_name"`
	StockPrice float64 `json:"stock_price"`
	ChangePct  float64 `json:"change_pct"`

	// Chosen ETF
	ETFCode    string  `json:"etf_code"`
	ETFName    string  `json:"etf_name"`
	ETFWeight  float64 `json:"etf_weight"`
	ETFPrice   float64 `json:"etf_price"`
	ETFPremium float64 `json:"etf_premium"`
	ETFAmount  float64 `json:"etf_amount"` // daily turnover, currency units

	// Evaluation
	Reason     string     `json:"reason"`
	Confidence Confidence `json:"confidence"`
	RiskLevel  RiskLevel  `json:"risk_level"`

	// Ranking
	ActualWeight float64 `json:"actual_weight"`
	WeightRank   int     `json:"weight_rank"`
	Top10Ratio   float64 `json:"top10_ratio"`

	// A-share extras, optional
	LimitTime  string  `json:"limit_time,omitempty"`
	SealAmount float64 `json:"seal_amount,omitempty"`
}

// NewSignalID builds the canonical signal identifier for a security at an
// instant: SIG_<compact timestamp>_<code>.
func NewSignalID(ts time.Time, securityCode string) string {
	return "SIG_" + ts.Format("20060102150405") + "_" + securityCode
}

// Validate enforces the invariants every emitted signal must satisfy.
func (s *TradingSignal) Validate() error {
	if s.SignalID == "" {
		return fmt.Errorf("signal: empty signal_id")
	}
	if s.StockCode == "" {
		return fmt.Errorf("signal %s: empty stock_code", s.SignalID)
	}
	if s.ETFCode == "" {
		return fmt.Errorf("signal %s: empty etf_code", s.SignalID)
	}
	if s.ETFWeight < 0 || s.ETFWeight > 1 {
		return fmt.Errorf("signal %s: etf_weight %.4f outside [0,1]", s.SignalID, s.ETFWeight)
	}
	if s.Top10Ratio < 0 || s.Top10Ratio > 1 {
		return fmt.Errorf("signal %s: top10_ratio %.4f outside [0,1]", s.SignalID, s.Top10Ratio)
	}
	return nil
}

// ToMap flattens the signal for serialization surfaces that want a map.
func (s *TradingSignal) ToMap() map[string]any {
	return map[string]any{
		"signal_id":     s.SignalID,
		"timestamp":     s.Timestamp,
		"stock_code":    s.StockCode,
		"stock_name":    s.StockName,
		"stock_price":   s.StockPrice,
		"change_pct":    s.ChangePct,
		"etf_code":      s.ETFCode,
		"etf_name":      s.ETFName,
		"etf_weight":    s.ETFWeight,
		"etf_price":     s.ETFPrice,
		"etf_premium":   s.ETFPremium,
		"etf_amount":    s.ETFAmount,
		"reason":        s.Reason,
		"confidence":    string(s.Confidence),
		"risk_level":    string(s.RiskLevel),
		"actual_weight": s.ActualWeight,
		"weight_rank":   s.WeightRank,
		"top10_ratio":   s.Top10Ratio,
		"limit_time":    s.LimitTime,
		"seal_amount":   s.SealAmount,
	}
}

// FromMap rebuilds a signal from ToMap output (numeric values may arrive as
// float64 after JSON decoding).
func FromMap(m map[string]any) (*TradingSignal, error) {
	s := &TradingSignal{
		SignalID:     asString(m["signal_id"]),
		Timestamp:    asString(m["timestamp"]),
		StockCode:    asString(m["stock_code"]),
		StockName:    asString(m["stock_name"]),
		StockPrice:   asFloat(m["stock_price"]),
		ChangePct:    asFloat(m["change_pct"]),
		ETFCode:      asString(m["etf_code"]),
		ETFName:      asString(m["etf_name"]),
		ETFWeight:    asFloat(m["etf_weight"]),
		ETFPrice:     asFloat(m["etf_price"]),
		ETFPremium:   asFloat(m["etf_premium"]),
		ETFAmount:    asFloat(m["etf_amount"]),
		Reason:       asString(m["reason"]),
		Confidence:   Confidence(asString(m["confidence"])),
		RiskLevel:    RiskLevel(asString(m["risk_level"])),
		ActualWeight: asFloat(m["actual_weight"]),
		WeightRank:   int(asFloat(m["weight_rank"])),
		Top10Ratio:   asFloat(m["top10_ratio"]),
		LimitTime:    asString(m["limit_time"]),
		SealAmount:   asFloat(m["seal_amount"]),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
