package signals

// ScoreItem is one weighted component of a confidence breakdown.
type ScoreItem struct {
	Name      string  `json:"name"`
	Score     int     `json:"score"` // 0-100
	Weight    float64 `json:"weight"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
}

// WeightedScore returns score scaled by the item's weight share.
func (i ScoreItem) WeightedScore() float64 {
	return float64(i.Score) * i.Weight
}

// BreakdownThresholds configures the per-item thresholds of a confidence
// breakdown.
type BreakdownThresholds struct {
	MinOrderAmount float64 // seal amount, 10^8 currency units
	MinWeight      float64 // ETF holding weight, fractional
	MinETFVolume   float64 // ETF turnover, 10^4 currency units
	MinTimeToClose int     // seconds
}

// DefaultBreakdownThresholds mirrors the balanced strategy template.
func DefaultBreakdownThresholds() BreakdownThresholds {
	return BreakdownThresholds{
		MinOrderAmount: 10,
		MinWeight:      0.05,
		MinETFVolume:   5000,
		MinTimeToClose: 1800,
	}
}

// ConfidenceBreakdown explains a signal's confidence as four weighted
// sub-scores: seal order amount (30%), holding weight (30%), ETF liquidity
// (25%) and time to close (15%).
type ConfidenceBreakdown struct {
	TotalScore  int        `json:"total_score"` // 0-100
	Level       Confidence `json:"level"`
	OrderAmount ScoreItem  `json:"order_amount_score"`
	Weight      ScoreItem  `json:"weight_score"`
	Liquidity   ScoreItem  `json:"liquidity_score"`
	TimeToClose ScoreItem  `json:"time_to_close_score"`
}

// Scores returns the items in display order.
func (b *ConfidenceBreakdown) Scores() []ScoreItem {
	return []ScoreItem{b.OrderAmount, b.Weight, b.Liquidity, b.TimeToClose}
}

func scoreAgainst(value, threshold float64) int {
	if threshold <= 0 {
		return 100
	}
	score := int(value / threshold * 80)
	if score > 100 {
		return 100
	}
	return score
}

// NewConfidenceBreakdown scores a signal's inputs against thresholds. Each
// item scores min(100, value/threshold*80); the total is the weighted sum,
// graded high >= 80, medium >= 60, low otherwise.
func NewConfidenceBreakdown(sealAmount, weight, etfVolume float64, timeToClose int, th BreakdownThresholds) *ConfidenceBreakdown {
	orderItem := ScoreItem{
		Name:      "order_amount",
		Score:     scoreAgainst(sealAmount, th.MinOrderAmount),
		Weight:    0.30,
		Value:     sealAmount,
		Threshold: th.MinOrderAmount,
		Passed:    sealAmount >= th.MinOrderAmount,
	}
	weightItem := ScoreItem{
		Name:      "weight",
		Score:     scoreAgainst(weight, th.MinWeight),
		Weight:    0.30,
		Value:     weight,
		Threshold: th.MinWeight,
		Passed:    weight >= th.MinWeight,
	}
	liquidityItem := ScoreItem{
		Name:      "liquidity",
		Score:     scoreAgainst(etfVolume, th.MinETFVolume),
		Weight:    0.25,
		Value:     etfVolume,
		Threshold: th.MinETFVolume,
		Passed:    etfVolume >= th.MinETFVolume,
	}
	timeItem := ScoreItem{
		Name:      "time_to_close",
		Score:     scoreAgainst(float64(timeToClose), float64(th.MinTimeToClose)),
		Weight:    0.15,
		Value:     float64(timeToClose),
		Threshold: float64(th.MinTimeToClose),
		Passed:    timeToClose >= th.MinTimeToClose,
	}

	total := int(orderItem.WeightedScore() + weightItem.WeightedScore() +
		liquidityItem.WeightedScore() + timeItem.WeightedScore())

	level := ConfidenceLow
	switch {
	case total >= 80:
		level = ConfidenceHigh
	case total >= 60:
		level = ConfidenceMedium
	}

	return &ConfidenceBreakdown{
		TotalScore:  total,
		Level:       level,
		OrderAmount: orderItem,
		Weight:      weightItem,
		Liquidity:   liquidityItem,
		TimeToClose: timeItem,
	}
}
