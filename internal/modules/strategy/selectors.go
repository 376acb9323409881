package strategy

import (
	"fmt"
	"sort"

	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/registry"
)

func init() {
	Selectors.Register("highest_weight", func(cfg map[string]any) (FundSelector, error) {
		return NewHighestWeightSelector(cfgFloat(cfg, "min_weight", 0.05)), nil
	}, registry.Meta{Priority: 100, Version: "1.0.0", Description: "pick the ETF with the highest holding weight"})

	Selectors.Register("best_liquidity", func(cfg map[string]any) (FundSelector, error) {
		return &BestLiquiditySelector{}, nil
	}, registry.Meta{Priority: 75, Version: "1.0.0", Description: "pick the most liquid ETF"})

	Selectors.Register("lowest_premium", func(cfg map[string]any) (FundSelector, error) {
		return &LowestPremiumSelector{}, nil
	}, registry.Meta{Priority: 60, Version: "1.0.0", Description: "pick the ETF with the lowest premium"})

	Selectors.Register("balanced", func(cfg map[string]any) (FundSelector, error) {
		return NewBalancedSelector(
			cfgFloat(cfg, "weight_score", 0.5),
			cfgFloat(cfg, "liquidity_score", 0.3),
			cfgFloat(cfg, "premium_score", 0.2),
		), nil
	}, registry.Meta{Priority: 50, Version: "1.0.0", Description: "composite score over weight, liquidity and premium"})
}

// selectByWeight returns the entry with maximal weight, ties broken by
// lower rank. Shared fallback for selectors whose preferred ranking data is
// not available from holdings alone.
func selectByWeight(eligible []market.HoldingEntry) *market.HoldingEntry {
	if len(eligible) == 0 {
		return nil
	}
	sorted := make([]market.HoldingEntry, len(eligible))
	copy(sorted, eligible)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Rank < sorted[j].Rank
	})
	chosen := sorted[0]
	return &chosen
}

// HighestWeightSelector picks the ETF where the event security carries the
// largest weight: the event moves that ETF the most.
type HighestWeightSelector struct {
	minWeight float64
}

// NewHighestWeightSelector creates a selector with a weight floor.
func NewHighestWeightSelector(minWeight float64) *HighestWeightSelector {
	return &HighestWeightSelector{minWeight: minWeight}
}

func (s *HighestWeightSelector) Name() string { return "highest_weight" }

// Select returns the highest-weight entry clearing the floor.
func (s *HighestWeightSelector) Select(eligible []market.HoldingEntry, _ *market.Event) *market.HoldingEntry {
	var qualified []market.HoldingEntry
	for _, e := range eligible {
		if e.Weight >= s.minWeight {
			qualified = append(qualified, e)
		}
	}
	return selectByWeight(qualified)
}

func (s *HighestWeightSelector) SelectionReason(fund market.HoldingEntry) string {
	return fmt.Sprintf("highest weight (%.2f%%)", fund.WeightPct())
}

// BestLiquiditySelector prefers the most liquid ETF. Holdings data carries
// no turnover, so selection falls back to weight order.
type BestLiquiditySelector struct{}

func (s *BestLiquiditySelector) Name() string { return "best_liquidity" }

func (s *BestLiquiditySelector) Select(eligible []market.HoldingEntry, _ *market.Event) *market.HoldingEntry {
	return selectByWeight(eligible)
}

func (s *BestLiquiditySelector) SelectionReason(market.HoldingEntry) string {
	return "best liquidity"
}

// LowestPremiumSelector prefers the ETF trading closest to its IOPV.
// Holdings data carries no premium, so selection falls back to weight order.
type LowestPremiumSelector struct{}

func (s *LowestPremiumSelector) Name() string { return "lowest_premium" }

func (s *LowestPremiumSelector) Select(eligible []market.HoldingEntry, _ *market.Event) *market.HoldingEntry {
	return selectByWeight(eligible)
}

func (s *LowestPremiumSelector) SelectionReason(market.HoldingEntry) string {
	return "lowest premium"
}

// BalancedSelector scores candidates on a weighted composite. Weight is
// normalized against a 20% holding; liquidity and premium factors are
// reserved until holdings snapshots carry them.
type BalancedSelector struct {
	weightScore    float64
	liquidityScore float64
	premiumScore   float64
}

// NewBalancedSelector creates a selector with the given factor shares.
func NewBalancedSelector(weightScore, liquidityScore, premiumScore float64) *BalancedSelector {
	return &BalancedSelector{
		weightScore:    weightScore,
		liquidityScore: liquidityScore,
		premiumScore:   premiumScore,
	}
}

func (s *BalancedSelector) Name() string { return "balanced" }

func (s *BalancedSelector) score(fund market.HoldingEntry) float64 {
	weightScore := fund.Weight / 0.20
	if weightScore > 1 {
		weightScore = 1
	}
	return weightScore * s.weightScore
}

// Select returns the entry with the best composite score.
func (s *BalancedSelector) Select(eligible []market.HoldingEntry, _ *market.Event) *market.HoldingEntry {
	if len(eligible) == 0 {
		return nil
	}
	best := eligible[0]
	bestScore := s.score(best)
	for _, e := range eligible[1:] {
		if sc := s.score(e); sc > bestScore {
			best, bestScore = e, sc
		}
	}
	chosen := best
	return &chosen
}

func (s *BalancedSelector) SelectionReason(fund market.HoldingEntry) string {
	return fmt.Sprintf("best composite score (weight %.2f%%)", fund.WeightPct())
}
