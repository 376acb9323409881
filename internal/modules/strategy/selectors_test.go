package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/modules/market"
)

func holding(code string, weight float64, rank int, top10 float64) market.HoldingEntry {
	return market.HoldingEntry{
		ETFCode:    code,
		ETFName:    code + " ETF",
		Weight:     weight,
		Category:   market.CategorySector,
		Rank:       rank,
		InTop10:    rank > 0 && rank <= 10,
		Top10Ratio: top10,
	}
}

func TestHighestWeightSelector(t *testing.T) {
	s := NewHighestWeightSelector(0.05)

	eligible := []market.HoldingEntry{
		holding("510300", 0.06, 8, 0.4),
		holding("512880", 0.12, 2, 0.5),
		holding("515000", 0.03, 20, 0.3),
	}

	fund := s.Select(eligible, nil)
	require.NotNil(t, fund)
	assert.Equal(t, "512880", fund.ETFCode)
	assert.Equal(t, "highest weight (12.00%)", s.SelectionReason(*fund))
}

func TestHighestWeightSelector_AllBelowFloor(t *testing.T) {
	s := NewHighestWeightSelector(0.05)

	eligible := []market.HoldingEntry{holding("510300", 0.02, 30, 0.4)}
	assert.Nil(t, s.Select(eligible, nil))
	assert.Nil(t, s.Select(nil, nil))
}

func TestSelectByWeight_TieBreaksOnRank(t *testing.T) {
	eligible := []market.HoldingEntry{
		holding("510300", 0.08, 5, 0.4),
		holding("512880", 0.08, 2, 0.5),
	}

	fund := selectByWeight(eligible)
	require.NotNil(t, fund)
	assert.Equal(t, "512880", fund.ETFCode)
}

func TestFallbackSelectorsUseWeight(t *testing.T) {
	eligible := []market.HoldingEntry{
		holding("510300", 0.06, 8, 0.4),
		holding("512880", 0.12, 2, 0.5),
	}

	for _, s := range []FundSelector{&BestLiquiditySelector{}, &LowestPremiumSelector{}} {
		fund := s.Select(eligible, nil)
		require.NotNil(t, fund, s.Name())
		assert.Equal(t, "512880", fund.ETFCode, s.Name())
	}
}

func TestBalancedSelector(t *testing.T) {
	s := NewBalancedSelector(0.5, 0.3, 0.2)

	eligible := []market.HoldingEntry{
		holding("510300", 0.06, 8, 0.4),
		holding("512880", 0.12, 2, 0.5),
	}

	fund := s.Select(eligible, nil)
	require.NotNil(t, fund)
	assert.Equal(t, "512880", fund.ETFCode)

	// Weight score caps at a 20% holding.
	assert.Equal(t, s.score(holding("a", 0.20, 1, 0)), s.score(holding("b", 0.40, 1, 0)))
	assert.Nil(t, s.Select(nil, nil))
}

func TestSelectorRegistryOrder(t *testing.T) {
	names := Selectors.Names()
	assert.Equal(t, []string{"highest_weight", "best_liquidity", "lowest_premium", "balanced"}, names)
}
