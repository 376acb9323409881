package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/clock"
)

func TestNewHoldingEntry_Valid(t *testing.T) {
	h, err := NewHoldingEntry("510300", "CSI 300 ETF", 0.08, CategoryBroadIndex, 1, true, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 8.0, h.WeightPct())
	assert.Equal(t, CategoryBroadIndex, h.Category)
}

func TestNewHoldingEntry_Bounds(t *testing.T) {
	_, err := NewHoldingEntry("510300", "", 1.2, CategorySector, 1, true, 0.2)
	assert.Error(t, err)

	_, err = NewHoldingEntry("510300", "", 0.5, CategorySector, 1, true, 1.5)
	assert.Error(t, err)

	_, err = NewHoldingEntry("510300", "", 0.5, CategorySector, -2, true, 0.2)
	assert.Error(t, err)

	_, err = NewHoldingEntry("", "", 0.5, CategorySector, 1, true, 0.2)
	assert.Error(t, err)
}

func TestNewHoldingEntry_DefaultsCategory(t *testing.T) {
	h, err := NewHoldingEntry("512690", "Liquor ETF", 0.15, "", -1, false, 0.6)
	require.NoError(t, err)
	assert.Equal(t, CategoryOther, h.Category)
}

func TestLimitUpThreshold(t *testing.T) {
	assert.Equal(t, 0.20, LimitUpThreshold("688001"))
	assert.Equal(t, 0.20, LimitUpThreshold("300750"))
	assert.Equal(t, 0.20, LimitUpThreshold("830799"))
	assert.Equal(t, 0.20, LimitUpThreshold("430047"))
	assert.Equal(t, 0.10, LimitUpThreshold("600519"))
	assert.Equal(t, 0.10, LimitUpThreshold("000001"))
}

func TestIsLimitUp(t *testing.T) {
	assert.True(t, IsLimitUpHistorical("600519", 0.10))
	assert.False(t, IsLimitUpHistorical("600519", 0.0999))
	assert.True(t, IsLimitUpLive("600519", 0.0951))
	assert.False(t, IsLimitUpLive("600519", 0.0949))
	assert.True(t, IsLimitUpLive("300750", 0.1951))
	assert.False(t, IsLimitUpLive("300750", 0.15))
}

func TestMemoryQuoteProvider(t *testing.T) {
	p := NewMemoryQuoteProvider()
	ts := time.Date(2024, 1, 15, 14, 30, 0, 0, clock.ChinaTZ)

	p.SetQuote(Quote{Code: "600519", Name: "Kweichow Moutai", Price: 1800, ChangePct: 0.1001, IsLimitUp: true, Timestamp: ts})

	q, err := p.GetQuote(context.Background(), "600519")
	require.NoError(t, err)
	assert.True(t, q.IsLimitUp)

	_, err = p.GetQuote(context.Background(), "000001")
	assert.ErrorIs(t, err, ErrNoData)

	p.RemoveQuote("600519")
	_, err = p.GetQuote(context.Background(), "600519")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMemoryQuoteProvider_ContextDeadline(t *testing.T) {
	p := NewMemoryQuoteProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GetQuote(ctx, "600519")
	assert.ErrorIs(t, err, ErrProviderTimeout)
}

func TestMemoryHoldingProvider(t *testing.T) {
	p := NewMemoryHoldingProvider()
	h, err := NewHoldingEntry("510300", "CSI 300 ETF", 0.08, CategoryBroadIndex, 1, true, 0.25)
	require.NoError(t, err)

	p.SetHoldings("600519", []HoldingEntry{h})

	got, err := p.FindETFsHolding(context.Background(), "600519")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "510300", got[0].ETFCode)

	got, err = p.FindETFsHolding(context.Background(), "000001")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventMetadata(t *testing.T) {
	e := &Event{Type: EventLimitUp, SecurityCode: "600519", Metadata: map[string]any{"seal_amount": 1.5e9}}

	v, ok := e.MetaFloat("seal_amount")
	require.True(t, ok)
	assert.Equal(t, 1.5e9, v)

	assert.Nil(t, e.Meta("missing"))
	empty := &Event{}
	assert.Nil(t, empty.Meta("seal_amount"))
}
