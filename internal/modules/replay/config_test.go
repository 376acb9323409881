package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/modules/strategy"
)

func validConfig() BacktestConfig {
	cfg := DefaultBacktestConfig()
	cfg.StartDate = "20240115"
	cfg.EndDate = "20240119"
	return cfg
}

func TestBacktestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*BacktestConfig)
	}{
		{"bad start format", func(c *BacktestConfig) { c.StartDate = "2024-01-15" }},
		{"bad end format", func(c *BacktestConfig) { c.EndDate = "next week" }},
		{"start before floor", func(c *BacktestConfig) { c.StartDate = "19991231" }},
		{"end after ceiling", func(c *BacktestConfig) { c.EndDate = "21000101" }},
		{"start after end", func(c *BacktestConfig) { c.StartDate = "20240120" }},
		{"unknown granularity", func(c *BacktestConfig) { c.Granularity = "1h" }},
		{"weight too small", func(c *BacktestConfig) { c.MinWeight = 0.0001 }},
		{"weight too large", func(c *BacktestConfig) { c.MinWeight = 1.5 }},
		{"unknown interpolation", func(c *BacktestConfig) { c.Interpolation = "spline" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, strategy.ErrConfig)
		})
	}
}

func TestBacktestConfig_MapRoundTrip(t *testing.T) {
	cfg := validConfig()
	cfg.Granularity = Granularity15m
	cfg.SnapshotDates = []string{"20240101", "20240201"}
	cfg.EvaluatorType = "aggressive"
	cfg.UseWatchlist = false

	back, err := BacktestConfigFromMap(cfg.ToMap())
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestBacktestConfigFromMap_Defaults(t *testing.T) {
	cfg, err := BacktestConfigFromMap(map[string]any{
		"start_date": "20240115",
		"end_date":   "20240119",
	})
	require.NoError(t, err)
	assert.Equal(t, GranularityDaily, cfg.Granularity)
	assert.Equal(t, 0.05, cfg.MinWeight)
	assert.Equal(t, 1800, cfg.MinTimeToClose)
	assert.Equal(t, "linear", cfg.Interpolation)
	assert.True(t, cfg.UseWatchlist)
}

func TestGranularityMinutes(t *testing.T) {
	assert.Equal(t, 0, GranularityDaily.Minutes())
	assert.Equal(t, 5, Granularity5m.Minutes())
	assert.Equal(t, 15, Granularity15m.Minutes())
	assert.Equal(t, 30, Granularity30m.Minutes())
	assert.True(t, GranularityDaily.IsDaily())
	assert.False(t, Granularity5m.IsDaily())
}
