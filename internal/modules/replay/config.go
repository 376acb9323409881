// Package replay drives the scan chain over historical data: a simulated
// clock steps across the trading calendar while settable-instant providers
// serve cached quotes and holdings snapshots.
package replay

import (
	"fmt"
	"time"

	"github.com/aristath/arbscan/internal/modules/strategy"
)

// Granularity is the simulated clock's step size.
type Granularity string

const (
	GranularityDaily Granularity = "daily"
	Granularity5m    Granularity = "5m"
	Granularity15m   Granularity = "15m"
	Granularity30m   Granularity = "30m"
)

// Minutes returns the step in minutes; 0 for daily.
func (g Granularity) Minutes() int {
	switch g {
	case Granularity5m:
		return 5
	case Granularity15m:
		return 15
	case Granularity30m:
		return 30
	}
	return 0
}

// IsDaily reports whether the granularity steps whole trading days.
func (g Granularity) IsDaily() bool { return g == GranularityDaily }

func (g Granularity) valid() bool {
	switch g {
	case GranularityDaily, Granularity5m, Granularity15m, Granularity30m:
		return true
	}
	return false
}

// Date bounds accepted by BacktestConfig.
const (
	minBacktestDate = "20000101"
	maxBacktestDate = "20991231"
)

// BacktestConfig describes one replay run.
type BacktestConfig struct {
	StartDate      string      `yaml:"start_date" json:"start_date"` // compact, YYYYMMDD
	EndDate        string      `yaml:"end_date" json:"end_date"`
	Granularity    Granularity `yaml:"granularity" json:"granularity"`
	MinWeight      float64     `yaml:"min_weight" json:"min_weight"`
	MinTimeToClose int         `yaml:"min_time_to_close" json:"min_time_to_close"` // seconds
	MinETFVolume   float64     `yaml:"min_etf_volume" json:"min_etf_volume"`       // currency units
	EvaluatorType  string      `yaml:"evaluator_type" json:"evaluator_type"`
	SnapshotDates  []string    `yaml:"snapshot_dates,omitempty" json:"snapshot_dates,omitempty"`
	Interpolation  string      `yaml:"interpolation" json:"interpolation"` // linear | step
	UseWatchlist   bool        `yaml:"use_watchlist" json:"use_watchlist"`
}

// DefaultBacktestConfig returns a config with the standard thresholds; the
// caller still has to set the date range.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		Granularity:    GranularityDaily,
		MinWeight:      0.05,
		MinTimeToClose: 1800,
		MinETFVolume:   50_000_000,
		EvaluatorType:  "default",
		Interpolation:  "linear",
		UseWatchlist:   true,
	}
}

// Validate enforces the documented bounds on dates, granularity, weight and
// interpolation.
func (c BacktestConfig) Validate() error {
	start, err := time.Parse("20060102", c.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start_date %q must be YYYYMMDD", strategy.ErrConfig, c.StartDate)
	}
	end, err := time.Parse("20060102", c.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end_date %q must be YYYYMMDD", strategy.ErrConfig, c.EndDate)
	}
	if c.StartDate < minBacktestDate {
		return fmt.Errorf("%w: start_date %s before %s", strategy.ErrConfig, c.StartDate, minBacktestDate)
	}
	if c.EndDate > maxBacktestDate {
		return fmt.Errorf("%w: end_date %s after %s", strategy.ErrConfig, c.EndDate, maxBacktestDate)
	}
	if start.After(end) {
		return fmt.Errorf("%w: start_date %s after end_date %s", strategy.ErrConfig, c.StartDate, c.EndDate)
	}
	if !c.Granularity.valid() {
		return fmt.Errorf("%w: unknown granularity %q", strategy.ErrConfig, c.Granularity)
	}
	if c.MinWeight < 0.001 || c.MinWeight > 1.0 {
		return fmt.Errorf("%w: min_weight %.4f outside [0.001, 1.0]", strategy.ErrConfig, c.MinWeight)
	}
	if c.Interpolation != "linear" && c.Interpolation != "step" {
		return fmt.Errorf("%w: interpolation must be linear or step, got %q", strategy.ErrConfig, c.Interpolation)
	}
	return nil
}

// ToMap flattens the config for serialization surfaces that want a map.
func (c BacktestConfig) ToMap() map[string]any {
	m := map[string]any{
		"start_date":        c.StartDate,
		"end_date":          c.EndDate,
		"granularity":       string(c.Granularity),
		"min_weight":        c.MinWeight,
		"min_time_to_close": c.MinTimeToClose,
		"min_etf_volume":    c.MinETFVolume,
		"evaluator_type":    c.EvaluatorType,
		"interpolation":     c.Interpolation,
		"use_watchlist":     c.UseWatchlist,
	}
	if c.SnapshotDates != nil {
		dates := make([]string, len(c.SnapshotDates))
		copy(dates, c.SnapshotDates)
		m["snapshot_dates"] = dates
	}
	return m
}

// BacktestConfigFromMap rebuilds a validated config from ToMap output,
// filling the standard defaults for absent keys.
func BacktestConfigFromMap(m map[string]any) (BacktestConfig, error) {
	c := DefaultBacktestConfig()
	c.StartDate = mapString(m, "start_date", "")
	c.EndDate = mapString(m, "end_date", "")
	c.Granularity = Granularity(mapString(m, "granularity", string(GranularityDaily)))
	c.MinWeight = mapFloat(m, "min_weight", c.MinWeight)
	c.MinTimeToClose = mapInt(m, "min_time_to_close", c.MinTimeToClose)
	c.MinETFVolume = mapFloat(m, "min_etf_volume", c.MinETFVolume)
	c.EvaluatorType = mapString(m, "evaluator_type", c.EvaluatorType)
	c.Interpolation = mapString(m, "interpolation", c.Interpolation)
	c.UseWatchlist = mapBool(m, "use_watchlist", c.UseWatchlist)

	switch dates := m["snapshot_dates"].(type) {
	case []string:
		c.SnapshotDates = make([]string, len(dates))
		copy(c.SnapshotDates, dates)
	case []any:
		for _, d := range dates {
			if s, ok := d.(string); ok {
				c.SnapshotDates = append(c.SnapshotDates, s)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return BacktestConfig{}, err
	}
	return c, nil
}

func mapString(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

func mapFloat(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func mapInt(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func mapBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}
