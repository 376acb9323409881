package strategy

import "fmt"

// ChainConfig is the declarative record that wires one scan chain. All
// strategy references are registry names.
type ChainConfig struct {
	EventDetector string   `yaml:"event_detector" json:"event_detector"`
	FundSelector  string   `yaml:"fund_selector" json:"fund_selector"`
	SignalFilters []string `yaml:"signal_filters" json:"signal_filters"`
	Evaluator     string   `yaml:"evaluator" json:"evaluator"` // optional

	EventConfig   map[string]any            `yaml:"event_config" json:"event_config"`
	FundConfig    map[string]any            `yaml:"fund_config" json:"fund_config"`
	FilterConfigs map[string]map[string]any `yaml:"filter_configs" json:"filter_configs"`
}

// DefaultChainConfig is the standard A-share limit-up chain.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		EventDetector: "limit_up_cn",
		FundSelector:  "highest_weight",
		SignalFilters: []string{"time_filter_cn", "liquidity_filter"},
		Evaluator:     "default",
	}
}

// Validate fails iff a required strategy reference is absent. Unknown names
// surface later, at chain assembly.
func (c ChainConfig) Validate() error {
	if c.EventDetector == "" {
		return fmt.Errorf("%w: event_detector is required", ErrConfig)
	}
	if c.FundSelector == "" {
		return fmt.Errorf("%w: fund_selector is required", ErrConfig)
	}
	return nil
}

// ToMap flattens the config for serialization surfaces that want a map.
func (c ChainConfig) ToMap() map[string]any {
	m := map[string]any{
		"event_detector": c.EventDetector,
		"fund_selector":  c.FundSelector,
		"evaluator":      c.Evaluator,
	}
	if c.SignalFilters != nil {
		filters := make([]string, len(c.SignalFilters))
		copy(filters, c.SignalFilters)
		m["signal_filters"] = filters
	}
	if c.EventConfig != nil {
		m["event_config"] = c.EventConfig
	}
	if c.FundConfig != nil {
		m["fund_config"] = c.FundConfig
	}
	if c.FilterConfigs != nil {
		m["filter_configs"] = c.FilterConfigs
	}
	return m
}

// ChainConfigFromMap rebuilds a config from ToMap output.
func ChainConfigFromMap(m map[string]any) (ChainConfig, error) {
	c := ChainConfig{
		EventDetector: asString(m["event_detector"]),
		FundSelector:  asString(m["fund_selector"]),
		Evaluator:     asString(m["evaluator"]),
	}

	switch filters := m["signal_filters"].(type) {
	case []string:
		c.SignalFilters = make([]string, len(filters))
		copy(c.SignalFilters, filters)
	case []any:
		for _, f := range filters {
			c.SignalFilters = append(c.SignalFilters, asString(f))
		}
	}

	if cfg, ok := m["event_config"].(map[string]any); ok {
		c.EventConfig = cfg
	}
	if cfg, ok := m["fund_config"].(map[string]any); ok {
		c.FundConfig = cfg
	}
	switch fc := m["filter_configs"].(type) {
	case map[string]map[string]any:
		c.FilterConfigs = fc
	case map[string]any:
		c.FilterConfigs = make(map[string]map[string]any, len(fc))
		for name, v := range fc {
			if sub, ok := v.(map[string]any); ok {
				c.FilterConfigs[name] = sub
			}
		}
	}

	if err := c.Validate(); err != nil {
		return ChainConfig{}, err
	}
	return c, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
