package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyPreset is one named strategy template: the risk-profile knobs a
// caller picks as a unit instead of tuning each threshold.
type StrategyPreset struct {
	ID             string  `yaml:"id" json:"id"`
	MinWeight      float64 `yaml:"min_weight" json:"min_weight"`
	MinETFVolume   float64 `yaml:"min_etf_volume" json:"min_etf_volume"`     // 10k currency units
	MinOrderAmount float64 `yaml:"min_order_amount" json:"min_order_amount"` // 10^8 currency units
	Evaluator      string  `yaml:"evaluator" json:"evaluator"`
}

// BuiltinPresets returns the three shipped strategy templates.
func BuiltinPresets() []StrategyPreset {
	return []StrategyPreset{
		{ID: "conservative", MinWeight: 0.08, MinETFVolume: 8000, MinOrderAmount: 15, Evaluator: "conservative"},
		{ID: "balanced", MinWeight: 0.05, MinETFVolume: 5000, MinOrderAmount: 10, Evaluator: "default"},
		{ID: "aggressive", MinWeight: 0.03, MinETFVolume: 3000, MinOrderAmount: 5, Evaluator: "aggressive"},
	}
}

// LoadPresets returns the strategy templates, overridden by the YAML file at
// path when it is non-empty. File entries replace built-ins with the same id
// and append otherwise.
func LoadPresets(path string) ([]StrategyPreset, error) {
	presets := BuiltinPresets()
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets %s: %w", path, err)
	}

	var file struct {
		Presets []StrategyPreset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}

	for _, p := range file.Presets {
		if p.ID == "" {
			return nil, fmt.Errorf("presets %s: entry without id", path)
		}
		replaced := false
		for i := range presets {
			if presets[i].ID == p.ID {
				presets[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			presets = append(presets, p)
		}
	}
	return presets, nil
}

// Preset returns the template with the given id.
func Preset(presets []StrategyPreset, id string) (StrategyPreset, error) {
	for _, p := range presets {
		if p.ID == id {
			return p, nil
		}
	}
	return StrategyPreset{}, fmt.Errorf("unknown strategy preset %q", id)
}
