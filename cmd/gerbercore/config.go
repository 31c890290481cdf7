package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the render/mesh configuration the core itself never takes
// (spec.md §6.3: "no CLI, no environment, no persisted state owned by the
// core") but the driving command needs. Loaded from an optional TOML file,
// then overridden field-by-field by cobra flags — the same
// file-then-flag-override layering `kallsyms-go-nexrad`'s render command
// uses for its own config.
type Config struct {
	DPI         float64 `toml:"dpi"`
	SegsPerTurn int     `toml:"segs_per_turn"`
	StencilMM   float64 `toml:"stencil_height_mm"`
	KeepPNG     bool    `toml:"keep_png"`
}

// DefaultConfig mirrors the teacher's hardcoded DPI=1000, StencilHeight=0.2
// globals, now defaults instead of package vars.
func DefaultConfig() Config {
	return Config{
		DPI:         1000,
		SegsPerTurn: 32,
		StencilMM:   0.2,
		KeepPNG:     false,
	}
}

// LoadConfig reads a TOML config file over DefaultConfig's values. A missing
// path is not an error: the caller gets the defaults back, since the core
// and its command wrapper are both expected to run with zero setup.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
