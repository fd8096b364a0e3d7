package config

import (
	_ "embed"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns the built-in configuration with the stock dashboard pages.
func Default() (*Config, error) {
	return Parse(defaultYAML)
}
