package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# optpricer configuration

[engine]
# Parallel workers for scenario runs (0 = one per CPU, 1 = sequential)
workers = 0
# Measures reported when a command names none
measures = ["price", "delta", "gamma", "exposure"]

[market]
# Risk-free rate used when a market snapshot carries none
default_rate = 0.0

[store]
# SQLite database holding market snapshots and trades
# path = "~/.config/optpricer/optpricer.db"

[logging]
# Level: debug, info, warn, error
level = "info"
# Also write rotated JSON logs to file_path
file = false

[metrics]
# Write prometheus metrics to textfile_path after each run
enabled = false

[ui]
# Enable colored output
color_enabled = true
# Date format for valuation dates
date_format = "2006-01-02"
# Decimal places in tables
precision = 4
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
