// Package cli provides the command-line interface for the pricing engine.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"optpricer/internal/config"
	"optpricer/internal/logging"
	"optpricer/internal/metrics"
	"optpricer/internal/scenario"
	"optpricer/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-16"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Runner    *scenario.Runner
	Gatherer  prometheus.Gatherer

	store store.DataStore
}

// NewRootCmd creates the root command for the CLI. Configuration, logging
// and the runner are set up once flags are parsed.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "optpricer",
		Short: "Scenario pricing for equity and European option portfolios",
		Long: `optpricer values portfolios of equities and European options under a
market snapshot and over grids of shifted market scenarios.

Market data and trades are imported from CSV into a local SQLite store.
Scenario grids are declared on the command line or in YAML files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.teardown()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/optpricer)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int("workers", -1, "parallel workers (default from config)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addDataCommands(rootCmd, app)
	addPricingCommands(rootCmd, app)

	return rootCmd
}

func (app *App) setup(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	app.Config = cfg
	app.ConfigDir = dir

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers >= 0 {
		cfg.Engine.Workers = workers
	}
	if !cfg.UI.ColorEnabled {
		color.NoColor = true
	}

	app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())
	app.Runner = scenario.NewRunner(cfg.Engine.Workers, app.Logger)
	app.Runner.Metrics = metrics.Default()
	app.Gatherer = prometheus.DefaultGatherer

	app.Logger.Debug().
		Str("config_dir", dir).
		Int("workers", cfg.Engine.Workers).
		Msg("Configuration loaded")
	return nil
}

func (app *App) teardown() error {
	if app.store == nil {
		return nil
	}
	err := app.store.Close()
	app.store = nil
	return err
}

// Store opens the SQLite store on first use.
func (app *App) Store() (store.DataStore, error) {
	if app.store != nil {
		return app.store, nil
	}
	s, err := store.NewSQLiteStore(app.Config.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", app.Config.Store.Path, err)
	}
	s.SetDefaultRate(app.Config.Market.DefaultRate)
	app.store = s
	app.Logger.Debug().Str("path", app.Config.Store.Path).Msg("SQLite store opened")
	return s, nil
}

// exportMetrics writes the prometheus textfile when enabled.
func (app *App) exportMetrics() {
	if !app.Config.Metrics.Enabled {
		return
	}
	if err := metrics.WriteTextfile(app.Config.Metrics.TextfilePath, app.Gatherer); err != nil {
		app.Logger.Warn().Err(err).Str("path", app.Config.Metrics.TextfilePath).Msg("Failed to write metrics")
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("optpricer v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := filepath.Join(app.ConfigDir, "config.toml")
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Engine")
	output.Printf("  Workers:       %d\n", cfg.Engine.Workers)
	output.Printf("  Measures:      %v\n", cfg.DefaultMeasures())
	output.Println()

	output.Bold("Market")
	output.Printf("  Default rate:  %s\n", FormatNumber(cfg.Market.DefaultRate, 4))
	output.Println()

	output.Bold("Store")
	output.Printf("  Path:          %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:         %s\n", cfg.Logging.Level)
	output.Printf("  File:          %v\n", cfg.Logging.File)
	output.Println()

	output.Bold("Metrics")
	output.Printf("  Enabled:       %v\n", cfg.Metrics.Enabled)
	output.Printf("  Textfile:      %s\n", cfg.Metrics.TextfilePath)

	return nil
}
