package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
	"optpricer/internal/models"
	"optpricer/internal/pricing"
	"optpricer/internal/results"
	"optpricer/internal/scenariofile"
	"optpricer/internal/shift"
)

// addPricingCommands adds valuation and scenario commands.
func addPricingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newLadderCmd(app))
	rootCmd.AddCommand(newScenarioCmd(app))
}

// inputs is everything a valuation needs.
type inputs struct {
	date      time.Time
	portfolio *models.Portfolio
	env       market.Environment
	measures  []pricing.Measure
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "valuation date YYYY-MM-DD (default: latest stored)")
	cmd.Flags().Float64("rate", 0, "override the risk-free rate")
	cmd.Flags().Float64("offset", 0, "valuation offset in years added to the valuation date")
	cmd.Flags().StringSlice("measures", nil, "measures to report (default from config)")
}

func (app *App) loadInputs(ctx context.Context, cmd *cobra.Command) (*inputs, error) {
	s, err := app.Store()
	if err != nil {
		return nil, err
	}

	var date time.Time
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		if date, err = time.Parse("2006-01-02", raw); err != nil {
			return nil, fmt.Errorf("invalid --date: %w", err)
		}
	} else {
		dates, err := s.ListDates(ctx)
		if err != nil {
			return nil, err
		}
		if len(dates) == 0 {
			return nil, apperrors.NewDataError("market", "latest", "no market data stored", apperrors.ErrDataNotFound)
		}
		date = dates[len(dates)-1]
	}

	snap, err := s.GetSnapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	env := snap.Environment()
	if cmd.Flags().Changed("rate") {
		rate, _ := cmd.Flags().GetFloat64("rate")
		env = env.With(market.RateFactor, rate)
	}
	if cmd.Flags().Changed("offset") {
		offset, _ := cmd.Flags().GetFloat64("offset")
		env = env.With(market.ValuationOffsetFactor, offset)
	}

	p, expired, err := s.LoadPortfolio(ctx, date)
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		app.Logger.Warn().Int("expired", expired).Time("date", date).Msg("Skipped options expired before the valuation date")
	}

	measures := app.Config.DefaultMeasures()
	if names, _ := cmd.Flags().GetStringSlice("measures"); len(names) > 0 {
		if measures, err = pricing.ParseMeasures(names); err != nil {
			return nil, err
		}
	}

	return &inputs{date: date, portfolio: p, env: env, measures: measures}, nil
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Value the stored portfolio on a valuation date",
		Example: `  optpricer price
  optpricer price --date 2021-12-01 --measures price,delta,vol`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			in, err := app.loadInputs(ctx, cmd)
			if err != nil {
				return err
			}
			rs, err := app.Runner.Price(ctx, in.portfolio, in.env, in.measures)
			app.exportMetrics()
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"run_id": rs.RunID,
					"date":   in.date.Format("2006-01-02"),
					"rows":   rs.Rows(),
				})
			}
			output.Bold("Valuation %s", FormatDate(in.date, app.Config.UI.DateFormat))
			renderInstruments(output, rs, 0, app.Config.UI.Precision)
			return nil
		},
	}
	addInputFlags(cmd)
	return cmd
}

func newLadderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ladder",
		Short: "Value the portfolio along one shifted risk factor",
		Long: `Value the portfolio along a single scenario axis. The factor selector is
a risk factor class optionally followed by an underlying: spot:AAPL,
spot:* (every spot), vol, rate or valuation_offset.`,
		Example: `  optpricer ladder --factor spot:* --kind rel --shifts -0.05,0,0.05
  optpricer ladder --factor vol:AAPL --kind abs --shifts -0.02,0,0.02 --detail`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			factor, _ := cmd.Flags().GetString("factor")
			kindName, _ := cmd.Flags().GetString("kind")
			raw, _ := cmd.Flags().GetString("shifts")
			detail, _ := cmd.Flags().GetBool("detail")

			sel, err := shift.ParseSelector(factor)
			if err != nil {
				return err
			}
			kind, err := shift.ParseKind(kindName)
			if err != nil {
				return err
			}
			mags, err := ParseFloats(raw)
			if err != nil {
				return fmt.Errorf("invalid --shifts: %w", err)
			}

			in, err := app.loadInputs(ctx, cmd)
			if err != nil {
				return err
			}
			axis := shift.Ladder(sel.String(), sel, kind, mags...)
			rs, err := app.Runner.Run(ctx, in.portfolio, in.env, []shift.Axis{axis}, in.measures)
			app.exportMetrics()
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(rs)
			}
			renderGrid(output, rs, app.Config.UI.Precision)
			if detail {
				for p := 0; p < rs.Points(); p++ {
					output.Println()
					output.Bold("%s", strings.Join(pointLabels(rs, p), " "))
					renderInstruments(output, rs, p, app.Config.UI.Precision)
				}
			}
			return nil
		},
	}
	addInputFlags(cmd)
	cmd.Flags().String("factor", "spot:*", "risk factor selector")
	cmd.Flags().String("kind", "rel", "shift kind: rel or abs")
	cmd.Flags().String("shifts", "-0.05,0,0.05", "comma-separated shift magnitudes")
	cmd.Flags().Bool("detail", false, "show every instrument at every layer")
	return cmd
}

func newScenarioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run scenario grids",
	}

	run := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Value the portfolio over the grid declared in a scenario file",
		Example: `  optpricer scenario run spot_vol.yaml
  optpricer scenario run spot_vol.yaml --exposure --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			f, err := scenariofile.Load(args[0])
			if err != nil {
				return err
			}
			axes, err := f.BuildAxes()
			if err != nil {
				return err
			}

			in, err := app.loadInputs(ctx, cmd)
			if err != nil {
				return err
			}
			if len(f.Measures) > 0 && !cmd.Flags().Changed("measures") {
				if in.measures, err = f.ParsedMeasures(); err != nil {
					return err
				}
			}

			runner := *app.Runner
			if f.Workers > 0 && !cmd.Flags().Changed("workers") {
				runner.Workers = f.Workers
			}
			rs, err := runner.Run(ctx, in.portfolio, in.env, axes, in.measures)
			app.exportMetrics()
			if err != nil {
				return err
			}

			withExposure, _ := cmd.Flags().GetBool("exposure")
			if output.IsJSON() {
				out := map[string]interface{}{
					"name":   f.Name,
					"date":   in.date.Format("2006-01-02"),
					"result": rs,
				}
				if withExposure {
					exp, labels, err := rs.ExposureByUnderlying()
					if err != nil {
						return err
					}
					out["exposure_by_underlying"] = map[string]interface{}{"underlyings": labels, "values": exp}
				}
				return output.JSON(out)
			}

			title := f.Name
			if title == "" {
				title = args[0]
			}
			output.Bold("%s  [%s]  %s", title, FormatShape(rs.Shape()), FormatDate(in.date, app.Config.UI.DateFormat))
			renderGrid(output, rs, app.Config.UI.Precision)
			if withExposure {
				output.Println()
				if err := renderExposure(output, rs, app.Config.UI.Precision); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addInputFlags(run)
	run.Flags().Bool("exposure", false, "also report exposure by underlying")

	cmd.AddCommand(run)
	return cmd
}

func pointLabels(rs *results.ResultSet, point int) []string {
	coord := results.Unravel(point, rs.Shape())
	out := make([]string, len(coord))
	for d, c := range coord {
		out[d] = rs.Axes[d].LayerNames()[c]
	}
	return out
}

// renderGrid prints one row per grid point with portfolio totals of the
// additive measures.
func renderGrid(output *Output, rs *results.ResultSet, precision int) {
	headers := make([]string, 0, len(rs.Axes)+len(rs.Order))
	for _, ax := range rs.Axes {
		headers = append(headers, strings.ToUpper(ax.Name))
	}
	var totals []*results.NDArray
	for _, m := range rs.Order {
		arr, err := rs.Portfolio(m)
		if err != nil {
			continue
		}
		headers = append(headers, strings.ToUpper(string(m)))
		totals = append(totals, arr)
	}

	table := NewTable(output, headers...)
	for p := 0; p < rs.Points(); p++ {
		row := pointLabels(rs, p)
		for _, arr := range totals {
			v := arr.Data[p]
			row = append(row, output.Signed(v, FormatNumber(v, precision)))
		}
		table.AddRow(row...)
	}
	table.Render()
}

// renderInstruments prints every instrument at one grid point, followed by
// the portfolio total.
func renderInstruments(output *Output, rs *results.ResultSet, point, precision int) {
	headers := []string{"POSITION", "UNDERLYING", "SIZE"}
	for _, m := range rs.Order {
		headers = append(headers, strings.ToUpper(string(m)))
	}
	table := NewTable(output, headers...)

	n := len(rs.Instruments)
	for i, inst := range rs.Instruments {
		row := []string{TruncateString(inst.ID, 32), inst.Underlying, decimal.NewFromFloat(inst.Size).String()}
		for _, m := range rs.Order {
			row = append(row, FormatNumber(rs.Measures[m].Data[point*n+i], precision))
		}
		table.AddRow(row...)
	}

	total := []string{output.BoldTotal(), "", ""}
	for _, m := range rs.Order {
		arr, err := rs.Portfolio(m)
		if err != nil {
			total = append(total, "")
			continue
		}
		v := arr.Data[point]
		total = append(total, output.Signed(v, FormatNumber(v, precision)))
	}
	table.AddRow(total...)
	table.Render()
}

func renderExposure(output *Output, rs *results.ResultSet, precision int) error {
	exp, labels, err := rs.ExposureByUnderlying()
	if err != nil {
		return err
	}
	output.Bold("Exposure by underlying")

	headers := make([]string, 0, len(rs.Axes)+len(labels))
	for _, ax := range rs.Axes {
		headers = append(headers, strings.ToUpper(ax.Name))
	}
	headers = append(headers, labels...)
	table := NewTable(output, headers...)

	u := len(labels)
	for p := 0; p < rs.Points(); p++ {
		row := pointLabels(rs, p)
		for j := 0; j < u; j++ {
			v := exp.Data[p*u+j]
			row = append(row, output.Signed(v, FormatNumber(v, precision)))
		}
		table.AddRow(row...)
	}
	table.Render()
	return nil
}
