package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"optpricer/internal/logging"
	"optpricer/internal/store"
)

// addDataCommands adds market data and trade management commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage market data and trades",
		Long:  "Import market observations, rates and trades from CSV and inspect what is stored.",
	}

	cmd.AddCommand(newImportMarketCmd(app))
	cmd.AddCommand(newImportRatesCmd(app))
	cmd.AddCommand(newImportTradesCmd(app))
	cmd.AddCommand(newDatesCmd(app))
	cmd.AddCommand(newTradesCmd(app))

	rootCmd.AddCommand(cmd)
}

func newImportMarketCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "import-market <file.csv>",
		Short:   "Import spot and volatility observations",
		Example: `  optpricer data import-market marketdata.csv   # columns: ticker,date,spot,vol`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			rows, err := readCSV(args[0], store.ReadMarketData)
			if err != nil {
				logging.LogImport(app.Logger, string(store.DataTypeMarket), args[0], 0, err)
				return err
			}
			s, err := app.Store()
			if err != nil {
				return err
			}
			if err := s.SaveMarketData(ctx, rows); err != nil {
				return err
			}
			return finishImport(ctx, app, output, s, store.DataTypeMarket, args[0], len(rows))
		},
	}
}

func newImportRatesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "import-rates <file.csv>",
		Short:   "Import risk-free rates",
		Example: `  optpricer data import-rates rates.csv   # columns: date,rate`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			rows, err := readCSV(args[0], store.ReadRates)
			if err != nil {
				logging.LogImport(app.Logger, string(store.DataTypeRates), args[0], 0, err)
				return err
			}
			s, err := app.Store()
			if err != nil {
				return err
			}
			for _, r := range rows {
				if err := s.SaveRate(ctx, r.Date, r.Rate); err != nil {
					return err
				}
			}
			return finishImport(ctx, app, output, s, store.DataTypeRates, args[0], len(rows))
		},
	}
}

func newImportTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-trades",
		Short: "Import equity and option trades",
		Long: `Import trades from CSV files. Equity files have columns ticker,size;
option files have columns ticker,size,strike,option_type,expiry.
Trades are appended in file order, equities after options.`,
		Example: `  optpricer data import-trades --option option_trades.csv --equity equity_trades.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			optionFile, _ := cmd.Flags().GetString("option")
			equityFile, _ := cmd.Flags().GetString("equity")
			if optionFile == "" && equityFile == "" {
				return fmt.Errorf("at least one of --option or --equity is required")
			}

			var trades []store.TradeRecord
			if optionFile != "" {
				rows, err := readCSV(optionFile, store.ReadOptionTrades)
				if err != nil {
					logging.LogImport(app.Logger, string(store.DataTypeTrades), optionFile, 0, err)
					return err
				}
				trades = append(trades, rows...)
			}
			if equityFile != "" {
				rows, err := readCSV(equityFile, store.ReadEquityTrades)
				if err != nil {
					logging.LogImport(app.Logger, string(store.DataTypeTrades), equityFile, 0, err)
					return err
				}
				trades = append(trades, rows...)
			}

			s, err := app.Store()
			if err != nil {
				return err
			}
			if err := s.SaveTrades(ctx, trades); err != nil {
				return err
			}
			source := optionFile
			if equityFile != "" {
				if source != "" {
					source += ","
				}
				source += equityFile
			}
			return finishImport(ctx, app, output, s, store.DataTypeTrades, source, len(trades))
		},
	}
	cmd.Flags().String("option", "", "option trades CSV")
	cmd.Flags().String("equity", "", "equity trades CSV")
	return cmd
}

func newDatesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List valuation dates with market data",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			dates, err := s.ListDates(context.Background())
			if err != nil {
				return err
			}

			layout := app.Config.UI.DateFormat
			if output.IsJSON() {
				out := make([]string, len(dates))
				for i, d := range dates {
					out[i] = d.Format("2006-01-02")
				}
				return output.JSON(map[string]interface{}{"dates": out})
			}
			if len(dates) == 0 {
				output.Warning("No market data stored. Run 'optpricer data import-market' first.")
				return nil
			}
			for _, d := range dates {
				output.Println(FormatDate(d, layout))
			}
			return nil
		},
	}
}

func newTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List stored trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker, _ := cmd.Flags().GetString("ticker")
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := app.Store()
			if err != nil {
				return err
			}
			trades, err := s.GetTrades(context.Background(), store.TradeFilter{Ticker: ticker, Limit: limit})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}

			precision := app.Config.UI.Precision
			table := NewTable(output, "ID", "KIND", "TICKER", "SIZE", "STRIKE", "TYPE", "EXPIRY")
			for _, t := range trades {
				strike, expiry := "-", "-"
				if t.Kind == store.TradeOption {
					strike = FormatNumber(t.Strike, 2)
					expiry = FormatDate(t.Expiry, app.Config.UI.DateFormat)
				}
				table.AddRow(
					fmt.Sprint(t.ID),
					string(t.Kind),
					t.Ticker,
					FormatNumber(t.Size, precision),
					strike,
					string(t.OptionType),
					expiry,
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("ticker", "", "filter by ticker")
	cmd.Flags().Int("limit", 0, "maximum trades to list")
	return cmd
}

func readCSV[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

func finishImport(ctx context.Context, app *App, output *Output, s store.DataStore, dataType store.DataType, source string, n int) error {
	rec := store.ImportRecord{DataType: dataType, Source: source, Records: n, ImportedAt: time.Now()}
	if err := s.RecordImport(ctx, rec); err != nil {
		return err
	}
	logging.LogImport(app.Logger, string(dataType), source, n, nil)

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"data_type": dataType,
			"source":    source,
			"records":   n,
		})
	}
	output.Success("Imported %d %s records from %s", n, dataType, source)
	return nil
}
