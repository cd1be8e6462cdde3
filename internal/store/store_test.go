package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
	"optpricer/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "optpricer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

const marketCSV = `ticker,date,spot,vol
AAPL,2021-12-01,100,0.2
MSFT,2021-12-01,250,0.25
AAPL,2021-12-02,101.5,0.21
`

const optionCSV = `ticker,size,strike,option_type,expiry
AAPL,1,100,call,2022-12-01
AAPL,2,95,put,2021-11-15
msft,1,250,C,2022-06-01
`

const equityCSV = `ticker,size
AAPL,10
AAPL,5
`

func TestSnapshotFromCSV(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rows, err := ReadMarketData(strings.NewReader(marketCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.NoError(t, s.SaveMarketData(ctx, rows))

	dates, err := s.ListDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2021-12-01"), day("2021-12-02")}, dates)

	s.SetDefaultRate(0.03)
	snap, err := s.GetSnapshot(ctx, day("2021-12-01"))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 100, "MSFT": 250}, snap.Spots)
	assert.Equal(t, 0.25, snap.Vols["MSFT"])
	assert.Equal(t, 0.03, snap.Rate)

	require.NoError(t, s.SaveRate(ctx, day("2021-11-30"), 0.01))
	snap, err = s.GetSnapshot(ctx, day("2021-12-02"))
	require.NoError(t, err)
	assert.Equal(t, 0.01, snap.Rate)
	assert.Equal(t, 101.5, snap.Spots["AAPL"])

	_, err = s.GetSnapshot(ctx, day("2020-01-01"))
	assert.ErrorIs(t, err, apperrors.ErrDataNotFound)
}

func TestLoadPortfolioFromCSV(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	options, err := ReadOptionTrades(strings.NewReader(optionCSV))
	require.NoError(t, err)
	equities, err := ReadEquityTrades(strings.NewReader(equityCSV))
	require.NoError(t, err)
	require.NoError(t, s.SaveTrades(ctx, options))
	require.NoError(t, s.SaveTrades(ctx, equities))

	trades, err := s.GetTrades(ctx, TradeFilter{Kind: TradeOption})
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "MSFT", trades[2].Ticker)
	assert.Equal(t, models.Call, trades[2].OptionType)

	p, expired, err := s.LoadPortfolio(ctx, day("2021-12-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, []string{"AAPL_C100_1Y_1", "MSFT_C250_0.4986301369863014Y_2", "AAPL"}, p.IDs())

	pos, ok := p.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 15.0, pos.Instrument.(models.Equity).Quantity)
}

func TestLoadPortfolioKeepsOptionSize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	options, err := ReadOptionTrades(strings.NewReader("ticker,size,strike,option_type,expiry\nAAPL,10,100,call,2022-12-01\n"))
	require.NoError(t, err)
	require.NoError(t, s.SaveTrades(ctx, options))

	p, _, err := s.LoadPortfolio(ctx, day("2021-12-01"))
	require.NoError(t, err)
	pos, ok := p.Get("AAPL_C100_1Y_1")
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.Size)
	assert.Equal(t, 100.0, pos.Instrument.(models.EuropeanOption).Strike)
}

func TestReadRejectsBadRows(t *testing.T) {
	_, err := ReadOptionTrades(strings.NewReader("ticker,size,strike,option_type,expiry\nAAPL,1,100,straddle,2022-01-01\n"))
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = ReadOptionTrades(strings.NewReader("ticker,size,strike,option_type,expiry\nAAPL,1,100,call,someday\n"))
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = ReadOptionTrades(strings.NewReader("ticker,size,strike,option_type,expiry\nAAPL,0,100,call,2022-01-01\n"))
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = ReadMarketData(strings.NewReader("ticker,date,spot,vol\n,2021-12-01,100,0.2\n"))
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	rates, err := ReadRates(strings.NewReader("date,rate\n2021-12-01,0.015\n"))
	require.NoError(t, err)
	assert.Equal(t, []RateRow{{Date: day("2021-12-01"), Rate: 0.015}}, rates)
}

func TestImportLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.LastImport(ctx, DataTypeMarket)
	assert.ErrorIs(t, err, apperrors.ErrDataNotFound)

	at := time.Date(2021, 12, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.RecordImport(ctx, ImportRecord{DataType: DataTypeMarket, Source: "a.csv", Records: 3, ImportedAt: at}))
	require.NoError(t, s.RecordImport(ctx, ImportRecord{DataType: DataTypeMarket, Source: "b.csv", Records: 5, ImportedAt: at.Add(time.Hour)}))

	rec, err := s.LastImport(ctx, DataTypeMarket)
	require.NoError(t, err)
	assert.Equal(t, "b.csv", rec.Source)
	assert.Equal(t, 5, rec.Records)
	assert.True(t, rec.ImportedAt.Equal(at.Add(time.Hour)))
}

// Property: saving observations and reading the snapshot back yields the
// same spot and volatility for every ticker.
func TestProperty_SnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	tickers := []string{"AAPL", "MSFT", "GOOG", "AMZN", "NVDA"}

	properties.Property("snapshot round-trip preserves observations", prop.ForAll(
		func(offset int, count int, spot float64, vol float64) bool {
			ctx := context.Background()
			date := day("2000-01-01").AddDate(0, 0, offset)

			var rows []MarketDataRow
			for i := 0; i < count; i++ {
				rows = append(rows, MarketDataRow{
					Ticker: tickers[i],
					Date:   date,
					Spot:   spot * float64(i+1),
					Vol:    vol,
				})
			}
			if err := s.SaveMarketData(ctx, rows); err != nil {
				t.Logf("save failed: %v", err)
				return false
			}
			snap, err := s.GetSnapshot(ctx, date)
			if err != nil {
				t.Logf("get failed: %v", err)
				return false
			}
			for _, r := range rows {
				if snap.Spots[r.Ticker] != r.Spot || snap.Vols[r.Ticker] != r.Vol {
					t.Logf("mismatch for %s on %s", r.Ticker, fmt.Sprint(date))
					return false
				}
			}
			return snap.Date.Equal(market.TruncateDate(date))
		},
		gen.IntRange(0, 10000),
		gen.IntRange(1, len(tickers)),
		gen.Float64Range(1, 5000),
		gen.Float64Range(0.01, 2),
	))

	properties.TestingRun(t)
}
