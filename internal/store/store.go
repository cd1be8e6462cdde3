// Package store provides persistence for market data and trades.
package store

import (
	"context"
	"time"

	"optpricer/internal/market"
	"optpricer/internal/models"
)

// DataStore defines the interface for pricing input persistence.
type DataStore interface {
	// Market data
	SaveMarketData(ctx context.Context, rows []MarketDataRow) error
	SaveRate(ctx context.Context, date time.Time, rate float64) error
	GetRate(ctx context.Context, date time.Time) (float64, error)
	GetSnapshot(ctx context.Context, date time.Time) (*market.Snapshot, error)
	ListDates(ctx context.Context) ([]time.Time, error)

	// Trades
	SaveTrades(ctx context.Context, trades []TradeRecord) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]TradeRecord, error)
	LoadPortfolio(ctx context.Context, valuation time.Time) (*models.Portfolio, int, error)

	// Imports
	RecordImport(ctx context.Context, rec ImportRecord) error
	LastImport(ctx context.Context, dataType DataType) (*ImportRecord, error)

	// Lifecycle
	Close() error
}

// DataType names an imported data set.
type DataType string

const (
	DataTypeMarket DataType = "market"
	DataTypeTrades DataType = "trades"
	DataTypeRates  DataType = "rates"
)

// TradeKind distinguishes stored trades.
type TradeKind string

const (
	TradeEquity TradeKind = "equity"
	TradeOption TradeKind = "option"
)

// TradeRecord is one stored trade. Strike, OptionType and Expiry are only
// set for options.
type TradeRecord struct {
	ID         int64
	Kind       TradeKind
	Ticker     string
	Size       float64
	Strike     float64
	OptionType models.OptionType
	Expiry     time.Time
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Ticker string
	Kind   TradeKind
	Limit  int
}

// ImportRecord describes one completed import.
type ImportRecord struct {
	DataType   DataType
	Source     string
	Records    int
	ImportedAt time.Time
}
