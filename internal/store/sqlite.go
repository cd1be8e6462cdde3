package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
	"optpricer/internal/models"
)

const dateLayout = "2006-01-02"

var _ DataStore = (*SQLiteStore)(nil)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db          *sql.DB
	defaultRate float64
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// SetDefaultRate sets the rate used by GetSnapshot when no rate is stored
// on or before the requested date.
func (s *SQLiteStore) SetDefaultRate(rate float64) {
	s.defaultRate = rate
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Spot and volatility observations per ticker and date
	CREATE TABLE IF NOT EXISTS market_data (
		ticker TEXT NOT NULL,
		date TEXT NOT NULL,
		spot REAL NOT NULL,
		vol REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (ticker, date)
	);

	-- Risk-free rate per date
	CREATE TABLE IF NOT EXISTS rates (
		date TEXT PRIMARY KEY,
		rate REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trades in insertion order
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		ticker TEXT NOT NULL,
		size REAL NOT NULL,
		strike REAL,
		option_type TEXT,
		expiry TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Import log
	CREATE TABLE IF NOT EXISTS imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data_type TEXT NOT NULL,
		source TEXT NOT NULL,
		records INTEGER NOT NULL,
		imported_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_market_data_date ON market_data(date);
	CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker);
	CREATE INDEX IF NOT EXISTS idx_imports_type ON imports(data_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Market Data Methods
// ============================================================================

// SaveMarketData upserts spot and volatility observations. The write is
// retried while another connection holds the database lock.
func (s *SQLiteStore) SaveMarketData(ctx context.Context, rows []MarketDataRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retryBusy(ctx, defaultRetry, func() error { return s.saveMarketData(ctx, rows) })
}

func (s *SQLiteStore) saveMarketData(ctx context.Context, rows []MarketDataRow) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO market_data (ticker, date, spot, vol)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		ticker := strings.ToUpper(strings.TrimSpace(r.Ticker))
		if _, err := stmt.ExecContext(ctx, ticker, formatDate(r.Date), r.Spot, r.Vol); err != nil {
			return fmt.Errorf("failed to insert market data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SaveRate upserts the risk-free rate of a date.
func (s *SQLiteStore) SaveRate(ctx context.Context, date time.Time, rate float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rates (date, rate) VALUES (?, ?)
	`, formatDate(date), rate)
	if err != nil {
		return fmt.Errorf("failed to save rate: %w", err)
	}
	return nil
}

// GetRate returns the most recent rate on or before date.
func (s *SQLiteStore) GetRate(ctx context.Context, date time.Time) (float64, error) {
	var rate float64
	err := s.db.QueryRowContext(ctx, `
		SELECT rate FROM rates WHERE date <= ? ORDER BY date DESC LIMIT 1
	`, formatDate(date)).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, apperrors.NewDataError("rate", formatDate(date), "no rate on or before date", apperrors.ErrDataNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rate: %w", err)
	}
	return rate, nil
}

// GetSnapshot returns every observation of a date together with the
// applicable rate.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, date time.Time) (*market.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, spot, vol FROM market_data WHERE date = ? ORDER BY ticker
	`, formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query market data: %w", err)
	}
	defer rows.Close()

	snap := market.NewSnapshot(date)
	for rows.Next() {
		var ticker string
		var spot, vol float64
		if err := rows.Scan(&ticker, &spot, &vol); err != nil {
			return nil, fmt.Errorf("failed to scan market data: %w", err)
		}
		snap.Spots[ticker] = spot
		snap.Vols[ticker] = vol
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating market data: %w", err)
	}
	if len(snap.Spots) == 0 {
		return nil, apperrors.NewDataError("market", formatDate(date), "no observations", apperrors.ErrDataNotFound)
	}

	rate, err := s.GetRate(ctx, date)
	switch {
	case err == nil:
		snap.Rate = rate
	case apperrors.Is(err, apperrors.ErrDataNotFound):
		snap.Rate = s.defaultRate
	default:
		return nil, err
	}
	return snap, nil
}

// ListDates returns every date with market data, oldest first.
func (s *SQLiteStore) ListDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM market_data ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ============================================================================
// Trades Methods
// ============================================================================

// SaveTrades appends trades in order.
func (s *SQLiteStore) SaveTrades(ctx context.Context, trades []TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	return retryBusy(ctx, defaultRetry, func() error { return s.saveTrades(ctx, trades) })
}

func (s *SQLiteStore) saveTrades(ctx context.Context, trades []TradeRecord) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (kind, ticker, size, strike, option_type, expiry)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		var strike, optionType, expiry interface{}
		if t.Kind == TradeOption {
			strike = t.Strike
			optionType = string(t.OptionType)
			expiry = formatDate(t.Expiry)
		}
		ticker := strings.ToUpper(strings.TrimSpace(t.Ticker))
		if _, err := stmt.ExecContext(ctx, string(t.Kind), ticker, t.Size, strike, optionType, expiry); err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTrades retrieves trades in insertion order.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]TradeRecord, error) {
	query := "SELECT id, kind, ticker, size, strike, option_type, expiry FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, strings.ToUpper(filter.Ticker))
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}

	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var kind string
		var strike sql.NullFloat64
		var optionType, expiry sql.NullString

		if err := rows.Scan(&t.ID, &kind, &t.Ticker, &t.Size, &strike, &optionType, &expiry); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Kind = TradeKind(kind)
		t.Strike = strike.Float64
		t.OptionType = models.OptionType(optionType.String)
		if expiry.Valid {
			d, err := time.Parse(dateLayout, expiry.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse expiry %q: %w", expiry.String, err)
			}
			t.Expiry = d
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// LoadPortfolio builds the portfolio held on the valuation date. Option
// expiries become year fractions from that date; options that expired
// before it are left out and counted in the second return value. An option
// trade's size becomes the position size; an equity trade's size is its
// quantity.
func (s *SQLiteStore) LoadPortfolio(ctx context.Context, valuation time.Time) (*models.Portfolio, int, error) {
	trades, err := s.GetTrades(ctx, TradeFilter{})
	if err != nil {
		return nil, 0, err
	}

	p := models.NewPortfolio()
	expired := 0
	for _, t := range trades {
		var inst models.Instrument
		size := 1.0
		switch t.Kind {
		case TradeEquity:
			inst = models.NewEquity(t.Ticker, t.Size)
		case TradeOption:
			size = t.Size
			tte := market.YearFraction(valuation, t.Expiry)
			if tte < 0 {
				expired++
				continue
			}
			inst = models.NewEuropeanOption(t.Ticker, t.OptionType, t.Strike, tte)
		default:
			return nil, 0, apperrors.NewDataError("trades", fmt.Sprint(t.ID), "unknown trade kind "+string(t.Kind), apperrors.ErrInputValidation)
		}
		if _, err := p.AddSized(inst, size); err != nil {
			return nil, 0, apperrors.Wrapf(err, "trade %d", t.ID)
		}
	}
	return p, expired, nil
}

// ============================================================================
// Import Methods
// ============================================================================

// RecordImport appends an entry to the import log.
func (s *SQLiteStore) RecordImport(ctx context.Context, rec ImportRecord) error {
	at := rec.ImportedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (data_type, source, records, imported_at) VALUES (?, ?, ?, ?)
	`, string(rec.DataType), rec.Source, rec.Records, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}
	return nil
}

// LastImport returns the most recent import of a data type.
func (s *SQLiteStore) LastImport(ctx context.Context, dataType DataType) (*ImportRecord, error) {
	var rec ImportRecord
	var kind, at string
	err := s.db.QueryRowContext(ctx, `
		SELECT data_type, source, records, imported_at FROM imports
		WHERE data_type = ? ORDER BY id DESC LIMIT 1
	`, string(dataType)).Scan(&kind, &rec.Source, &rec.Records, &at)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewDataError("imports", string(dataType), "never imported", apperrors.ErrDataNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last import: %w", err)
	}
	rec.DataType = DataType(kind)
	rec.ImportedAt, err = time.Parse(time.RFC3339, at)
	if err != nil {
		return nil, fmt.Errorf("failed to parse import time %q: %w", at, err)
	}
	return &rec, nil
}

func formatDate(t time.Time) string {
	return market.TruncateDate(t).Format(dateLayout)
}
