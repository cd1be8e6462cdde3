package store

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
	"optpricer/internal/models"
)

var dateLayouts = []string{dateLayout, "2006-01-02 15:04:05", time.RFC3339}

// ParseDate parses a calendar date as written in input files.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return market.TruncateDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// MarketDataRow is one spot and volatility observation.
type MarketDataRow struct {
	Ticker string
	Date   time.Time
	Spot   float64
	Vol    float64
}

// RateRow is one rate observation.
type RateRow struct {
	Date time.Time
	Rate float64
}

type marketCSVRow struct {
	Ticker string  `csv:"ticker"`
	Date   string  `csv:"date"`
	Spot   float64 `csv:"spot"`
	Vol    float64 `csv:"vol"`
}

type rateCSVRow struct {
	Date string  `csv:"date"`
	Rate float64 `csv:"rate"`
}

type equityTradeCSVRow struct {
	Ticker string  `csv:"ticker"`
	Size   float64 `csv:"size"`
}

type optionTradeCSVRow struct {
	Ticker     string  `csv:"ticker"`
	Size       float64 `csv:"size"`
	Strike     float64 `csv:"strike"`
	OptionType string  `csv:"option_type"`
	Expiry     string  `csv:"expiry"`
}

// ReadMarketData parses ticker,date,spot,vol rows.
func ReadMarketData(r io.Reader) ([]MarketDataRow, error) {
	var rows []marketCSVRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, apperrors.NewDataError("market", "csv", "parse failed", err)
	}
	out := make([]MarketDataRow, 0, len(rows))
	for i, row := range rows {
		line := fmt.Sprintf("line %d", i+2)
		if strings.TrimSpace(row.Ticker) == "" {
			return nil, apperrors.NewDataError("market", line, "empty ticker", apperrors.ErrInputValidation)
		}
		date, err := ParseDate(row.Date)
		if err != nil {
			return nil, apperrors.NewDataError("market", line, err.Error(), apperrors.ErrInputValidation)
		}
		out = append(out, MarketDataRow{Ticker: row.Ticker, Date: date, Spot: row.Spot, Vol: row.Vol})
	}
	return out, nil
}

// ReadRates parses date,rate rows.
func ReadRates(r io.Reader) ([]RateRow, error) {
	var rows []rateCSVRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, apperrors.NewDataError("rates", "csv", "parse failed", err)
	}
	out := make([]RateRow, 0, len(rows))
	for i, row := range rows {
		date, err := ParseDate(row.Date)
		if err != nil {
			return nil, apperrors.NewDataError("rates", fmt.Sprintf("line %d", i+2), err.Error(), apperrors.ErrInputValidation)
		}
		out = append(out, RateRow{Date: date, Rate: row.Rate})
	}
	return out, nil
}

// ReadEquityTrades parses ticker,size rows into trade records.
func ReadEquityTrades(r io.Reader) ([]TradeRecord, error) {
	var rows []equityTradeCSVRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, apperrors.NewDataError("trades", "csv", "parse failed", err)
	}
	out := make([]TradeRecord, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.Ticker) == "" {
			return nil, apperrors.NewDataError("trades", fmt.Sprintf("line %d", i+2), "empty ticker", apperrors.ErrInputValidation)
		}
		out = append(out, TradeRecord{Kind: TradeEquity, Ticker: row.Ticker, Size: row.Size})
	}
	return out, nil
}

// ReadOptionTrades parses ticker,size,strike,option_type,expiry rows into
// trade records.
func ReadOptionTrades(r io.Reader) ([]TradeRecord, error) {
	var rows []optionTradeCSVRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, apperrors.NewDataError("trades", "csv", "parse failed", err)
	}
	out := make([]TradeRecord, 0, len(rows))
	for i, row := range rows {
		line := fmt.Sprintf("line %d", i+2)
		if strings.TrimSpace(row.Ticker) == "" {
			return nil, apperrors.NewDataError("trades", line, "empty ticker", apperrors.ErrInputValidation)
		}
		typ, err := models.ParseOptionType(row.OptionType)
		if err != nil {
			return nil, apperrors.NewDataError("trades", line, err.Error(), apperrors.ErrInputValidation)
		}
		if row.Size == 0 {
			return nil, apperrors.NewDataError("trades", line, "size must not be zero", apperrors.ErrInputValidation)
		}
		if !(row.Strike > 0) {
			return nil, apperrors.NewDataError("trades", line, "strike must be positive", apperrors.ErrInputValidation)
		}
		expiry, err := ParseDate(row.Expiry)
		if err != nil {
			return nil, apperrors.NewDataError("trades", line, err.Error(), apperrors.ErrInputValidation)
		}
		out = append(out, TradeRecord{
			Kind:       TradeOption,
			Ticker:     row.Ticker,
			Size:       row.Size,
			Strike:     row.Strike,
			OptionType: typ,
			Expiry:     expiry,
		})
	}
	return out, nil
}
