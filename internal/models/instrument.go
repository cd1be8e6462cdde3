// Package models provides the instrument model priced by the engine.
package models

import (
	"fmt"
	"strings"

	apperrors "optpricer/internal/errors"
)

// InstrumentKind identifies an Instrument variant.
type InstrumentKind string

const (
	KindEquity         InstrumentKind = "equity"
	KindEuropeanOption InstrumentKind = "european_option"
)

// Instrument is a priceable position. The set of variants is closed to this
// package; evaluators dispatch on the concrete type.
type Instrument interface {
	Kind() InstrumentKind
	// Underlying returns the ticker whose risk factors price the instrument.
	Underlying() string
	Validate() error
	isInstrument()
}

// Equity is a holding of an underlying.
type Equity struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
}

// NewEquity creates an equity holding.
func NewEquity(ticker string, quantity float64) Equity {
	return Equity{Ticker: strings.ToUpper(ticker), Quantity: quantity}
}

func (e Equity) Kind() InstrumentKind { return KindEquity }
func (e Equity) Underlying() string   { return e.Ticker }
func (Equity) isInstrument()          {}

// Validate checks the holding is well formed.
func (e Equity) Validate() error {
	if e.Ticker == "" {
		return apperrors.NewValidationError("ticker", e.Ticker, "must not be empty")
	}
	return nil
}

// EuropeanOption is a European call or put on an underlying. Expiry is the
// time to maturity in years, measured from the valuation date.
type EuropeanOption struct {
	UnderlyingTicker string     `json:"underlying"`
	Type             OptionType `json:"option_type"`
	Strike           float64    `json:"strike"`
	Expiry           float64    `json:"expiry"`
}

// NewEuropeanOption creates a European option.
func NewEuropeanOption(underlying string, typ OptionType, strike, expiry float64) EuropeanOption {
	return EuropeanOption{
		UnderlyingTicker: strings.ToUpper(underlying),
		Type:             typ,
		Strike:           strike,
		Expiry:           expiry,
	}
}

func (o EuropeanOption) Kind() InstrumentKind { return KindEuropeanOption }
func (o EuropeanOption) Underlying() string   { return o.UnderlyingTicker }
func (EuropeanOption) isInstrument()          {}

// Validate checks strike and expiry. A zero expiry is valid and prices at
// intrinsic value.
func (o EuropeanOption) Validate() error {
	if o.UnderlyingTicker == "" {
		return apperrors.NewValidationError("underlying", o.UnderlyingTicker, "must not be empty")
	}
	if o.Type != Call && o.Type != Put {
		return apperrors.NewValidationError("option_type", o.Type, "must be call or put")
	}
	if !(o.Strike > 0) {
		return apperrors.NewPricingError(apperrors.ErrInvalidLevel, "strike", o.UnderlyingTicker,
			fmt.Sprintf("strike %v must be positive", o.Strike))
	}
	if o.Expiry < 0 {
		return apperrors.NewPricingError(apperrors.ErrInvalidExpiry, "expiry", o.UnderlyingTicker,
			fmt.Sprintf("time to expiry %v must not be negative", o.Expiry))
	}
	return nil
}
