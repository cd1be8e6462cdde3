// Package pricing values instruments under a market environment.
//
// Evaluation is a pure function of (instrument, environment): no state is
// shared between calls, so identical inputs give bit-identical results no
// matter which goroutine runs them.
package pricing

import (
	"fmt"
	"math"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
	"optpricer/internal/models"
)

// Result holds every measure of one instrument under one environment.
type Result struct {
	Price           float64 `json:"price"`
	Delta           float64 `json:"delta"`
	Gamma           float64 `json:"gamma"`
	Exposure        float64 `json:"exposure"`
	UnderlyingPrice float64 `json:"underlying_price"`
	Vol             float64 `json:"vol"`
	Rate            float64 `json:"rate"`
	TimeToExpiry    float64 `json:"time_to_expiry"`
}

// Value returns one measure of the result.
func (r Result) Value(m Measure) float64 {
	switch m {
	case MeasurePrice:
		return r.Price
	case MeasureDelta:
		return r.Delta
	case MeasureGamma:
		return r.Gamma
	case MeasureExposure:
		return r.Exposure
	case MeasureUnderlyingPrice:
		return r.UnderlyingPrice
	case MeasureVol:
		return r.Vol
	case MeasureRate:
		return r.Rate
	case MeasureTimeToExpiry:
		return r.TimeToExpiry
	default:
		return math.NaN()
	}
}

// ForSize returns the result of a position holding size units. Exposure
// scales with size; price and greeks stay per unit.
func (r Result) ForSize(size float64) Result {
	r.Exposure *= size
	return r
}

// EvaluateFunc values one instrument.
type EvaluateFunc func(inst models.Instrument, env market.Environment) (Result, error)

// Evaluate values an instrument under env.
func Evaluate(inst models.Instrument, env market.Environment) (Result, error) {
	switch v := inst.(type) {
	case models.Equity:
		return evaluateEquity(v, env)
	case models.EuropeanOption:
		return evaluateOption(v, env)
	case nil:
		return Result{}, apperrors.Errorf(apperrors.ErrUnsupportedInstrument, "nil instrument")
	default:
		return Result{}, apperrors.Errorf(apperrors.ErrUnsupportedInstrument, "%T", inst)
	}
}

// EvaluatePortfolio values every position in order under one environment,
// with exposure scaled by position size.
func EvaluatePortfolio(p *models.Portfolio, env market.Environment) ([]Result, error) {
	if p == nil {
		return nil, apperrors.NewValidationError("portfolio", nil, "must not be nil")
	}
	positions := p.Positions()
	out := make([]Result, len(positions))
	for i, pos := range positions {
		r, err := Evaluate(pos.Instrument, env)
		if err != nil {
			return nil, &apperrors.InstrumentError{Index: i, ID: pos.ID, Err: err}
		}
		out[i] = r.ForSize(pos.Size)
	}
	return out, nil
}

func evaluateEquity(e models.Equity, env market.Environment) (Result, error) {
	spot, err := spotOf(env, e.Ticker)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Price:           e.Quantity * spot,
		Delta:           e.Quantity,
		Gamma:           0,
		Exposure:        e.Quantity * spot,
		UnderlyingPrice: spot,
	}, nil
}

func evaluateOption(o models.EuropeanOption, env market.Environment) (Result, error) {
	if !(o.Strike > 0) {
		return Result{}, apperrors.NewPricingError(apperrors.ErrInvalidLevel, "strike", o.UnderlyingTicker,
			fmt.Sprintf("strike %v must be positive", o.Strike))
	}
	spot, err := spotOf(env, o.UnderlyingTicker)
	if err != nil {
		return Result{}, err
	}
	vol, err := lookup(env, market.VolOf(o.UnderlyingTicker), o.UnderlyingTicker)
	if err != nil {
		return Result{}, err
	}
	if !(vol > 0) {
		return Result{}, apperrors.NewPricingError(apperrors.ErrInvalidVolatility, market.VolOf(o.UnderlyingTicker).String(),
			o.UnderlyingTicker, fmt.Sprintf("volatility %v must be positive", vol))
	}
	rate, err := lookup(env, market.RateFactor, o.UnderlyingTicker)
	if err != nil {
		return Result{}, err
	}

	tte := o.Expiry - env.ValuationOffset()
	if tte < 0 || math.IsNaN(tte) {
		return Result{}, apperrors.NewPricingError(apperrors.ErrInvalidExpiry, "expiry", o.UnderlyingTicker,
			fmt.Sprintf("time to expiry %v must not be negative", tte))
	}

	var v Valuation
	if tte == 0 {
		v = Intrinsic(spot, o.Strike, o.Type)
	} else {
		v = BlackScholes(BlackScholesParams{
			Spot:   spot,
			Strike: o.Strike,
			Expiry: tte,
			Rate:   rate,
			Vol:    vol,
		}, o.Type)
	}

	return Result{
		Price:           v.Price,
		Delta:           v.Delta,
		Gamma:           v.Gamma,
		Exposure:        spot * v.Delta,
		UnderlyingPrice: spot,
		Vol:             vol,
		Rate:            rate,
		TimeToExpiry:    tte,
	}, nil
}

func spotOf(env market.Environment, ticker string) (float64, error) {
	spot, err := lookup(env, market.SpotOf(ticker), ticker)
	if err != nil {
		return 0, err
	}
	if !(spot > 0) {
		return 0, apperrors.NewPricingError(apperrors.ErrInvalidLevel, market.SpotOf(ticker).String(), ticker,
			fmt.Sprintf("spot %v must be positive", spot))
	}
	return spot, nil
}

func lookup(env market.Environment, id market.FactorID, underlying string) (float64, error) {
	v, ok := env.Get(id)
	if !ok {
		return 0, apperrors.NewPricingError(apperrors.ErrMissingRiskFactor, id.String(), underlying, "")
	}
	return v, nil
}
