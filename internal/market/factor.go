// Package market holds the immutable market environment consumed by pricing.
package market

import (
	"fmt"
	"strings"
)

// FactorClass is a class of risk factor.
type FactorClass string

const (
	Spot            FactorClass = "spot"
	Vol             FactorClass = "vol"
	Rate            FactorClass = "rate"
	ValuationOffset FactorClass = "valuation_offset"
)

// PerUnderlying reports whether factors of this class are keyed by ticker.
func (c FactorClass) PerUnderlying() bool {
	return c == Spot || c == Vol
}

// ParseFactorClass parses a factor class name.
func ParseFactorClass(s string) (FactorClass, error) {
	switch c := FactorClass(strings.ToLower(strings.TrimSpace(s))); c {
	case Spot, Vol, Rate, ValuationOffset:
		return c, nil
	case "price":
		return Spot, nil
	default:
		return "", fmt.Errorf("invalid risk factor class: %q", s)
	}
}

// FactorID identifies one risk factor. Underlying is empty for global
// factors (rate, valuation offset).
type FactorID struct {
	Class      FactorClass
	Underlying string
}

// SpotOf returns the spot factor of a ticker.
func SpotOf(ticker string) FactorID {
	return FactorID{Class: Spot, Underlying: strings.ToUpper(ticker)}
}

// VolOf returns the implied volatility factor of a ticker.
func VolOf(ticker string) FactorID {
	return FactorID{Class: Vol, Underlying: strings.ToUpper(ticker)}
}

// RateFactor is the risk-free rate.
var RateFactor = FactorID{Class: Rate}

// ValuationOffsetFactor shifts the valuation date forward, in years.
var ValuationOffsetFactor = FactorID{Class: ValuationOffset}

func (f FactorID) String() string {
	if f.Underlying == "" {
		return string(f.Class)
	}
	return string(f.Class) + ":" + f.Underlying
}

// ParseFactorID parses "spot:AAPL", "vol:AAPL", "rate" or "valuation_offset".
func ParseFactorID(s string) (FactorID, error) {
	classPart, underlying, _ := strings.Cut(strings.TrimSpace(s), ":")
	class, err := ParseFactorClass(classPart)
	if err != nil {
		return FactorID{}, err
	}
	underlying = strings.ToUpper(strings.TrimSpace(underlying))
	if class.PerUnderlying() && underlying == "" {
		return FactorID{}, fmt.Errorf("risk factor %q requires an underlying", s)
	}
	if !class.PerUnderlying() && underlying != "" {
		return FactorID{}, fmt.Errorf("risk factor %q does not take an underlying", s)
	}
	return FactorID{Class: class, Underlying: underlying}, nil
}
