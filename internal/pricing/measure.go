package pricing

import (
	"strings"

	apperrors "optpricer/internal/errors"
)

// Measure names one quantity reported per instrument.
type Measure string

const (
	MeasurePrice           Measure = "price"
	MeasureDelta           Measure = "delta"
	MeasureGamma           Measure = "gamma"
	MeasureExposure        Measure = "exposure"
	MeasureUnderlyingPrice Measure = "underlying_price"
	MeasureVol             Measure = "vol"
	MeasureRate            Measure = "rate"
	MeasureTimeToExpiry    Measure = "time_to_expiry"
)

// AllMeasures lists every measure in reporting order.
var AllMeasures = []Measure{
	MeasurePrice,
	MeasureDelta,
	MeasureGamma,
	MeasureExposure,
	MeasureUnderlyingPrice,
	MeasureVol,
	MeasureRate,
	MeasureTimeToExpiry,
}

// DefaultMeasures is what a run reports when the caller names none.
var DefaultMeasures = []Measure{MeasurePrice, MeasureDelta, MeasureGamma, MeasureExposure}

// ParseMeasure parses a measure name.
func ParseMeasure(s string) (Measure, error) {
	m := Measure(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllMeasures {
		if m == known {
			return m, nil
		}
	}
	return "", apperrors.Errorf(apperrors.ErrInvalidMeasure, "unknown measure %q", s)
}

// ParseMeasures parses a list of measure names, defaulting when empty.
func ParseMeasures(names []string) ([]Measure, error) {
	if len(names) == 0 {
		out := make([]Measure, len(DefaultMeasures))
		copy(out, DefaultMeasures)
		return out, nil
	}
	out := make([]Measure, 0, len(names))
	seen := make(map[Measure]bool, len(names))
	for _, n := range names {
		m, err := ParseMeasure(n)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// Additive reports whether the measure can be summed across a portfolio.
func (m Measure) Additive() bool {
	switch m {
	case MeasurePrice, MeasureDelta, MeasureGamma, MeasureExposure:
		return true
	default:
		return false
	}
}
