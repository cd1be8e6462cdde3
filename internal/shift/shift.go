// Package shift derives perturbed market environments from a baseline.
package shift

import (
	"fmt"
	"strings"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
)

// Kind is how a magnitude is applied to a factor value.
type Kind string

const (
	Relative Kind = "relative"
	Absolute Kind = "absolute"
)

// ParseKind parses a shift kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relative", "rel":
		return Relative, nil
	case "absolute", "abs":
		return Absolute, nil
	default:
		return "", fmt.Errorf("invalid shift kind: %q", s)
	}
}

func (k Kind) apply(v, magnitude float64) float64 {
	if k == Absolute {
		return v + magnitude
	}
	return v * (1 + magnitude)
}

// Selector picks the factors a shift applies to. An empty Underlying on a
// per-underlying class selects every factor of that class in the environment.
type Selector struct {
	Class      market.FactorClass
	Underlying string
}

// Factor selects exactly one factor.
func Factor(id market.FactorID) Selector {
	return Selector{Class: id.Class, Underlying: id.Underlying}
}

// AllOf selects every factor of a class.
func AllOf(class market.FactorClass) Selector {
	return Selector{Class: class}
}

// ParseSelector parses "spot:AAPL", "spot:*", "vol" or "rate".
func ParseSelector(s string) (Selector, error) {
	classPart, underlying, _ := strings.Cut(strings.TrimSpace(s), ":")
	class, err := market.ParseFactorClass(classPart)
	if err != nil {
		return Selector{}, err
	}
	underlying = strings.ToUpper(strings.TrimSpace(underlying))
	if underlying == "*" {
		underlying = ""
	}
	if !class.PerUnderlying() && underlying != "" {
		return Selector{}, fmt.Errorf("risk factor %q does not take an underlying", s)
	}
	return Selector{Class: class, Underlying: underlying}, nil
}

func (s Selector) String() string {
	if s.Underlying != "" {
		return string(s.Class) + ":" + s.Underlying
	}
	if s.Class.PerUnderlying() {
		return string(s.Class) + ":*"
	}
	return string(s.Class)
}

func (s Selector) match(env market.Environment) []market.FactorID {
	if s.Underlying != "" || !s.Class.PerUnderlying() {
		id := market.FactorID{Class: s.Class, Underlying: s.Underlying}
		if env.Has(id) {
			return []market.FactorID{id}
		}
		return nil
	}
	var ids []market.FactorID
	for _, id := range env.Factors() {
		if id.Class == s.Class {
			ids = append(ids, id)
		}
	}
	return ids
}

// Spec is one perturbation: a factor selection, a kind and one magnitude per
// layer.
type Spec struct {
	Selector   Selector
	Kind       Kind
	Magnitudes []float64
}

// NewSpec creates a Spec.
func NewSpec(sel Selector, kind Kind, magnitudes ...float64) Spec {
	m := make([]float64, len(magnitudes))
	copy(m, magnitudes)
	return Spec{Selector: sel, Kind: kind, Magnitudes: m}
}

// Len returns the number of layers.
func (s Spec) Len() int {
	return len(s.Magnitudes)
}

func (s Spec) String() string {
	return fmt.Sprintf("%s %s %v", s.Kind, s.Selector, s.Magnitudes)
}

// Apply returns env with the magnitude of spec at layer applied. Shifts never
// introduce factors: a selection matching nothing is an error.
func Apply(env market.Environment, spec Spec, layer int) (market.Environment, error) {
	if layer < 0 || layer >= len(spec.Magnitudes) {
		return market.Environment{}, apperrors.Errorf(apperrors.ErrInvalidScenario,
			"layer %d outside shift %s with %d layers", layer, spec.Selector, len(spec.Magnitudes))
	}
	if spec.Kind != Relative && spec.Kind != Absolute {
		return market.Environment{}, apperrors.Errorf(apperrors.ErrInvalidScenario, "invalid shift kind %q", spec.Kind)
	}

	ids := spec.Selector.match(env)
	if len(ids) == 0 {
		return market.Environment{}, apperrors.NewPricingError(apperrors.ErrUnknownRiskFactor,
			spec.Selector.String(), spec.Selector.Underlying, "not present in the baseline environment")
	}

	magnitude := spec.Magnitudes[layer]
	updates := make(map[market.FactorID]float64, len(ids))
	for _, id := range ids {
		v, _ := env.Get(id)
		updates[id] = spec.Kind.apply(v, magnitude)
	}
	return env.Derive(updates), nil
}
