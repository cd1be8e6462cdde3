package shift

import (
	"strings"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
)

// Axis is one scenario dimension: a stack of specs applied in declared order
// at the same layer index. Every spec on an axis must have the same number of
// layers.
type Axis struct {
	Name  string
	Specs []Spec
	// ExpectedLen, when positive, is the length the caller declared for the
	// axis; a stack of a different length is rejected.
	ExpectedLen int
}

// NewAxis creates an axis from stacked specs.
func NewAxis(name string, specs ...Spec) Axis {
	s := make([]Spec, len(specs))
	copy(s, specs)
	return Axis{Name: name, Specs: s}
}

// Ladder is an axis of a single spec.
func Ladder(name string, sel Selector, kind Kind, magnitudes ...float64) Axis {
	return NewAxis(name, NewSpec(sel, kind, magnitudes...))
}

// Len returns the number of layers on the axis.
func (a Axis) Len() int {
	if len(a.Specs) == 0 {
		return 0
	}
	return a.Specs[0].Len()
}

// Label returns the axis name, or the stacked selectors when unnamed.
func (a Axis) Label() string {
	if a.Name != "" {
		return a.Name
	}
	parts := make([]string, len(a.Specs))
	for i, s := range a.Specs {
		parts[i] = s.Selector.String()
	}
	return strings.Join(parts, "+")
}

// Validate checks the stack is well formed.
func (a Axis) Validate() error {
	if len(a.Specs) == 0 {
		return apperrors.Errorf(apperrors.ErrInvalidScenario, "axis %q has no shifts", a.Label())
	}
	n := a.Specs[0].Len()
	if n == 0 {
		return apperrors.Errorf(apperrors.ErrInvalidScenario, "axis %q: shift %s has no layers", a.Label(), a.Specs[0].Selector)
	}
	for _, s := range a.Specs {
		if s.Kind != Relative && s.Kind != Absolute {
			return apperrors.Errorf(apperrors.ErrInvalidScenario, "axis %q: invalid shift kind %q", a.Label(), s.Kind)
		}
		if s.Len() != n {
			return apperrors.NewPricingError(apperrors.ErrMisalignedStack, s.Selector.String(), "",
				"axis "+a.Label()+": stacked shifts have different layer counts")
		}
	}
	if a.ExpectedLen > 0 && a.ExpectedLen != n {
		return apperrors.Errorf(apperrors.ErrDimensionMismatch,
			"axis %q declared with %d layers but its shifts have %d", a.Label(), a.ExpectedLen, n)
	}
	return nil
}

// Derive applies every stacked spec at layer, in declared order, to env.
func (a Axis) Derive(env market.Environment, layer int) (market.Environment, error) {
	out := env
	for _, s := range a.Specs {
		next, err := Apply(out, s, layer)
		if err != nil {
			return market.Environment{}, err
		}
		out = next
	}
	return out, nil
}

// LayerShift describes one applied shift within a layer.
type LayerShift struct {
	Factor    string  `json:"factor"`
	Kind      Kind    `json:"kind"`
	Magnitude float64 `json:"magnitude"`
}

// Layer describes one grid step along an axis.
type Layer struct {
	Index  int          `json:"index"`
	Shifts []LayerShift `json:"shifts"`
}

// Layers returns the label of every layer on the axis.
func (a Axis) Layers() []Layer {
	n := a.Len()
	out := make([]Layer, n)
	for i := 0; i < n; i++ {
		shifts := make([]LayerShift, 0, len(a.Specs))
		for _, s := range a.Specs {
			if i < s.Len() {
				shifts = append(shifts, LayerShift{Factor: s.Selector.String(), Kind: s.Kind, Magnitude: s.Magnitudes[i]})
			}
		}
		out[i] = Layer{Index: i, Shifts: shifts}
	}
	return out
}

// AlignedSpec is a spec tagged with how it joins the previous one.
type AlignedSpec struct {
	Spec       Spec
	Orthogonal bool
}

// BuildAxes groups a flat sequence of specs into axes: the first spec opens
// the first axis, a stacked spec joins the most recent axis and an
// orthogonal spec opens a new one.
func BuildAxes(seq []AlignedSpec) []Axis {
	var axes []Axis
	for i, as := range seq {
		if i == 0 || as.Orthogonal {
			axes = append(axes, NewAxis("", as.Spec))
			continue
		}
		last := &axes[len(axes)-1]
		last.Specs = append(last.Specs, as.Spec)
	}
	return axes
}
