// Package scenariofile reads scenario definitions from YAML.
//
// A file declares either explicit axes, each a stack of shifts, or a flat
// sequence of shifts where each entry is stacked onto the previous axis or
// opens a new orthogonal one:
//
//	name: spot-vol
//	measures: [price, delta]
//	axes:
//	  - name: spot
//	    shifts:
//	      - factor: "spot:*"
//	        kind: rel
//	        magnitudes: [-0.05, 0, 0.05]
//	  - name: vol
//	    shifts:
//	      - factor: vol
//	        kind: abs
//	        magnitudes: [-0.05, 0.05]
package scenariofile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/pricing"
	"optpricer/internal/shift"
)

const (
	AlignOrthogonal = "orthogonal"
	AlignStacked    = "stacked"
)

// File is a parsed scenario definition.
type File struct {
	Name     string     `yaml:"name"`
	Workers  int        `yaml:"workers" validate:"gte=0"`
	Measures []string   `yaml:"measures"`
	Axes     []AxisDef  `yaml:"axes" validate:"dive"`
	Sequence []ShiftDef `yaml:"sequence" validate:"dive"`
}

// AxisDef declares one axis.
type AxisDef struct {
	Name   string     `yaml:"name"`
	Length int        `yaml:"length" validate:"gte=0"`
	Shifts []ShiftDef `yaml:"shifts" validate:"required,min=1,dive"`
}

// ShiftDef declares one shift ladder.
type ShiftDef struct {
	Factor     string    `yaml:"factor" validate:"required"`
	Kind       string    `yaml:"kind" default:"rel" validate:"oneof=rel relative abs absolute"`
	Magnitudes []float64 `yaml:"magnitudes" validate:"required,min=1"`
	Align      string    `yaml:"align" default:"orthogonal" validate:"oneof=orthogonal stacked"`
}

var validate = validator.New()

// Load reads a scenario file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a scenario definition. Unknown keys
// are rejected.
func Parse(data []byte) (*File, error) {
	f := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && err != io.EOF {
		return nil, invalid(err)
	}

	if err := setDefaults(f); err != nil {
		return nil, err
	}
	if err := validate.Struct(f); err != nil {
		return nil, invalid(err)
	}
	if len(f.Axes) > 0 && len(f.Sequence) > 0 {
		return nil, apperrors.Errorf(apperrors.ErrInvalidScenario, "declare either axes or sequence, not both")
	}
	if _, err := f.ParsedMeasures(); err != nil {
		return nil, err
	}
	if _, err := f.BuildAxes(); err != nil {
		return nil, err
	}
	return f, nil
}

// invalid marks err as an invalid scenario while keeping its own chain.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidScenario, err)
}

func setDefaults(f *File) error {
	if err := defaults.Set(f); err != nil {
		return invalid(err)
	}
	for i := range f.Axes {
		for j := range f.Axes[i].Shifts {
			if err := defaults.Set(&f.Axes[i].Shifts[j]); err != nil {
				return invalid(err)
			}
		}
	}
	for i := range f.Sequence {
		if err := defaults.Set(&f.Sequence[i]); err != nil {
			return invalid(err)
		}
	}
	return nil
}

// ParsedMeasures returns the requested measures, or the defaults when the
// file names none.
func (f *File) ParsedMeasures() ([]pricing.Measure, error) {
	return pricing.ParseMeasures(f.Measures)
}

// BuildAxes converts the definition into shift axes.
func (f *File) BuildAxes() ([]shift.Axis, error) {
	if len(f.Sequence) > 0 {
		seq := make([]shift.AlignedSpec, len(f.Sequence))
		for i, d := range f.Sequence {
			spec, err := d.spec()
			if err != nil {
				return nil, apperrors.Wrapf(err, "sequence[%d]", i)
			}
			seq[i] = shift.AlignedSpec{Spec: spec, Orthogonal: d.Align != AlignStacked}
		}
		return shift.BuildAxes(seq), nil
	}

	axes := make([]shift.Axis, len(f.Axes))
	for i, a := range f.Axes {
		specs := make([]shift.Spec, len(a.Shifts))
		for j, d := range a.Shifts {
			spec, err := d.spec()
			if err != nil {
				return nil, apperrors.Wrapf(err, "axes[%d].shifts[%d]", i, j)
			}
			specs[j] = spec
		}
		ax := shift.NewAxis(a.Name, specs...)
		ax.ExpectedLen = a.Length
		axes[i] = ax
	}
	return axes, nil
}

func (d ShiftDef) spec() (shift.Spec, error) {
	sel, err := shift.ParseSelector(d.Factor)
	if err != nil {
		return shift.Spec{}, apperrors.Errorf(apperrors.ErrInvalidScenario, "%v", err)
	}
	kind, err := shift.ParseKind(d.Kind)
	if err != nil {
		return shift.Spec{}, apperrors.Errorf(apperrors.ErrInvalidScenario, "%v", err)
	}
	return shift.NewSpec(sel, kind, d.Magnitudes...), nil
}
