package results

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/pricing"
	"optpricer/internal/shift"
)

// AxisLabel names one output dimension and its layers.
type AxisLabel struct {
	Name   string        `json:"name"`
	Layers []shift.Layer `json:"layers"`
}

// LayerNames renders each layer of the axis as a short label.
func (a AxisLabel) LayerNames() []string {
	out := make([]string, len(a.Layers))
	for i, l := range a.Layers {
		parts := make([]string, len(l.Shifts))
		for j, s := range l.Shifts {
			parts[j] = formatShift(s)
		}
		out[i] = strings.Join(parts, " ")
	}
	return out
}

func formatShift(s shift.LayerShift) string {
	d := decimal.NewFromFloat(s.Magnitude)
	suffix := ""
	if s.Kind == shift.Relative {
		d = d.Shift(2)
		suffix = "%"
	}
	sign := ""
	if !d.IsNegative() {
		sign = "+"
	}
	return s.Factor + sign + d.String() + suffix
}

// InstrumentLabel identifies the instrument at one index of the trailing
// dimension.
type InstrumentLabel struct {
	ID         string  `json:"id"`
	Underlying string  `json:"underlying"`
	Kind       string  `json:"kind"`
	Size       float64 `json:"size"`
}

// ResultSet is the output of one scenario run.
type ResultSet struct {
	RunID       string                       `json:"run_id"`
	Axes        []AxisLabel                  `json:"axes"`
	Instruments []InstrumentLabel            `json:"instruments"`
	Order       []pricing.Measure            `json:"order"`
	Measures    map[pricing.Measure]*NDArray `json:"measures"`
}

// Shape returns the grid dimensions, without the instrument dimension.
func (rs *ResultSet) Shape() []int {
	shape := make([]int, len(rs.Axes))
	for i, ax := range rs.Axes {
		shape[i] = len(ax.Layers)
	}
	return shape
}

// Points returns the number of grid points.
func (rs *ResultSet) Points() int {
	return product(rs.Shape())
}

// InstrumentIDs returns the instrument IDs in portfolio order.
func (rs *ResultSet) InstrumentIDs() []string {
	out := make([]string, len(rs.Instruments))
	for i, l := range rs.Instruments {
		out[i] = l.ID
	}
	return out
}

// Metric returns the array of measure m, shaped [axes..., instruments].
func (rs *ResultSet) Metric(m pricing.Measure) (*NDArray, error) {
	arr, ok := rs.Measures[m]
	if !ok {
		return nil, apperrors.Errorf(apperrors.ErrInvalidMeasure, "measure %s was not requested", m)
	}
	return arr, nil
}

// Portfolio sums an additive measure over instruments, giving an array
// shaped [axes...].
func (rs *ResultSet) Portfolio(m pricing.Measure) (*NDArray, error) {
	if !m.Additive() {
		return nil, apperrors.Errorf(apperrors.ErrInvalidMeasure, "measure %s cannot be summed across instruments", m)
	}
	arr, err := rs.Metric(m)
	if err != nil {
		return nil, err
	}
	n := len(rs.Instruments)
	out := NewNDArray(rs.Shape()...)
	for p := range out.Data {
		var sum float64
		for i := 0; i < n; i++ {
			sum += arr.Data[p*n+i]
		}
		out.Data[p] = sum
	}
	return out, nil
}

// ExposureByUnderlying sums exposure per underlying. The result is shaped
// [axes..., underlyings]; the returned labels give the underlying order,
// which is first-seen portfolio order.
func (rs *ResultSet) ExposureByUnderlying() (*NDArray, []string, error) {
	arr, err := rs.Metric(pricing.MeasureExposure)
	if err != nil {
		return nil, nil, err
	}

	var underlyings []string
	slot := make(map[string]int)
	column := make([]int, len(rs.Instruments))
	for i, l := range rs.Instruments {
		j, ok := slot[l.Underlying]
		if !ok {
			j = len(underlyings)
			slot[l.Underlying] = j
			underlyings = append(underlyings, l.Underlying)
		}
		column[i] = j
	}

	n := len(rs.Instruments)
	u := len(underlyings)
	out := NewNDArray(append(rs.Shape(), u)...)
	for p := 0; p < rs.Points(); p++ {
		for i := 0; i < n; i++ {
			out.Data[p*u+column[i]] += arr.Data[p*n+i]
		}
	}
	return out, underlyings, nil
}

// Row is one (grid point, instrument) valuation with its labels.
type Row struct {
	Point        int                         `json:"point"`
	Coordinate   []int                       `json:"coordinate"`
	Layers       []string                    `json:"layers"`
	InstrumentID string                      `json:"instrument_id"`
	Underlying   string                      `json:"underlying"`
	Values       map[pricing.Measure]float64 `json:"values"`
}

// Rows flattens the result set in row-major grid order, instruments
// innermost.
func (rs *ResultSet) Rows() []Row {
	shape := rs.Shape()
	names := make([][]string, len(rs.Axes))
	for i, ax := range rs.Axes {
		names[i] = ax.LayerNames()
	}

	n := len(rs.Instruments)
	rows := make([]Row, 0, rs.Points()*n)
	for p := 0; p < rs.Points(); p++ {
		coord := Unravel(p, shape)
		layers := make([]string, len(coord))
		for d, c := range coord {
			layers[d] = names[d][c]
		}
		for i, inst := range rs.Instruments {
			values := make(map[pricing.Measure]float64, len(rs.Order))
			for _, m := range rs.Order {
				values[m] = rs.Measures[m].Data[p*n+i]
			}
			rows = append(rows, Row{
				Point:        p,
				Coordinate:   coord,
				Layers:       layers,
				InstrumentID: inst.ID,
				Underlying:   inst.Underlying,
				Values:       values,
			})
		}
	}
	return rows
}
