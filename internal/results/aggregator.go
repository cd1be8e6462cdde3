package results

import (
	"optpricer/internal/pricing"
)

// Aggregator collects evaluator results into pre-sized buffers. Each
// (grid point, instrument) pair owns one slot per measure, so concurrent
// Put calls for distinct pairs need no locking.
type Aggregator struct {
	points      int
	instruments int
	measures    []pricing.Measure
	buffers     map[pricing.Measure][]float64
}

// NewAggregator sizes buffers for points grid points and instruments
// positions.
func NewAggregator(points, instruments int, measures []pricing.Measure) *Aggregator {
	ms := make([]pricing.Measure, len(measures))
	copy(ms, measures)
	buffers := make(map[pricing.Measure][]float64, len(ms))
	for _, m := range ms {
		buffers[m] = make([]float64, points*instruments)
	}
	return &Aggregator{
		points:      points,
		instruments: instruments,
		measures:    ms,
		buffers:     buffers,
	}
}

// Put records the result of instrument inst at flat grid index point.
func (a *Aggregator) Put(point, inst int, r pricing.Result) {
	off := point*a.instruments + inst
	for _, m := range a.measures {
		a.buffers[m][off] = r.Value(m)
	}
}

// Build hands the buffers over to a ResultSet. The aggregator must not be
// used afterwards.
func (a *Aggregator) Build(runID string, axes []AxisLabel, instruments []InstrumentLabel) *ResultSet {
	shape := make([]int, 0, len(axes)+1)
	for _, ax := range axes {
		shape = append(shape, len(ax.Layers))
	}
	shape = append(shape, a.instruments)

	rs := &ResultSet{
		RunID:       runID,
		Axes:        axes,
		Instruments: instruments,
		Order:       a.measures,
		Measures:    make(map[pricing.Measure]*NDArray, len(a.measures)),
	}
	for _, m := range a.measures {
		s := make([]int, len(shape))
		copy(s, shape)
		rs.Measures[m] = &NDArray{Shape: s, Data: a.buffers[m]}
	}
	a.buffers = nil
	return rs
}
