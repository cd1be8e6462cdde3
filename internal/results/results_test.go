package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
	"optpricer/internal/pricing"
	"optpricer/internal/shift"
)

func TestNDArrayRowMajor(t *testing.T) {
	a := NewNDArray(2, 3)
	for i := range a.Data {
		a.Data[i] = float64(i)
	}
	assert.Equal(t, 2, a.Dims())
	assert.Equal(t, 6, a.Len())
	assert.Equal(t, 5.0, a.At(1, 2))
	assert.Equal(t, 3.0, a.At(1, 0))
	assert.Panics(t, func() { a.At(2, 0) })
	assert.Panics(t, func() { a.At(1) })

	a.Set(-1, 0, 1)
	assert.Equal(t, -1.0, a.Data[1])

	scalar := NewNDArray()
	assert.Equal(t, 1, scalar.Len())
	assert.Equal(t, 0.0, scalar.At())
}

func TestUnravel(t *testing.T) {
	assert.Equal(t, []int{1, 2}, Unravel(5, []int{2, 3}))
	assert.Equal(t, []int{0, 1, 1}, Unravel(3, []int{2, 2, 2}))
	assert.Equal(t, []int{}, Unravel(0, nil))
}

func spotAxis() AxisLabel {
	ax := shift.Ladder("spot", shift.AllOf(market.Spot), shift.Relative, -0.05, 0.05)
	return AxisLabel{Name: ax.Label(), Layers: ax.Layers()}
}

func buildSet(t *testing.T) *ResultSet {
	t.Helper()
	measures := []pricing.Measure{pricing.MeasurePrice, pricing.MeasureExposure, pricing.MeasureVol}
	agg := NewAggregator(2, 3, measures)
	// Point 0.
	agg.Put(0, 0, pricing.Result{Price: 1, Exposure: 10, Vol: 0.2})
	agg.Put(0, 1, pricing.Result{Price: 2, Exposure: 20, Vol: 0.3})
	agg.Put(0, 2, pricing.Result{Price: 3, Exposure: 30, Vol: 0.2})
	// Point 1.
	agg.Put(1, 0, pricing.Result{Price: 4, Exposure: 40, Vol: 0.2})
	agg.Put(1, 1, pricing.Result{Price: 5, Exposure: 50, Vol: 0.3})
	agg.Put(1, 2, pricing.Result{Price: 6, Exposure: 60, Vol: 0.2})

	instruments := []InstrumentLabel{
		{ID: "AAPL_C100_1Y_1", Underlying: "AAPL", Kind: "european_option"},
		{ID: "MSFT", Underlying: "MSFT", Kind: "equity"},
		{ID: "AAPL", Underlying: "AAPL", Kind: "equity"},
	}
	rs := agg.Build("run-1", []AxisLabel{spotAxis()}, instruments)
	require.NotNil(t, rs)
	return rs
}

func TestMetricShape(t *testing.T) {
	rs := buildSet(t)
	assert.Equal(t, []int{2}, rs.Shape())
	assert.Equal(t, 2, rs.Points())
	assert.Equal(t, []string{"AAPL_C100_1Y_1", "MSFT", "AAPL"}, rs.InstrumentIDs())

	price, err := rs.Metric(pricing.MeasurePrice)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, price.Shape)
	assert.Equal(t, 5.0, price.At(1, 1))

	_, err = rs.Metric(pricing.MeasureGamma)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMeasure)
}

func TestPortfolioAggregate(t *testing.T) {
	rs := buildSet(t)
	total, err := rs.Portfolio(pricing.MeasurePrice)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, total.Shape)
	assert.Equal(t, []float64{6, 15}, total.Data)

	_, err = rs.Portfolio(pricing.MeasureVol)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMeasure)
}

func TestExposureByUnderlying(t *testing.T) {
	rs := buildSet(t)
	exp, labels, err := rs.ExposureByUnderlying()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, labels)
	assert.Equal(t, []int{2, 2}, exp.Shape)
	assert.Equal(t, []float64{40, 20, 100, 50}, exp.Data)
}

func TestRows(t *testing.T) {
	rs := buildSet(t)
	rows := rs.Rows()
	require.Len(t, rows, 6)

	last := rows[5]
	assert.Equal(t, 1, last.Point)
	assert.Equal(t, []int{1}, last.Coordinate)
	assert.Equal(t, []string{"spot:*+5%"}, last.Layers)
	assert.Equal(t, "AAPL", last.InstrumentID)
	assert.Equal(t, 6.0, last.Values[pricing.MeasurePrice])
	assert.Equal(t, 0.2, last.Values[pricing.MeasureVol])

	assert.Equal(t, []string{"spot:*-5%"}, rows[0].Layers)
}
