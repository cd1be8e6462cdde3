package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
	"optpricer/internal/models"
)

const tol = 1e-9

func baseEnv() market.Environment {
	return market.NewBuilder().
		Spot("AAPL", 100).
		Vol("AAPL", 0.2).
		Rate(0.01).
		Build()
}

func TestEvaluateEquity(t *testing.T) {
	r, err := Evaluate(models.NewEquity("AAPL", 10), baseEnv())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, r.Price)
	assert.Equal(t, 10.0, r.Delta)
	assert.Equal(t, 0.0, r.Gamma)
	assert.Equal(t, 1000.0, r.Exposure)
	assert.Equal(t, 100.0, r.UnderlyingPrice)
}

func TestEvaluateAtTheMoneyCall(t *testing.T) {
	r, err := Evaluate(models.NewEuropeanOption("AAPL", models.Call, 100, 1), baseEnv())
	require.NoError(t, err)
	assert.InDelta(t, 8.433318690109608, r.Price, tol)
	assert.InDelta(t, 0.5596176923702425, r.Delta, tol)
	assert.InDelta(t, 0.019723966545394447, r.Gamma, tol)
	assert.InDelta(t, 55.96176923702425, r.Exposure, 1e-7)
	assert.Equal(t, 1.0, r.TimeToExpiry)
	assert.Equal(t, 0.2, r.Vol)
	assert.Equal(t, 0.01, r.Rate)
}

func TestEvaluateAtTheMoneyPut(t *testing.T) {
	r, err := Evaluate(models.NewEuropeanOption("AAPL", models.Put, 100, 1), baseEnv())
	require.NoError(t, err)
	assert.InDelta(t, 7.438302065026413, r.Price, tol)
	assert.InDelta(t, -0.4403823076297575, r.Delta, tol)
	assert.InDelta(t, 0.019723966545394447, r.Gamma, tol)
}

func TestZeroRateMatchesReference(t *testing.T) {
	env := baseEnv().With(market.RateFactor, 0)
	r, err := Evaluate(models.NewEuropeanOption("AAPL", models.Call, 100, 1), env)
	require.NoError(t, err)
	assert.InDelta(t, 7.965567455405804, r.Price, tol)
}

func TestValuationOffsetAgesOption(t *testing.T) {
	opt := models.NewEuropeanOption("AAPL", models.Call, 100, 1.5)
	aged, err := Evaluate(opt, baseEnv().With(market.ValuationOffsetFactor, 0.5))
	require.NoError(t, err)
	plain, err := Evaluate(models.NewEuropeanOption("AAPL", models.Call, 100, 1), baseEnv())
	require.NoError(t, err)
	assert.Equal(t, plain.Price, aged.Price)
	assert.Equal(t, 1.0, aged.TimeToExpiry)

	_, err = Evaluate(opt, baseEnv().With(market.ValuationOffsetFactor, 2))
	assert.ErrorIs(t, err, apperrors.ErrInvalidExpiry)
}

func TestExpiredOptionIsIntrinsic(t *testing.T) {
	env := baseEnv()
	cases := []struct {
		typ   models.OptionType
		spot  float64
		price float64
		delta float64
	}{
		{models.Call, 110, 10, 1},
		{models.Call, 90, 0, 0},
		{models.Call, 100, 0, 0},
		{models.Put, 90, 10, -1},
		{models.Put, 110, 0, 0},
		{models.Put, 100, 0, 0},
	}
	for _, c := range cases {
		r, err := Evaluate(models.NewEuropeanOption("AAPL", c.typ, 100, 0), env.With(market.SpotOf("AAPL"), c.spot))
		require.NoError(t, err)
		assert.Equal(t, c.price, r.Price, "%s spot %v", c.typ, c.spot)
		assert.Equal(t, c.delta, r.Delta, "%s spot %v", c.typ, c.spot)
		assert.Equal(t, 0.0, r.Gamma)
	}
}

func TestEvaluateFailures(t *testing.T) {
	call := models.NewEuropeanOption("AAPL", models.Call, 100, 1)
	env := baseEnv()

	cases := []struct {
		name   string
		inst   models.Instrument
		env    market.Environment
		kind   error
		factor string
	}{
		{"missing spot", models.NewEquity("MSFT", 1), env, apperrors.ErrMissingRiskFactor, "spot:MSFT"},
		{"missing vol", call, market.NewBuilder().Spot("AAPL", 100).Rate(0).Build(), apperrors.ErrMissingRiskFactor, "vol:AAPL"},
		{"missing rate", call, market.NewBuilder().Spot("AAPL", 100).Vol("AAPL", 0.2).Build(), apperrors.ErrMissingRiskFactor, "rate"},
		{"zero vol", call, env.With(market.VolOf("AAPL"), 0), apperrors.ErrInvalidVolatility, "vol:AAPL"},
		{"negative vol", call, env.With(market.VolOf("AAPL"), -0.1), apperrors.ErrInvalidVolatility, "vol:AAPL"},
		{"zero spot", call, env.With(market.SpotOf("AAPL"), 0), apperrors.ErrInvalidLevel, "spot:AAPL"},
		{"negative strike", models.EuropeanOption{UnderlyingTicker: "AAPL", Type: models.Call, Strike: -1, Expiry: 1}, env, apperrors.ErrInvalidLevel, "strike"},
		{"negative expiry", models.EuropeanOption{UnderlyingTicker: "AAPL", Type: models.Put, Strike: 100, Expiry: -1}, env, apperrors.ErrInvalidExpiry, "expiry"},
		{"nil", nil, env, apperrors.ErrUnsupportedInstrument, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Evaluate(c.inst, c.env)
			require.ErrorIs(t, err, c.kind)
			var pe *apperrors.PricingError
			require.True(t, apperrors.As(err, &pe))
			assert.Equal(t, c.factor, pe.Factor)
		})
	}
}

func TestEvaluatePortfolioReportsIndex(t *testing.T) {
	p, err := models.NewPortfolioOf(
		models.NewEquity("AAPL", 5),
		models.NewEuropeanOption("TSLA", models.Call, 700, 0.5),
	)
	require.NoError(t, err)

	_, err = EvaluatePortfolio(p, baseEnv())
	require.ErrorIs(t, err, apperrors.ErrMissingRiskFactor)
	var ie *apperrors.InstrumentError
	require.True(t, apperrors.As(err, &ie))
	assert.Equal(t, 1, ie.Index)
	assert.Equal(t, "TSLA_C700_0.5Y_1", ie.ID)

	p, err = models.NewPortfolioOf(models.NewEquity("AAPL", 5), models.NewEuropeanOption("AAPL", models.Put, 90, 0.5))
	require.NoError(t, err)
	results, err := EvaluatePortfolio(p, baseEnv())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 500.0, results[0].Price)
}

func TestParseMeasures(t *testing.T) {
	ms, err := ParseMeasures(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMeasures, ms)

	ms, err = ParseMeasures([]string{"Price", "time_to_expiry"})
	require.NoError(t, err)
	assert.Equal(t, []Measure{MeasurePrice, MeasureTimeToExpiry}, ms)

	_, err = ParseMeasures([]string{"vega"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidMeasure)

	assert.True(t, MeasureExposure.Additive())
	assert.False(t, MeasureVol.Additive())
}

func TestEvaluatePortfolioScalesExposureBySize(t *testing.T) {
	p := models.NewPortfolio()
	_, err := p.AddSized(models.NewEuropeanOption("AAPL", models.Call, 100, 1), 10)
	require.NoError(t, err)
	_, err = p.AddSized(models.NewEuropeanOption("AAPL", models.Put, 100, 1), -2)
	require.NoError(t, err)

	results, err := EvaluatePortfolio(p, baseEnv())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.InDelta(t, 8.433318690109608, results[0].Price, tol)
	assert.InDelta(t, 0.5596176923702425, results[0].Delta, tol)
	assert.InDelta(t, 559.6176923702425, results[0].Exposure, 1e-6)

	assert.InDelta(t, 7.438302065026413, results[1].Price, tol)
	assert.InDelta(t, -2*100*(0.5596176923702425-1), results[1].Exposure, 1e-6)
}

func TestEvaluatePortfolioNil(t *testing.T) {
	_, err := EvaluatePortfolio(nil, baseEnv())
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}
