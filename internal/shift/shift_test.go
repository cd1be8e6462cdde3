package shift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
)

func env() market.Environment {
	return market.NewBuilder().
		Spot("AAPL", 100).
		Spot("MSFT", 200).
		Vol("AAPL", 0.2).
		Rate(0.01).
		Build()
}

func get(t *testing.T, e market.Environment, id market.FactorID) float64 {
	t.Helper()
	v, ok := e.Get(id)
	require.True(t, ok, id.String())
	return v
}

func TestApplyRelativeAndAbsolute(t *testing.T) {
	base := env()

	rel, err := Apply(base, NewSpec(Factor(market.SpotOf("AAPL")), Relative, -0.05, 0.05), 1)
	require.NoError(t, err)
	assert.Equal(t, 100*(1+0.05), get(t, rel, market.SpotOf("AAPL")))
	assert.Equal(t, 200.0, get(t, rel, market.SpotOf("MSFT")))

	abs, err := Apply(base, NewSpec(Factor(market.RateFactor), Absolute, 0.01), 0)
	require.NoError(t, err)
	assert.Equal(t, 0.01+0.01, get(t, abs, market.RateFactor))

	assert.Equal(t, 100.0, get(t, base, market.SpotOf("AAPL")))
	assert.Equal(t, 0.01, get(t, base, market.RateFactor))
}

func TestApplyWildcardShiftsEveryFactorOfClass(t *testing.T) {
	out, err := Apply(env(), NewSpec(AllOf(market.Spot), Relative, 0.1), 0)
	require.NoError(t, err)
	assert.InDelta(t, 110, get(t, out, market.SpotOf("AAPL")), 1e-12)
	assert.InDelta(t, 220, get(t, out, market.SpotOf("MSFT")), 1e-12)
	assert.Equal(t, 0.2, get(t, out, market.VolOf("AAPL")))
}

func TestApplyUnknownRiskFactor(t *testing.T) {
	_, err := Apply(env(), NewSpec(Factor(market.VolOf("MSFT")), Relative, 0.1), 0)
	require.ErrorIs(t, err, apperrors.ErrUnknownRiskFactor)

	var pe *apperrors.PricingError
	require.True(t, apperrors.As(err, &pe))
	assert.Equal(t, "vol:MSFT", pe.Factor)

	_, err = Apply(env(), NewSpec(Factor(market.ValuationOffsetFactor), Absolute, 0.1), 0)
	assert.ErrorIs(t, err, apperrors.ErrUnknownRiskFactor)

	_, err = Apply(env(), NewSpec(Factor(market.RateFactor), Absolute, 0.1), 3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidScenario)
}

func TestAxisDeriveAppliesStackInOrder(t *testing.T) {
	relThenAbs := NewAxis("spot",
		NewSpec(Factor(market.SpotOf("AAPL")), Relative, 0.1, 0.2),
		NewSpec(Factor(market.SpotOf("AAPL")), Absolute, 5, 10),
	)
	absThenRel := NewAxis("spot",
		NewSpec(Factor(market.SpotOf("AAPL")), Absolute, 5, 10),
		NewSpec(Factor(market.SpotOf("AAPL")), Relative, 0.1, 0.2),
	)
	require.NoError(t, relThenAbs.Validate())

	a, err := relThenAbs.Derive(env(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100*(1+0.2)+10, get(t, a, market.SpotOf("AAPL")))

	b, err := absThenRel.Derive(env(), 1)
	require.NoError(t, err)
	assert.Equal(t, (100+10)*(1+0.2), get(t, b, market.SpotOf("AAPL")))

	again, err := relThenAbs.Derive(env(), 1)
	require.NoError(t, err)
	assert.Equal(t, a.Values(), again.Values())
}

func TestAxisValidate(t *testing.T) {
	misaligned := NewAxis("x",
		NewSpec(Factor(market.SpotOf("AAPL")), Relative, -0.05, 0, 0.05),
		NewSpec(Factor(market.VolOf("AAPL")), Relative, 0.1, 0.2),
	)
	assert.ErrorIs(t, misaligned.Validate(), apperrors.ErrMisalignedStack)

	declared := Ladder("x", Factor(market.SpotOf("AAPL")), Relative, -0.05, 0.05)
	declared.ExpectedLen = 3
	assert.ErrorIs(t, declared.Validate(), apperrors.ErrDimensionMismatch)
	declared.ExpectedLen = 2
	assert.NoError(t, declared.Validate())

	assert.ErrorIs(t, NewAxis("empty").Validate(), apperrors.ErrInvalidScenario)
	assert.ErrorIs(t, Ladder("none", AllOf(market.Spot), Relative).Validate(), apperrors.ErrInvalidScenario)
}

func TestAxisLayers(t *testing.T) {
	a := NewAxis("",
		NewSpec(AllOf(market.Spot), Relative, -0.05, 0.05),
		NewSpec(Factor(market.VolOf("AAPL")), Absolute, 0.01, 0.02),
	)
	assert.Equal(t, "spot:*+vol:AAPL", a.Label())
	layers := a.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, []LayerShift{
		{Factor: "spot:*", Kind: Relative, Magnitude: 0.05},
		{Factor: "vol:AAPL", Kind: Absolute, Magnitude: 0.02},
	}, layers[1].Shifts)
}

func TestBuildAxes(t *testing.T) {
	spot := NewSpec(AllOf(market.Spot), Relative, -0.05, 0, 0.05)
	spotAbs := NewSpec(AllOf(market.Spot), Absolute, 0, 0, 1)
	vol := NewSpec(AllOf(market.Vol), Relative, -0.1, 0.2)

	axes := BuildAxes([]AlignedSpec{
		{Spec: spot, Orthogonal: true},
		{Spec: spotAbs},
		{Spec: vol, Orthogonal: true},
	})
	require.Len(t, axes, 2)
	assert.Len(t, axes[0].Specs, 2)
	assert.Equal(t, 3, axes[0].Len())
	assert.Equal(t, 2, axes[1].Len())

	assert.Nil(t, BuildAxes(nil))
}

func TestParseSelectorAndKind(t *testing.T) {
	s, err := ParseSelector("spot:*")
	require.NoError(t, err)
	assert.Equal(t, AllOf(market.Spot), s)

	s, err = ParseSelector("vol:aapl")
	require.NoError(t, err)
	assert.Equal(t, Factor(market.VolOf("AAPL")), s)
	assert.Equal(t, "vol:AAPL", s.String())

	s, err = ParseSelector("spot")
	require.NoError(t, err)
	assert.Equal(t, "spot:*", s.String())

	_, err = ParseSelector("rate:USD")
	assert.Error(t, err)

	k, err := ParseKind("abs")
	require.NoError(t, err)
	assert.Equal(t, Absolute, k)
	_, err = ParseKind("log")
	assert.Error(t, err)
}
