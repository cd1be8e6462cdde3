package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"optpricer/internal/models"
)

// BlackScholesParams are the inputs of the closed-form model.
type BlackScholesParams struct {
	Spot   float64
	Strike float64
	Expiry float64 // years
	Rate   float64
	Vol    float64
}

// Valuation is a model price with its spot sensitivities.
type Valuation struct {
	Price float64
	Delta float64
	Gamma float64
}

// BlackScholes prices a European option. Expiry must be positive; callers
// route expired options to Intrinsic.
func BlackScholes(p BlackScholesParams, typ models.OptionType) Valuation {
	n := distuv.UnitNormal
	volT := p.Vol * math.Sqrt(p.Expiry)
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate+0.5*p.Vol*p.Vol)*p.Expiry) / volT
	d2 := d1 - volT
	df := math.Exp(-p.Rate * p.Expiry)
	gamma := n.Prob(d1) / (p.Spot * volT)

	if typ == models.Put {
		return Valuation{
			Price: p.Strike*df*n.CDF(-d2) - p.Spot*n.CDF(-d1),
			Delta: n.CDF(d1) - 1,
			Gamma: gamma,
		}
	}
	return Valuation{
		Price: p.Spot*n.CDF(d1) - p.Strike*df*n.CDF(d2),
		Delta: n.CDF(d1),
		Gamma: gamma,
	}
}

// Intrinsic values an option at expiry. At the money the option is treated
// as out of the money, so delta is 0.
func Intrinsic(spot, strike float64, typ models.OptionType) Valuation {
	if typ == models.Put {
		v := Valuation{Price: math.Max(strike-spot, 0)}
		if spot < strike {
			v.Delta = -1
		}
		return v
	}
	v := Valuation{Price: math.Max(spot-strike, 0)}
	if spot > strike {
		v.Delta = 1
	}
	return v
}
