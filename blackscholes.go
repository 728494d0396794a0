package mcprice

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesCall returns the closed-form price of a European call. With
// zero volatility the payoff is deterministic.
func BlackScholesCall(p Params) float64 {
	s := float64(p.InitialPrice)
	k := float64(p.Strike)
	t := float64(p.Maturity)
	r := float64(p.Rate)
	sigma := float64(p.Volatility)

	disc := math.Exp(-r * t)
	if sigma == 0 || t == 0 {
		return math.Max(s-k*disc, 0)
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	return s*distuv.UnitNormal.CDF(d1) - k*disc*distuv.UnitNormal.CDF(d2)
}
