package mcprice

import (
	"fmt"
	"math"
)

// Params are the option parameters passed to price_option after the output
// buffer, in field order.
type Params struct {
	InitialPrice float32 // S0
	Maturity     float32 // T, in years
	Rate         float32 // r, continuously compounded
	Volatility   float32 // sigma
	Strike       float32 // K
}

// DefaultParams returns S0=100, T=5, r=0.05, sigma=0.2, K=70.
func DefaultParams() Params {
	return Params{
		InitialPrice: 100,
		Maturity:     5,
		Rate:         0.05,
		Volatility:   0.2,
		Strike:       70,
	}
}

// DefaultTotalSamples is the sample target split across the lanes.
const DefaultTotalSamples int64 = 1_000_000_000

// Args returns the scalar kernel arguments 1 through 5.
func (p Params) Args() [5]float32 {
	return [5]float32{p.InitialPrice, p.Maturity, p.Rate, p.Volatility, p.Strike}
}

// Validate rejects parameters the kernel cannot price.
func (p Params) Validate() error {
	names := [5]string{"initial price", "maturity", "rate", "volatility", "strike"}
	for i, v := range p.Args() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidParams, names[i], v)
		}
	}

	switch {
	case p.InitialPrice <= 0:
		return fmt.Errorf("%w: initial price %v must be positive", ErrInvalidParams, p.InitialPrice)
	case p.Strike <= 0:
		return fmt.Errorf("%w: strike %v must be positive", ErrInvalidParams, p.Strike)
	case p.Maturity <= 0:
		return fmt.Errorf("%w: maturity %v must be positive", ErrInvalidParams, p.Maturity)
	case p.Volatility < 0:
		return fmt.Errorf("%w: volatility %v must not be negative", ErrInvalidParams, p.Volatility)
	}
	return nil
}
