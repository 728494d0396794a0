package kernels

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-mcprice/accel"
)

// DefaultSeed seeds the registered host kernel.
const DefaultSeed uint64 = 0x5eed

func init() {
	accel.RegisterHostKernel(EntryPoint, NewPriceOption(DefaultSeed))
}

// PriceOptionArgs is the positional signature of price_option:
// out, S0, T, r, sigma, K, n.
var PriceOptionArgs = []accel.ArgKind{
	accel.ArgOutput,
	accel.ArgFloat32,
	accel.ArgFloat32,
	accel.ArgFloat32,
	accel.ArgFloat32,
	accel.ArgFloat32,
	accel.ArgInt32,
}

// NewPriceOption returns the host implementation of price_option. Lane gid
// draws from a PCG stream keyed by (seed, gid), so results do not depend on
// how lanes are scheduled.
func NewPriceOption(seed uint64) accel.HostKernel {
	return accel.HostKernel{
		Args: PriceOptionArgs,
		Run: func(lo, hi int, args []any) error {
			out := accel.Float32s(args[0].([]byte))
			if hi > len(out) {
				return fmt.Errorf("price_option: lane %d outside %d-element buffer", hi-1, len(out))
			}

			p := Lane{
				S0:    args[1].(float32),
				T:     args[2].(float32),
				R:     args[3].(float32),
				Sigma: args[4].(float32),
				K:     args[5].(float32),
			}
			n := int(args[6].(int32))

			for gid := lo; gid < hi; gid++ {
				out[gid] = p.Simulate(seed, uint64(gid), n)
			}
			return nil
		},
	}
}

// Lane holds the option parameters seen by one work-item.
type Lane struct {
	S0, T, R, Sigma, K float32
}

// Simulate prices n paths on stream (seed, gid) and returns the discounted
// mean payoff. n <= 0 yields 0.
func (l Lane) Simulate(seed, gid uint64, n int) float32 {
	if n <= 0 {
		return 0
	}

	rng := rand.New(rand.NewPCG(seed, gid))

	s0 := float64(l.S0)
	k := float64(l.K)
	t := float64(l.T)
	r := float64(l.R)
	sigma := float64(l.Sigma)

	drift := (r - 0.5*sigma*sigma) * t
	vol := sigma * math.Sqrt(t)

	var sum float64
	for range n {
		st := s0 * math.Exp(drift+vol*rng.NormFloat64())
		if st > k {
			sum += st - k
		}
	}

	return float32(math.Exp(-r*t) * sum / float64(n))
}
