package kernels

import (
	"math"
	"strings"
	"testing"

	"github.com/cwbudde/algo-mcprice/accel"
)

func TestSourcesDeclareEntryPoint(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"host", "opencl", "webgpu"} {
		src, ok := SourceFor(backend)
		if !ok {
			t.Fatalf("no source for %q", backend)
		}
		if !strings.Contains(src, EntryPoint+"(") {
			t.Fatalf("%s source does not declare %s", backend, EntryPoint)
		}
	}

	if _, ok := SourceFor("cuda"); ok {
		t.Fatal("unexpected source for cuda")
	}
}

func TestSimulateZeroSamples(t *testing.T) {
	t.Parallel()

	l := Lane{S0: 100, T: 5, R: 0.05, Sigma: 0.2, K: 70}
	if got := l.Simulate(DefaultSeed, 3, 0); got != 0 {
		t.Fatalf("Simulate(n=0) = %v, want 0", got)
	}
}

func TestSimulateDeterministic(t *testing.T) {
	t.Parallel()

	l := Lane{S0: 100, T: 5, R: 0.05, Sigma: 0.2, K: 70}
	a := l.Simulate(7, 11, 500)
	b := l.Simulate(7, 11, 500)
	if a != b {
		t.Fatalf("same stream gave %v and %v", a, b)
	}
	if c := l.Simulate(7, 12, 500); c == a {
		t.Fatalf("lanes 11 and 12 produced identical estimates %v", a)
	}
}

func TestSimulateDeepOutOfTheMoney(t *testing.T) {
	t.Parallel()

	l := Lane{S0: 1, T: 0.01, R: 0, Sigma: 0.01, K: 1000}
	if got := l.Simulate(1, 0, 1000); got != 0 {
		t.Fatalf("payoff = %v, want 0", got)
	}
}

func TestPriceOptionOnHostBackend(t *testing.T) {
	t.Parallel()

	const lanes = 256
	const perLane = 2000

	b := accel.NewHostBackend(accel.HostOptions{
		MaxWorkGroupSize: lanes,
		Workers:          4,
		Kernels:          map[string]accel.HostKernel{EntryPoint: NewPriceOption(DefaultSeed)},
	})
	ctx, err := b.NewContext(0)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	q, err := ctx.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer q.Close()

	prog, err := ctx.NewProgram(OpenCLSource())
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	if err := prog.Build(""); err != nil {
		log, _ := prog.BuildLog()
		t.Fatalf("Build: %v\n%s", err, log)
	}
	k, err := prog.Kernel(EntryPoint)
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}

	host := make([]byte, lanes*4)
	buf, err := ctx.NewHostBuffer(accel.MemWriteOnly|accel.MemUseHostPtr, host)
	if err != nil {
		t.Fatalf("NewHostBuffer: %v", err)
	}
	defer buf.Close()

	args := []any{buf, float32(100), float32(5), float32(0.05), float32(0.2), float32(70), int32(perLane)}
	for i, a := range args {
		if err := k.SetArg(i, a); err != nil {
			t.Fatalf("SetArg(%d): %v", i, err)
		}
	}

	if err := q.EnqueueKernel(k, lanes); err != nil {
		t.Fatalf("EnqueueKernel: %v", err)
	}
	if err := q.EnqueueReadBuffer(buf, true, host); err != nil {
		t.Fatalf("EnqueueReadBuffer: %v", err)
	}

	var sum float64
	for _, v := range accel.Float32s(host) {
		sum += float64(v)
	}
	mean := sum / lanes

	// Closed-form price for these parameters is 46.79.
	if math.Abs(mean-46.79) > 0.5 {
		t.Fatalf("mean price = %.4f, want 46.79 +/- 0.5", mean)
	}
}

func TestPriceOptionRejectsShortBuffer(t *testing.T) {
	t.Parallel()

	k := NewPriceOption(DefaultSeed)
	args := []any{make([]byte, 8), float32(100), float32(5), float32(0.05), float32(0.2), float32(70), int32(1)}
	if err := k.Run(0, 3, args); err == nil {
		t.Fatal("expected error for lanes beyond the buffer")
	}
}
