package main

import (
	"flag"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"time"

	mcprice "github.com/cwbudde/algo-mcprice"
	"github.com/cwbudde/algo-mcprice/accel"
	"github.com/cwbudde/algo-mcprice/internal/cpu"
	"github.com/cwbudde/algo-mcprice/internal/kernels"
)

type benchResult struct {
	workgroup int
	workers   int
	nsPerOp   float64
	price     float64
	stderr    float64
}

func main() {
	var (
		sizeList   = flag.String("sizes", "64,128,256,512", "comma-separated host work-group sizes")
		workerList = flag.String("workers", "", "comma-separated worker counts (default: GOMAXPROCS)")
		samples    = flag.Int64("samples", 1<<24, "total sample target per run")
		iters      = flag.Int("iters", 5, "benchmark iterations")
		warmup     = flag.Int("warmup", 1, "warmup iterations")
		seed       = flag.Uint64("seed", kernels.DefaultSeed, "rng seed")
	)
	flag.Parse()

	sizes := parseSizes(*sizeList)
	if len(sizes) == 0 {
		fmt.Println("no sizes specified")
		return
	}

	workers := parseSizes(*workerList)
	if len(workers) == 0 {
		workers = []int{runtime.GOMAXPROCS(0)}
	}

	params := mcprice.DefaultParams()
	reference := mcprice.BlackScholesCall(params)

	fmt.Printf("cpu=%s samples=%d iters=%d warmup=%d\n", cpu.DetectFeatures(), *samples, *iters, *warmup)
	fmt.Printf("Black-Scholes reference %.6g\n", reference)
	fmt.Printf("%6s  %7s  %14s  %10s  %10s  %10s\n", "wg", "workers", "ns/op", "price", "error", "stderr")

	var results []benchResult

	for _, w := range sizes {
		for _, n := range workers {
			res, err := benchmarkSize(params, *samples, w, n, *seed, *iters, *warmup)
			if err != nil {
				fmt.Printf("%6d  %7d  error: %v\n", w, n, err)
				continue
			}

			fmt.Printf("%6d  %7d  %14.0f  %10.4f  %10.4f  %10.4f\n",
				res.workgroup, res.workers, res.nsPerOp, res.price, math.Abs(res.price-reference), res.stderr)
			results = append(results, res)
		}
	}

	if len(results) == 0 {
		return
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].nsPerOp < results[j].nsPerOp
	})
	best := results[0]
	fmt.Printf("\nfastest: wg=%d workers=%d (%.2f ms/run)\n", best.workgroup, best.workers, best.nsPerOp/1e6)
}

func benchmarkSize(params mcprice.Params, samples int64, w, workers int, seed uint64, iters, warmup int) (benchResult, error) {
	backend := accel.NewHostBackend(accel.HostOptions{
		MaxWorkGroupSize: w,
		Workers:          workers,
		Kernels: map[string]accel.HostKernel{
			kernels.EntryPoint: kernels.NewPriceOption(seed),
		},
	})

	p := &mcprice.Pipeline{
		Backend:      backend,
		Source:       mcprice.NewSource("embedded:"+kernels.EntryPoint, kernels.OpenCLSource()),
		Params:       params,
		TotalSamples: samples,
	}

	for range warmup {
		if _, err := p.Run(); err != nil {
			return benchResult{}, err
		}
	}

	runtime.GC()

	var last *mcprice.Result
	start := time.Now()

	for range iters {
		res, err := p.Run()
		if err != nil {
			return benchResult{}, err
		}
		last = res
	}

	elapsed := time.Since(start)

	out := benchResult{
		workgroup: w,
		workers:   workers,
		nsPerOp:   float64(elapsed.Nanoseconds()) / float64(max(iters, 1)),
	}
	if last != nil {
		out.price = last.Price
		out.stderr = last.Summary.StdErr
	}
	return out, nil
}

func parseSizes(list string) []int {
	parts := strings.Split(list, ",")

	out := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var n int

		_, err := fmt.Sscanf(part, "%d", &n)
		if err != nil || n <= 0 {
			continue
		}

		out = append(out, n)
	}

	return out
}
