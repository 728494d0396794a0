package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcprice "github.com/cwbudde/algo-mcprice"
	"github.com/cwbudde/algo-mcprice/accel"
	"github.com/cwbudde/algo-mcprice/internal/kernels"
)

func newRunCmd(c *cli) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Price the option on the selected device",
		Long: `Loads the kernel, builds it for the selected device, launches one lane
per work-group slot and prints the averaged estimate.

Without --kernel the embedded price_option source for the backend is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.pipeline(cmd.Flags())
			if err != nil {
				return err
			}

			res, err := p.Run()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary {
				fmt.Fprintf(out, "device: %s (%s)\n", res.Device.Name, res.Backend.Name)
				fmt.Fprintf(out, "lanes: %d x %d samples\n", res.Sizing.WorkgroupSize, res.Sizing.LaneCount)
				fmt.Fprintf(out, "standard error: %.6g\n", res.Summary.StdErr)
				fmt.Fprintf(out, "Black-Scholes reference: %.6g\n", res.Reference)
				fmt.Fprintf(out, "elapsed: %s\n", res.Elapsed)
			}
			fmt.Fprintln(out, mcprice.FormatPrice(res.Price))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("kernel", "", "kernel source file (default: embedded source)")
	f.Int64("samples", 0, "total sample target split across lanes")
	f.String("entry-point", "", "kernel entry point")
	f.String("build-options", "", "device compiler options")
	f.Int("workgroup-size", 0, "host backend work-group size")
	f.Int("workers", 0, "host backend worker goroutines")
	f.Uint64("seed", 0, "host backend random seed")
	f.BoolVar(&summary, "summary", false, "print run statistics before the estimate")

	return cmd
}

type flagSet interface {
	Changed(name string) bool
	GetString(name string) (string, error)
	GetInt(name string) (int, error)
	GetUint64(name string) (uint64, error)
}

// pipeline assembles a mcprice.Pipeline from the config and run flags.
func (c *cli) pipeline(flags flagSet) (*mcprice.Pipeline, error) {
	cfg := c.cfg

	if flags.Changed("entry-point") {
		cfg.Kernel.EntryPoint, _ = flags.GetString("entry-point")
	}
	if flags.Changed("build-options") {
		cfg.Kernel.BuildOptions, _ = flags.GetString("build-options")
	}
	if flags.Changed("workgroup-size") {
		cfg.Host.WorkgroupSize, _ = flags.GetInt("workgroup-size")
	}
	if flags.Changed("workers") {
		cfg.Host.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("seed") {
		cfg.Host.Seed, _ = flags.GetUint64("seed")
	}

	backend, err := c.backend()
	if err != nil {
		return nil, err
	}

	p := &mcprice.Pipeline{
		Backend:     backend,
		DeviceIndex: cfg.DeviceIndex,
		SourcePath:  cfg.Kernel.Path,
		Build: mcprice.BuildOptions{
			EntryPoint: cfg.Kernel.EntryPoint,
			Flags:      cfg.Kernel.BuildOptions,
		},
		Params:       c.params(),
		TotalSamples: cfg.Simulation.TotalSamples,
		Logger:       c.logger,
	}

	if cfg.Kernel.Path == "" {
		text, ok := kernels.SourceFor(cfg.Backend)
		if !ok {
			return nil, fmt.Errorf("no embedded kernel for backend %q; pass --kernel", cfg.Backend)
		}
		p.Source = mcprice.NewSource("embedded:"+kernels.EntryPoint, text)
	}

	c.logger.Debug("pipeline configured",
		zap.String("backend", cfg.Backend),
		zap.String("kernel", cfg.Kernel.Path),
		zap.Int64("total_samples", cfg.Simulation.TotalSamples))

	return p, nil
}

// backend resolves the configured backend. The host backend is built from
// the host section so its work-group size, workers and seed apply.
func (c *cli) backend() (accel.Backend, error) {
	if c.cfg.Backend != "host" {
		b, err := accel.Lookup(c.cfg.Backend)
		if err != nil {
			return nil, fmt.Errorf("%w: %q (registered: %v)", err, c.cfg.Backend, accel.Names())
		}
		return b, nil
	}

	h := c.cfg.Host
	return accel.NewHostBackend(accel.HostOptions{
		MaxWorkGroupSize: h.WorkgroupSize,
		Workers:          h.Workers,
		Kernels: map[string]accel.HostKernel{
			kernels.EntryPoint: kernels.NewPriceOption(h.Seed),
		},
	}), nil
}
