// Command mcprice prices a European call option by Monte-Carlo simulation on
// a compute device.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	mcprice "github.com/cwbudde/algo-mcprice"
	"github.com/cwbudde/algo-mcprice/internal/config"
	"github.com/cwbudde/algo-mcprice/internal/logging"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and converts the outcome to an exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	return mcprice.Report(stdout, stderr, cmd.Execute())
}

// cli holds the state shared by the subcommands of one invocation.
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "mcprice",
		Short: "Monte-Carlo European option pricing on a compute device",
		Long: `mcprice dispatches the price_option kernel onto a compute device,
one lane per work-group slot, and averages the per-lane estimates.

Settings come from mcprice.yaml (or --config), MCPRICE_* environment
variables and flags, in increasing priority.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", config.DefaultPath, "config file")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	pf.String("backend", "", "compute backend (host, opencl, webgpu)")
	pf.Int("device", 0, "device index within the backend")
	pf.Float32("s0", 0, "initial price")
	pf.Float32("maturity", 0, "time to maturity in years")
	pf.Float32("rate", 0, "risk-free rate")
	pf.Float32("volatility", 0, "volatility")
	pf.Float32("strike", 0, "strike price")

	root.AddCommand(newRunCmd(c), newDevicesCmd(c), newReferenceCmd(c))
	return root
}

// setup loads the config, applies changed flags and builds the logger.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("device") {
		cfg.DeviceIndex, _ = flags.GetInt("device")
	}

	sim := &cfg.Simulation
	for name, dst := range map[string]*float32{
		"s0":         &sim.InitialPrice,
		"maturity":   &sim.Maturity,
		"rate":       &sim.Rate,
		"volatility": &sim.Volatility,
		"strike":     &sim.Strike,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetFloat32(name)
		}
	}

	if flags.Changed("samples") {
		cfg.Simulation.TotalSamples, _ = flags.GetInt64("samples")
	}
	if flags.Changed("kernel") {
		cfg.Kernel.Path, _ = flags.GetString("kernel")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg := cfg.LoggingOptions()
	if c.verbose {
		logCfg.Level = zapcore.DebugLevel.String()
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}

// params returns the configured option parameters.
func (c *cli) params() mcprice.Params {
	s := c.cfg.Simulation
	return mcprice.Params{
		InitialPrice: s.InitialPrice,
		Maturity:     s.Maturity,
		Rate:         s.Rate,
		Volatility:   s.Volatility,
		Strike:       s.Strike,
	}
}
