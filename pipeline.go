package mcprice

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-mcprice/accel"
)

// Pipeline runs one pricing: load source, acquire the device, build,
// dispatch, reduce.
type Pipeline struct {
	Backend     accel.Backend
	DeviceIndex int

	// SourcePath is read when Source is nil.
	SourcePath string
	Source     *Source

	Build        BuildOptions
	Params       Params
	TotalSamples int64

	Logger *zap.Logger
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    uuid.UUID
	Backend  accel.BackendInfo
	Device   accel.DeviceInfo
	Sizing   Sizing
	BuildLog string

	// Price is the mean of the lane estimates.
	Price   float64
	Summary Summary

	// Reference is the closed-form Black-Scholes price.
	Reference float64

	Elapsed time.Duration
}

// Run executes the pipeline. The source is loaded before the backend is
// touched; every acquired resource is released before Run returns.
func (p *Pipeline) Run() (res *Result, err error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	runID := uuid.New()
	log = log.With(zap.String("run_id", runID.String()))
	start := time.Now()

	src := p.Source
	if src == nil {
		src, err = LoadSource(p.SourcePath)
		if err != nil {
			return nil, err
		}
	}
	log.Debug("source loaded", zap.String("path", src.Path), zap.Int("bytes", src.Len()))

	if err := p.Params.Validate(); err != nil {
		return nil, check(err, CodeInvalidParameters, "invalid simulation parameters")
	}

	total := p.TotalSamples
	if total == 0 {
		total = DefaultTotalSamples
	}

	env, err := AcquireEnvironment(p.Backend, p.DeviceIndex)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, env.Close())
	}()
	log.Debug("environment acquired",
		zap.String("backend", env.Backend.Name),
		zap.String("device", env.Device.Name),
		zap.Int("max_workgroup_size", env.Device.MaxWorkGroupSize))

	prog, err := Build(env, src, p.Build)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, prog.Close())
	}()
	log.Debug("program built", zap.String("entry_point", prog.EntryPoint))

	out, err := dispatch(env, prog, p.Params, total, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, out.Release())
	}()

	price, err := out.Mean()
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:     runID,
		Backend:   env.Backend,
		Device:    env.Device,
		Sizing:    out.Sizing,
		BuildLog:  prog.BuildLog,
		Price:     price,
		Summary:   Summarize(out.Values()),
		Reference: BlackScholesCall(p.Params),
		Elapsed:   time.Since(start),
	}

	log.Info("run complete",
		zap.Float64("price", res.Price),
		zap.Float64("reference", res.Reference),
		zap.Float64("stderr", res.Summary.StdErr),
		zap.Int64("samples", out.Sizing.SimulatedSamples()),
		zap.Duration("elapsed", res.Elapsed))

	return res, nil
}
