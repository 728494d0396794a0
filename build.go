package mcprice

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-mcprice/accel"
)

// DefaultEntryPoint is the kernel function Build resolves by default.
const DefaultEntryPoint = "price_option"

// BuildOptions control program compilation.
type BuildOptions struct {
	// EntryPoint names the kernel to resolve (default "price_option").
	EntryPoint string

	// Flags are passed to the device compiler unchanged.
	Flags string
}

// CompiledProgram is a built program and its resolved entry point. It is
// only valid with the Environment that built it.
type CompiledProgram struct {
	Program    accel.Program
	Kernel     accel.Kernel
	EntryPoint string
	BuildLog   string
}

// Close releases the kernel and the program.
func (p *CompiledProgram) Close() error {
	if p == nil {
		return nil
	}

	var errs []error
	if p.Kernel != nil {
		errs = append(errs, p.Kernel.Close())
		p.Kernel = nil
	}
	if p.Program != nil {
		errs = append(errs, p.Program.Close())
		p.Program = nil
	}
	return errors.Join(errs...)
}

// Build compiles src for the environment's device and resolves the entry
// point. A failed build carries the compiler log, or a notice explaining why
// the log is missing.
func Build(env *Environment, src *Source, opts BuildOptions) (*CompiledProgram, error) {
	if opts.EntryPoint == "" {
		opts.EntryPoint = DefaultEntryPoint
	}

	prog, err := env.Context.NewProgram(src.Text())
	if err != nil {
		return nil, check(err, CodeBuildFailed, "could not create program from %q", src.Path)
	}

	if err := prog.Build(opts.Flags); err != nil {
		e := &Error{
			Code:   CodeBuildFailed,
			Msg:    fmt.Sprintf("could not build program %q", src.Path),
			Status: err,
		}
		e.BuildLog, e.Notice = buildLog(prog)
		_ = prog.Close()
		return nil, e
	}

	log, _ := prog.BuildLog()

	k, err := prog.Kernel(opts.EntryPoint)
	if err != nil {
		_ = prog.Close()
		return nil, check(err, CodeKernelResolutionFailed, "could not construct kernel %q", opts.EntryPoint)
	}

	return &CompiledProgram{
		Program:    prog,
		Kernel:     k,
		EntryPoint: opts.EntryPoint,
		BuildLog:   log,
	}, nil
}

// buildLog retrieves the log of a failed build, or a notice when it cannot.
func buildLog(prog accel.Program) (log, notice string) {
	log, err := prog.BuildLog()
	switch {
	case err == nil:
		return log, ""
	case errors.Is(err, accel.ErrOutOfHostMemory):
		return "", "Out of memory."
	default:
		return "", fmt.Sprintf("Build log unavailable: %v", err)
	}
}
