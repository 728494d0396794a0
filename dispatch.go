package mcprice

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-mcprice/accel"
	"github.com/cwbudde/algo-mcprice/internal/hostmem"
)

// OutputFlags are the flags of the result buffer: device-written, backed by
// the host block.
const OutputFlags = accel.MemWriteOnly | accel.MemUseHostPtr

// ResultBuffer holds per-lane results after the device finished writing
// them. Release frees the device buffer and the host block.
type ResultBuffer struct {
	Sizing Sizing

	block  *hostmem.Block
	buffer accel.Buffer
}

// Values returns exactly WorkgroupSize lane results, excluding padding.
// It returns nil after Release.
func (r *ResultBuffer) Values() []float32 {
	p := r.Padded()
	if p == nil {
		return nil
	}
	return p[:r.Sizing.WorkgroupSize]
}

// Padded returns the whole device buffer as elements, padding included.
func (r *ResultBuffer) Padded() []float32 {
	if r == nil || r.block == nil {
		return nil
	}
	return r.block.Float32s()[:r.Sizing.PaddedLen]
}

// Addr returns the host block address.
func (r *ResultBuffer) Addr() uintptr {
	if r == nil {
		return 0
	}
	return r.block.Addr()
}

// Mean reduces the lane results.
func (r *ResultBuffer) Mean() (float64, error) {
	if r == nil || r.block == nil {
		return 0, ErrReleased
	}
	return ReduceMean(r.Values(), r.Sizing.WorkgroupSize)
}

// Release frees the device buffer, then the host block. It is idempotent.
func (r *ResultBuffer) Release() error {
	if r == nil {
		return nil
	}

	var errs []error
	if r.buffer != nil {
		errs = append(errs, r.buffer.Close())
		r.buffer = nil
	}
	if r.block != nil {
		errs = append(errs, r.block.Free())
		r.block = nil
	}
	return errors.Join(errs...)
}

// Dispatch launches one lane per work-group slot and reads the results back
// into a page-aligned host block shared with the device buffer. It returns
// only after the queue drained.
func Dispatch(env *Environment, prog *CompiledProgram, params Params, totalSamples int64) (*ResultBuffer, error) {
	return dispatch(env, prog, params, totalSamples, zap.NewNop())
}

func dispatch(env *Environment, prog *CompiledProgram, params Params, totalSamples int64, log *zap.Logger) (*ResultBuffer, error) {
	w, err := prog.Kernel.WorkGroupSize()
	if err != nil {
		return nil, check(err, CodeWorkgroupQueryFailed, "could not get kernel workgroup size")
	}

	sz, err := NewSizing(totalSamples, w)
	if err != nil {
		return nil, err
	}
	log.Debug("dispatch sized",
		zap.Int("workgroup_size", sz.WorkgroupSize),
		zap.Int64("lane_count", sz.LaneCount),
		zap.Int("padded_len", sz.PaddedLen),
		zap.Int("alloc_bytes", sz.AllocBytes))

	block, err := hostmem.Alloc(sz.AllocBytes, BufferAlign)
	if err != nil {
		return nil, check(errors.Join(accel.ErrOutOfHostMemory, err), CodeAllocationFailed, "could not create output buffer")
	}
	if err := checkAllocation(block.Bytes(), "could not create output buffer"); err != nil {
		return nil, err
	}

	res := &ResultBuffer{Sizing: sz, block: block}
	host := block.Bytes()[:sz.BufferBytes]

	res.buffer, err = env.Context.NewHostBuffer(OutputFlags, host)
	if err != nil {
		_ = res.Release()
		return nil, check(err, CodeBufferCreationFailed, "could not create buffer of %d bytes", sz.BufferBytes)
	}

	if err := bindArgs(prog.Kernel, res.buffer, params, int32(sz.LaneCount)); err != nil {
		_ = res.Release()
		return nil, err
	}

	if err := env.Queue.EnqueueKernel(prog.Kernel, w); err != nil {
		_ = res.Release()
		return nil, check(err, CodeEnqueueFailed, "could not enqueue kernel %q", prog.EntryPoint)
	}

	if err := env.Queue.EnqueueReadBuffer(res.buffer, true, host); err != nil {
		_ = res.Release()
		return nil, check(err, CodeReadbackFailed, "could not read back %d bytes", sz.BufferBytes)
	}

	log.Debug("dispatch drained",
		zap.Uintptr("host_addr", block.Addr()),
		zap.Bool("mapped", block.Mapped()))

	return res, nil
}

// bindArgs binds out, S0, T, r, sigma, K, n in that order.
func bindArgs(k accel.Kernel, out accel.Buffer, params Params, n int32) error {
	if err := k.SetArg(0, out); err != nil {
		return check(err, CodeArgumentBindFailed, "could not set kernel argument 0")
	}

	for i, v := range params.Args() {
		if err := k.SetArg(i+1, v); err != nil {
			return check(err, CodeArgumentBindFailed, "could not set kernel argument %d", i+1)
		}
	}

	if err := k.SetArg(6, n); err != nil {
		return check(err, CodeArgumentBindFailed, "could not set kernel argument 6")
	}
	return nil
}
