package accel

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-mcprice/internal/cpu"
)

// DefaultHostWorkGroupSize is the work-group size the host device reports
// when HostOptions.MaxWorkGroupSize is unset.
const DefaultHostWorkGroupSize = 256

// HostKernel is a kernel implemented in Go for the host backend.
type HostKernel struct {
	// Args lists the parameter kinds in positional order. A program that
	// declares the kernel with a different parameter count fails to resolve it.
	Args []ArgKind

	// WorkGroupSize is the kernel's preferred work-group size. Zero, or a value
	// above the device maximum, reports the device maximum.
	WorkGroupSize int

	// Run executes work-items [lo, hi). Buffer arguments arrive as []byte views
	// of the buffer storage, scalars as float32 or int32. Run is called
	// concurrently for disjoint ranges.
	Run func(lo, hi int, args []any) error
}

var (
	hostKernelsMu sync.RWMutex
	hostKernels   = map[string]HostKernel{}
)

// RegisterHostKernel makes a Go kernel available to host backends created
// without an explicit kernel table.
func RegisterHostKernel(name string, k HostKernel) {
	hostKernelsMu.Lock()
	hostKernels[name] = k
	hostKernelsMu.Unlock()
}

func registeredHostKernels() map[string]HostKernel {
	hostKernelsMu.RLock()
	defer hostKernelsMu.RUnlock()

	out := make(map[string]HostKernel, len(hostKernels))
	for name, k := range hostKernels {
		out[name] = k
	}
	return out
}

// HostOptions configures a HostBackend.
type HostOptions struct {
	// MaxWorkGroupSize is the device work-group limit (default 256).
	MaxWorkGroupSize int

	// Workers bounds the goroutines executing one launch (default GOMAXPROCS).
	Workers int

	// Kernels maps entry points to Go implementations. Nil uses the kernels
	// registered with RegisterHostKernel.
	Kernels map[string]HostKernel
}

// HostBackend executes kernels on the CPU. Source text is checked for
// well-formed delimiters and scanned for kernel declarations, and each
// declared entry point resolves to a registered Go implementation.
type HostBackend struct {
	opts   HostOptions
	device DeviceInfo
}

// NewHostBackend returns a host backend with a single device.
func NewHostBackend(opts HostOptions) *HostBackend {
	if opts.MaxWorkGroupSize <= 0 {
		opts.MaxWorkGroupSize = DefaultHostWorkGroupSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Kernels == nil {
		opts.Kernels = registeredHostKernels()
	}

	return &HostBackend{
		opts: opts,
		device: DeviceInfo{
			Name:             "host",
			Vendor:           "algo-mcprice",
			Driver:           runtime.Version(),
			ComputeCap:       cpu.DetectFeatures().String(),
			ComputeUnits:     opts.Workers,
			MaxWorkGroupSize: opts.MaxWorkGroupSize,
		},
	}
}

func init() {
	Register("host", func() Backend { return NewHostBackend(HostOptions{}) })
}

func (b *HostBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "host",
		Version:     "1.0",
		Description: "CPU backend executing Go kernels",
	}
}

func (b *HostBackend) Available() bool {
	return true
}

func (b *HostBackend) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{b.device}, nil
}

// Kernels lists the entry points the backend can resolve.
func (b *HostBackend) Kernels() []string {
	names := make([]string, 0, len(b.opts.Kernels))
	for name := range b.opts.Kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *HostBackend) NewContext(deviceIndex int) (Context, error) {
	if deviceIndex != 0 {
		return nil, fmt.Errorf("%w: host backend has one device, got index %d", ErrDeviceNotFound, deviceIndex)
	}
	return &hostContext{backend: b}, nil
}

type hostContext struct {
	backend *HostBackend
	closed  bool
}

func (c *hostContext) Device() DeviceInfo {
	return c.backend.device
}

func (c *hostContext) NewQueue() (Queue, error) {
	if c.closed {
		return nil, ErrClosed
	}
	return &hostQueue{ctx: c}, nil
}

func (c *hostContext) NewProgram(source string) (Program, error) {
	if c.closed {
		return nil, ErrClosed
	}
	return &hostProgram{ctx: c, source: source}, nil
}

func (c *hostContext) NewHostBuffer(flags MemFlags, host []byte) (Buffer, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	if len(host) == 0 {
		return nil, ErrInvalidHostPtr
	}

	mem := host
	if flags&MemUseHostPtr == 0 {
		mem = make([]byte, len(host))
		if flags&MemCopyHostPtr != 0 {
			copy(mem, host)
		}
	}

	return &hostBuffer{ctx: c, flags: flags, mem: mem}, nil
}

func (c *hostContext) Close() error {
	c.closed = true
	return nil
}

type hostProgram struct {
	ctx     *hostContext
	source  string
	built   bool
	tried   bool
	log     string
	kernels map[string]int
}

func (p *hostProgram) Build(_ string) error {
	if p.ctx.closed {
		return ErrClosed
	}

	unit := scanSource(p.source)
	p.tried = true
	p.log = strings.Join(unit.diags, "\n")

	if len(unit.diags) > 0 {
		p.built = false
		return fmt.Errorf("%w: %d error(s) generated", ErrBuildProgramFailure, len(unit.diags))
	}

	p.built = true
	p.kernels = unit.kernels
	return nil
}

func (p *hostProgram) BuildLog() (string, error) {
	if !p.tried {
		return "", ErrProgramNotBuilt
	}
	return p.log, nil
}

func (p *hostProgram) Kernel(name string) (Kernel, error) {
	if !p.built {
		return nil, ErrProgramNotBuilt
	}

	params, declared := p.kernels[name]
	if !declared {
		return nil, fmt.Errorf("%w: %q is not declared by the program", ErrInvalidKernelName, name)
	}

	impl, ok := p.ctx.backend.opts.Kernels[name]
	if !ok || impl.Run == nil {
		return nil, fmt.Errorf("%w: no host implementation for %q", ErrInvalidKernelName, name)
	}

	if params != len(impl.Args) {
		return nil, fmt.Errorf("%w: %q declares %d parameters, implementation takes %d",
			ErrInvalidKernelDefinition, name, params, len(impl.Args))
	}

	return &hostKernel{
		ctx:  p.ctx,
		name: name,
		impl: impl,
		args: make([]any, len(impl.Args)),
		set:  make([]bool, len(impl.Args)),
	}, nil
}

func (p *hostProgram) Close() error {
	p.built = false
	p.kernels = nil
	return nil
}

type hostKernel struct {
	ctx    *hostContext
	name   string
	impl   HostKernel
	args   []any
	set    []bool
	closed bool
}

func (k *hostKernel) Name() string {
	return k.name
}

func (k *hostKernel) WorkGroupSize() (int, error) {
	if k.closed {
		return 0, ErrClosed
	}

	limit := k.ctx.backend.opts.MaxWorkGroupSize
	if pref := k.impl.WorkGroupSize; pref > 0 && pref < limit {
		return pref, nil
	}
	return limit, nil
}

func (k *hostKernel) SetArg(index int, value any) error {
	if k.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(k.impl.Args) {
		return fmt.Errorf("%w: %d (kernel %q takes %d)", ErrInvalidArgIndex, index, k.name, len(k.impl.Args))
	}

	kind := k.impl.Args[index]
	switch kind {
	case ArgOutput, ArgInput:
		buf, ok := value.(Buffer)
		if !ok {
			return fmt.Errorf("%w: argument %d wants %s, got %T", ErrInvalidArgValue, index, kind, value)
		}
		hb, ok := buf.(*hostBuffer)
		if !ok || hb.ctx != k.ctx || hb.closed {
			return fmt.Errorf("%w: argument %d", ErrInvalidMemObject, index)
		}
	case ArgFloat32:
		if _, ok := value.(float32); !ok {
			return fmt.Errorf("%w: argument %d wants %s, got %T", ErrInvalidArgValue, index, kind, value)
		}
	case ArgInt32:
		if _, ok := value.(int32); !ok {
			return fmt.Errorf("%w: argument %d wants %s, got %T", ErrInvalidArgValue, index, kind, value)
		}
	}

	k.args[index] = value
	k.set[index] = true
	return nil
}

func (k *hostKernel) Close() error {
	k.closed = true
	return nil
}

type hostBuffer struct {
	ctx    *hostContext
	flags  MemFlags
	mem    []byte
	closed bool
}

func (b *hostBuffer) Size() int {
	return len(b.mem)
}

func (b *hostBuffer) Flags() MemFlags {
	return b.flags
}

func (b *hostBuffer) Close() error {
	b.closed = true
	b.mem = nil
	return nil
}

// hostQueue records commands and runs them in order when drained.
type hostQueue struct {
	ctx     *hostContext
	pending []func() error
	closed  bool
}

func (q *hostQueue) EnqueueKernel(k Kernel, globalSize int) error {
	if q.closed {
		return ErrClosed
	}

	hk, ok := k.(*hostKernel)
	if !ok || hk.ctx != q.ctx || hk.closed {
		return fmt.Errorf("%w: kernel does not belong to this context", ErrInvalidValue)
	}
	if globalSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkSize, globalSize)
	}

	bufs := make([]*hostBuffer, len(hk.args))
	args := make([]any, len(hk.args))
	for i, kind := range hk.impl.Args {
		if !hk.set[i] {
			return fmt.Errorf("%w: argument %d of %q", ErrInvalidKernelArgs, i, hk.name)
		}
		if kind.IsBuffer() {
			hb := hk.args[i].(*hostBuffer)
			if kind == ArgOutput && !hb.flags.DeviceWritable() {
				return fmt.Errorf("%w: argument %d has flags %s", ErrReadOnlyBuffer, i, hb.flags)
			}
			bufs[i] = hb
			continue
		}
		args[i] = hk.args[i]
	}

	run := hk.impl.Run
	workers := q.ctx.backend.opts.Workers

	q.pending = append(q.pending, func() error {
		for i, hb := range bufs {
			if hb == nil {
				continue
			}
			if hb.closed {
				return fmt.Errorf("%w: argument %d released before execution", ErrInvalidMemObject, i)
			}
			args[i] = hb.mem
		}
		return runRange(globalSize, workers, func(lo, hi int) error {
			return run(lo, hi, args)
		})
	})

	return nil
}

// runRange splits [0, n) into contiguous chunks executed on at most workers goroutines.
func runRange(n, workers int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)

	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			return fn(lo, hi)
		})
	}

	return g.Wait()
}

func (q *hostQueue) EnqueueReadBuffer(b Buffer, blocking bool, dst []byte) error {
	if q.closed {
		return ErrClosed
	}

	hb, ok := b.(*hostBuffer)
	if !ok || hb.ctx != q.ctx || hb.closed {
		return ErrInvalidMemObject
	}
	if len(dst) > len(hb.mem) {
		return fmt.Errorf("%w: read of %d bytes from %d-byte buffer", ErrInvalidValue, len(dst), len(hb.mem))
	}

	q.pending = append(q.pending, func() error {
		if hb.closed {
			return ErrInvalidMemObject
		}
		if len(dst) > 0 && &dst[0] == &hb.mem[0] {
			return nil
		}
		copy(dst, hb.mem)
		return nil
	})

	if blocking {
		return q.Finish()
	}
	return nil
}

func (q *hostQueue) Finish() error {
	cmds := q.pending
	q.pending = nil

	for _, cmd := range cmds {
		if err := cmd(); err != nil {
			return err
		}
	}
	return nil
}

func (q *hostQueue) Close() error {
	if q.closed {
		return nil
	}
	err := q.Finish()
	q.closed = true
	return err
}

// Float32s views a buffer argument passed to a HostKernel as float32 elements.
func Float32s(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}
