package mcprice

import (
	"sync"

	"github.com/cwbudde/algo-mcprice/accel"
	"github.com/cwbudde/algo-mcprice/internal/kernels"
)

// faults selects which backend call fails. The zero value fails nothing.
type faults struct {
	unavailable bool
	devicesErr  error
	noDevices   bool
	contextErr  error
	queueErr    error
	programErr  error
	buildErr    error
	logErr      error
	kernelErr   error
	wgErr       error
	wg          int // overrides the reported size; negative reports zero
	bufferErr   error
	argErr      error
	argIndex    int // argument that fails with argErr
	enqueueErr  error
	readErr     error
}

// recorder captures what the pipeline handed to the device.
type recorder struct {
	mu         sync.Mutex
	calls      int
	flags      accel.MemFlags
	hostLen    int
	args       map[int]any
	globalSize int
	blocking   bool
	closed     []string
}

func (r *recorder) hit() {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

func (r *recorder) close(what string) {
	r.mu.Lock()
	r.closed = append(r.closed, what)
	r.mu.Unlock()
}

// laneKernel writes gid+1 to every lane so reductions are predictable.
var laneKernel = accel.HostKernel{
	Args: kernels.PriceOptionArgs,
	Run: func(lo, hi int, args []any) error {
		out := accel.Float32s(args[0].([]byte))
		for gid := lo; gid < hi; gid++ {
			out[gid] = float32(gid + 1)
		}
		return nil
	},
}

type fakeBackend struct {
	accel.Backend
	f   *faults
	rec *recorder
}

func newFake(f faults, maxWG int) *fakeBackend {
	host := accel.NewHostBackend(accel.HostOptions{
		MaxWorkGroupSize: maxWG,
		Workers:          2,
		Kernels:          map[string]accel.HostKernel{kernels.EntryPoint: laneKernel},
	})
	return &fakeBackend{Backend: host, f: &f, rec: &recorder{args: map[int]any{}}}
}

func (b *fakeBackend) Available() bool {
	b.rec.hit()
	return !b.f.unavailable
}

func (b *fakeBackend) Devices() ([]accel.DeviceInfo, error) {
	b.rec.hit()
	if b.f.devicesErr != nil {
		return nil, b.f.devicesErr
	}
	if b.f.noDevices {
		return nil, nil
	}
	return b.Backend.Devices()
}

func (b *fakeBackend) NewContext(i int) (accel.Context, error) {
	b.rec.hit()
	if b.f.contextErr != nil {
		return nil, b.f.contextErr
	}
	ctx, err := b.Backend.NewContext(i)
	if err != nil {
		return nil, err
	}
	return &fakeContext{Context: ctx, b: b}, nil
}

type fakeContext struct {
	accel.Context
	b *fakeBackend
}

func (c *fakeContext) NewQueue() (accel.Queue, error) {
	if c.b.f.queueErr != nil {
		return nil, c.b.f.queueErr
	}
	q, err := c.Context.NewQueue()
	if err != nil {
		return nil, err
	}
	return &fakeQueue{Queue: q, b: c.b}, nil
}

func (c *fakeContext) NewProgram(src string) (accel.Program, error) {
	if c.b.f.programErr != nil {
		return nil, c.b.f.programErr
	}
	p, err := c.Context.NewProgram(src)
	if err != nil {
		return nil, err
	}
	return &fakeProgram{Program: p, b: c.b}, nil
}

func (c *fakeContext) NewHostBuffer(flags accel.MemFlags, host []byte) (accel.Buffer, error) {
	c.b.rec.mu.Lock()
	c.b.rec.flags = flags
	c.b.rec.hostLen = len(host)
	c.b.rec.mu.Unlock()

	if c.b.f.bufferErr != nil {
		return nil, c.b.f.bufferErr
	}
	buf, err := c.Context.NewHostBuffer(flags, host)
	if err != nil {
		return nil, err
	}
	return &fakeBuffer{Buffer: buf, b: c.b}, nil
}

func (c *fakeContext) Close() error {
	c.b.rec.close("context")
	return c.Context.Close()
}

type fakeBuffer struct {
	accel.Buffer
	b *fakeBackend
}

func (f *fakeBuffer) Close() error {
	f.b.rec.close("buffer")
	return f.Buffer.Close()
}

type fakeProgram struct {
	accel.Program
	b *fakeBackend
}

func (p *fakeProgram) Build(opts string) error {
	if p.b.f.buildErr != nil {
		return p.b.f.buildErr
	}
	return p.Program.Build(opts)
}

func (p *fakeProgram) BuildLog() (string, error) {
	if p.b.f.logErr != nil {
		return "", p.b.f.logErr
	}
	if p.b.f.buildErr != nil {
		return "<source>:3:1: error: injected failure", nil
	}
	return p.Program.BuildLog()
}

func (p *fakeProgram) Kernel(name string) (accel.Kernel, error) {
	if p.b.f.kernelErr != nil {
		return nil, p.b.f.kernelErr
	}
	k, err := p.Program.Kernel(name)
	if err != nil {
		return nil, err
	}
	return &fakeKernel{Kernel: k, b: p.b}, nil
}

func (p *fakeProgram) Close() error {
	p.b.rec.close("program")
	return p.Program.Close()
}

type fakeKernel struct {
	accel.Kernel
	b *fakeBackend
}

func (k *fakeKernel) WorkGroupSize() (int, error) {
	if k.b.f.wgErr != nil {
		return 0, k.b.f.wgErr
	}
	if k.b.f.wg != 0 {
		return max(k.b.f.wg, 0), nil
	}
	return k.Kernel.WorkGroupSize()
}

func (k *fakeKernel) SetArg(i int, v any) error {
	k.b.rec.mu.Lock()
	k.b.rec.args[i] = v
	k.b.rec.mu.Unlock()

	if k.b.f.argErr != nil && i == k.b.f.argIndex {
		return k.b.f.argErr
	}
	if fb, ok := v.(*fakeBuffer); ok {
		v = fb.Buffer
	}
	return k.Kernel.SetArg(i, v)
}

func (k *fakeKernel) Close() error {
	k.b.rec.close("kernel")
	return k.Kernel.Close()
}

type fakeQueue struct {
	accel.Queue
	b *fakeBackend
}

func (q *fakeQueue) EnqueueKernel(k accel.Kernel, global int) error {
	q.b.rec.mu.Lock()
	q.b.rec.globalSize = global
	q.b.rec.mu.Unlock()

	if q.b.f.enqueueErr != nil {
		return q.b.f.enqueueErr
	}
	return q.Queue.EnqueueKernel(k.(*fakeKernel).Kernel, global)
}

func (q *fakeQueue) EnqueueReadBuffer(buf accel.Buffer, blocking bool, dst []byte) error {
	q.b.rec.mu.Lock()
	q.b.rec.blocking = blocking
	q.b.rec.mu.Unlock()

	if q.b.f.readErr != nil {
		return q.b.f.readErr
	}
	return q.Queue.EnqueueReadBuffer(buf.(*fakeBuffer).Buffer, blocking, dst)
}

func (q *fakeQueue) Close() error {
	q.b.rec.close("queue")
	return q.Queue.Close()
}
