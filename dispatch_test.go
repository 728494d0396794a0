package mcprice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-mcprice/accel"
	"github.com/cwbudde/algo-mcprice/internal/hostmem"
)

func newProgram(t *testing.T, f faults, maxWG int) (*Environment, *CompiledProgram, *fakeBackend) {
	t.Helper()

	env, b := newEnv(t, f, maxWG)
	prog, err := Build(env, priceSource(), BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = prog.Close() })
	return env, prog, b
}

func TestDispatchReferenceLaunch(t *testing.T) {
	t.Parallel()

	env, prog, b := newProgram(t, faults{}, 256)
	params := Params{InitialPrice: 100, Maturity: 5, Rate: 0.05, Volatility: 0.2, Strike: 70}

	out, err := Dispatch(env, prog, params, 1_000_000_000)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, int64(3_906_250), out.Sizing.LaneCount)
	assert.Equal(t, 256, out.Sizing.WorkgroupSize)
	assert.True(t, hostmem.IsAligned(out.Addr(), 4096), "addr %#x", out.Addr())

	assert.Equal(t, OutputFlags, b.rec.flags)
	assert.True(t, b.rec.flags.DeviceWritable())
	assert.Equal(t, 1024, b.rec.hostLen)
	assert.Equal(t, 256, b.rec.globalSize)
	assert.True(t, b.rec.blocking)

	assert.Equal(t, float32(100), b.rec.args[1])
	assert.Equal(t, float32(5), b.rec.args[2])
	assert.Equal(t, float32(0.05), b.rec.args[3])
	assert.Equal(t, float32(0.2), b.rec.args[4])
	assert.Equal(t, float32(70), b.rec.args[5])
	assert.Equal(t, int32(3_906_250), b.rec.args[6])

	values := out.Values()
	require.Len(t, values, 256)
	for i, v := range values {
		require.Equal(t, float32(i+1), v, "lane %d", i)
	}

	mean, err := out.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 128.5, mean, 1e-9)
}

func TestDispatchExcludesPadding(t *testing.T) {
	t.Parallel()

	env, prog, _ := newProgram(t, faults{}, 100)

	out, err := Dispatch(env, prog, DefaultParams(), 1000)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, 128, out.Sizing.PaddedLen)
	assert.Len(t, out.Padded(), 128)
	assert.Len(t, out.Values(), 100)
	for _, v := range out.Padded()[100:] {
		assert.Zero(t, v)
	}

	mean, err := out.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 50.5, mean, 1e-9)
}

func TestDispatchFailures(t *testing.T) {
	t.Parallel()

	injected := errors.New("injected")

	cases := []struct {
		name     string
		f        faults
		total    int64
		code     Code
		released bool
	}{
		{"workgroup query", faults{wgErr: injected}, 1e6, CodeWorkgroupQueryFailed, false},
		{"zero workgroup", faults{wg: -1}, 1e6, CodeWorkgroupQueryFailed, false},
		{"too few samples", faults{}, 10, CodeInvalidParameters, false},
		{"buffer creation", faults{bufferErr: accel.ErrInvalidHostPtr}, 1e6, CodeBufferCreationFailed, false},
		{"bind buffer", faults{argErr: accel.ErrInvalidMemObject, argIndex: 0}, 1e6, CodeArgumentBindFailed, true},
		{"bind sigma", faults{argErr: accel.ErrInvalidArgValue, argIndex: 4}, 1e6, CodeArgumentBindFailed, true},
		{"enqueue", faults{enqueueErr: accel.ErrInvalidWorkSize}, 1e6, CodeEnqueueFailed, true},
		{"readback", faults{readErr: accel.ErrInvalidMemObject}, 1e6, CodeReadbackFailed, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env, prog, b := newProgram(t, c.f, 256)

			out, err := Dispatch(env, prog, DefaultParams(), c.total)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, IsCode(err, c.code), "got %v", err)

			if c.released {
				assert.Contains(t, b.rec.closed, "buffer")
			}
		})
	}
}

func TestDispatchBindMessageNamesIndex(t *testing.T) {
	t.Parallel()

	env, prog, _ := newProgram(t, faults{argErr: accel.ErrInvalidArgValue, argIndex: 6}, 256)

	_, err := Dispatch(env, prog, DefaultParams(), 1e6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 6")
}

func TestResultBufferRelease(t *testing.T) {
	t.Parallel()

	env, prog, b := newProgram(t, faults{}, 64)

	out, err := Dispatch(env, prog, DefaultParams(), 6400)
	require.NoError(t, err)

	require.NoError(t, out.Release())
	require.NoError(t, out.Release())
	assert.Equal(t, []string{"buffer"}, b.rec.closed)
	assert.Nil(t, out.Values())

	_, err = out.Mean()
	assert.ErrorIs(t, err, ErrReleased)
}
