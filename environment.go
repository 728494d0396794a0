package mcprice

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-mcprice/accel"
)

// Environment is the device, context and queue a run dispatches onto. The
// driver creates it once and passes it to Build and Dispatch.
type Environment struct {
	Backend     accel.BackendInfo
	Device      accel.DeviceInfo
	DeviceIndex int
	Context     accel.Context
	Queue       accel.Queue
}

// AcquireEnvironment opens device deviceIndex of b with an in-order queue.
func AcquireEnvironment(b accel.Backend, deviceIndex int) (*Environment, error) {
	if b == nil {
		return nil, check(accel.ErrNoBackend, CodeDeviceUnavailable, "could not get compute device")
	}

	info := b.Info()
	if !b.Available() {
		return nil, check(accel.ErrBackendUnavailable, CodeDeviceUnavailable, "could not get compute device from backend %q", info.Name)
	}

	devices, err := b.Devices()
	if err != nil {
		return nil, check(err, CodeDeviceUnavailable, "could not enumerate devices of backend %q", info.Name)
	}
	if deviceIndex < 0 || deviceIndex >= len(devices) {
		return nil, check(
			fmt.Errorf("%w: index %d of %d", accel.ErrDeviceNotFound, deviceIndex, len(devices)),
			CodeDeviceUnavailable, "could not get device from backend %q", info.Name)
	}

	ctx, err := b.NewContext(deviceIndex)
	if err != nil {
		return nil, check(err, CodeContextCreationFailed, "could not create context on %q", devices[deviceIndex].Name)
	}

	q, err := ctx.NewQueue()
	if err != nil {
		_ = ctx.Close()
		return nil, check(err, CodeQueueCreationFailed, "could not create command queue on %q", devices[deviceIndex].Name)
	}

	return &Environment{
		Backend:     info,
		Device:      devices[deviceIndex],
		DeviceIndex: deviceIndex,
		Context:     ctx,
		Queue:       q,
	}, nil
}

// Close drains and releases the queue, then the context.
func (e *Environment) Close() error {
	if e == nil {
		return nil
	}

	var errs []error
	if e.Queue != nil {
		errs = append(errs, e.Queue.Close())
		e.Queue = nil
	}
	if e.Context != nil {
		errs = append(errs, e.Context.Close())
		e.Context = nil
	}
	return errors.Join(errs...)
}
