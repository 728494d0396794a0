// Package accel abstracts the compute accelerator used by the pricing pipeline.
//
// A Backend enumerates devices and opens a Context on one of them. The
// Context creates in-order command queues, programs built from source text
// and buffers backed by caller-owned host memory. A built Program resolves
// named kernels whose arguments are bound positionally before a
// one-dimensional launch.
//
// The HostBackend runs kernels written in Go on the CPU and is always
// available. The OpenCL and WebGPU backends are compiled in with the "opencl"
// and "webgpu" build tags and register themselves under those names.
package accel
