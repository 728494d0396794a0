// Package kernels holds the price_option kernel sources and its Go
// implementation for the host backend.
package kernels

import (
	_ "embed"
)

// EntryPoint is the kernel function every source in this package exports.
const EntryPoint = "price_option"

//go:embed price_option.cl
var openCLSource string

//go:embed price_option.wgsl
var wgslSource string

// OpenCLSource returns the OpenCL C source of price_option.
func OpenCLSource() string {
	return openCLSource
}

// WGSLSource returns the WGSL source of price_option. Scalars are read from
// the uniform block at binding 1 in argument order.
func WGSLSource() string {
	return wgslSource
}

// SourceFor returns the embedded source suited to the named backend and
// whether one exists. The host backend accepts the OpenCL C source.
func SourceFor(backend string) (string, bool) {
	switch backend {
	case "opencl", "host":
		return openCLSource, true
	case "webgpu":
		return wgslSource, true
	default:
		return "", false
	}
}
