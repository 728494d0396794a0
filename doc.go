// Package mcprice prices a European call option by dispatching a Monte-Carlo
// kernel onto a compute device and averaging the per-lane estimates.
//
// A run loads the kernel source, acquires a device through an accel.Backend,
// builds the program and resolves the price_option entry point, sizes a
// page-aligned host block from the kernel's work-group size, launches one
// lane per work-group slot, reads the block back and reduces it:
//
//	env, err := mcprice.AcquireEnvironment(backend, 0)
//	prog, err := mcprice.Build(env, src, mcprice.BuildOptions{})
//	out, err := mcprice.Dispatch(env, prog, mcprice.DefaultParams(), 1e9)
//	avg, err := out.Mean()
//
// Every stage returns a *Error carrying a Code; Report turns one into
// diagnostics and a process exit code.
package mcprice
