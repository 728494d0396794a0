//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package hostmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allocMapped serves the allocation from an anonymous private mapping when
// the system page size satisfies the requested alignment.
func allocMapped(size, align int) (*Block, bool, error) {
	page := unix.Getpagesize()
	if page%align != 0 {
		return nil, false, nil
	}

	length := RoundUp(size, page)

	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, fmt.Errorf("hostmem: mmap %d bytes: %w", length, err)
	}

	return &Block{
		data:   mem[:size:size],
		raw:    mem,
		align:  align,
		mapped: true,
	}, true, nil
}

func unmap(raw []byte) error {
	if err := unix.Munmap(raw); err != nil {
		return fmt.Errorf("hostmem: munmap: %w", err)
	}
	return nil
}
