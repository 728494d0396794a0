//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package hostmem

func allocMapped(_, _ int) (*Block, bool, error) {
	return nil, false, nil
}

func unmap(_ []byte) error {
	return nil
}
