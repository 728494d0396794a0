// Package hostmem allocates host memory blocks with a guaranteed address
// alignment, suitable for handing to a device as a host-pointer buffer.
//
// On platforms with mmap the block lives outside the Go heap, so a driver may
// keep the pointer for the lifetime of a device buffer without violating the
// cgo pointer-passing rules. Elsewhere the block is carved out of an
// over-allocated heap slice.
package hostmem

import (
	"errors"
	"unsafe"
)

// PageSize is the alignment required for zero-copy host-pointer buffers.
const PageSize = 4096

var (
	// ErrInvalidSize is returned for non-positive allocation sizes.
	ErrInvalidSize = errors.New("hostmem: invalid size")

	// ErrInvalidAlignment is returned when the alignment is not a positive power of two.
	ErrInvalidAlignment = errors.New("hostmem: alignment must be a positive power of two")

	// ErrFreed is returned when a block is used after Free.
	ErrFreed = errors.New("hostmem: block already freed")
)

// Block is an aligned host memory region.
//
// A Block is not safe for concurrent use; Free must not race with readers.
type Block struct {
	data   []byte // aligned view handed to callers
	raw    []byte // backing storage, as returned by the allocator
	align  int
	mapped bool
}

// Alloc returns a zeroed block of size bytes whose first byte is aligned to align.
func Alloc(size, align int) (*Block, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if align <= 0 || align&(align-1) != 0 {
		return nil, ErrInvalidAlignment
	}

	if b, ok, err := allocMapped(size, align); ok || err != nil {
		return b, err
	}

	return allocHeap(size, align), nil
}

// allocHeap over-allocates by align-1 bytes and slices to the first aligned offset.
func allocHeap(size, align int) *Block {
	raw := make([]byte, size+align-1)

	ptr := uintptr(unsafe.Pointer(&raw[0]))

	offset := 0
	if mod := int(ptr % uintptr(align)); mod != 0 {
		offset = align - mod
	}

	return &Block{
		data:  raw[offset : offset+size : offset+size],
		raw:   raw,
		align: align,
	}
}

// Bytes returns the aligned region. It returns nil after Free.
func (b *Block) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the size of the aligned region in bytes.
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Addr returns the address of the first byte, or 0 for an empty block.
func (b *Block) Addr() uintptr {
	if b == nil || len(b.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.data[0]))
}

// Align reports the alignment the block was allocated with.
func (b *Block) Align() int {
	if b == nil {
		return 0
	}
	return b.align
}

// Mapped reports whether the block lives in an anonymous mapping rather than the Go heap.
func (b *Block) Mapped() bool {
	return b != nil && b.mapped
}

// Float32s views the block as float32 elements. Trailing bytes that do not
// form a whole element are not included.
func (b *Block) Float32s() []float32 {
	if b == nil || len(b.data) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.data[0])), len(b.data)/4)
}

// Free releases the block. Calling Free more than once is a no-op.
func (b *Block) Free() error {
	if b == nil || b.raw == nil {
		return nil
	}

	var err error
	if b.mapped {
		err = unmap(b.raw)
	}

	b.data = nil
	b.raw = nil
	b.mapped = false

	return err
}

// RoundUp rounds n up to the next multiple of m. m must be positive.
func RoundUp(n, m int) int {
	if m <= 0 {
		return n
	}
	if r := n % m; r != 0 {
		return n + m - r
	}
	return n
}

// IsAligned reports whether addr is a multiple of align.
func IsAligned(addr uintptr, align int) bool {
	if align <= 0 {
		return false
	}
	return addr%uintptr(align) == 0
}
