// Package vmem reserves contiguous ranges of anonymous page-backed memory
// and returns individual pages to the OS under memory pressure.
//
// A Region is reserved once, up front, at its maximum size. Physical pages
// are faulted in lazily on first touch. Reclaim hands the backing of a
// sub-range back to the kernel without unmapping it, so the virtual
// addresses stay valid and re-fault as zero pages on the next write.
//
// On platforms without mmap the Region degrades to a heap-backed byte
// slice: reservation is eager and Reclaim only validates its range, but the address
// contract (one stable contiguous range for the Region's lifetime) holds.
package vmem

import "errors"

var (
	// ErrBadSize indicates a non-positive or non-page-multiple reservation size.
	ErrBadSize = errors.New("vmem: size must be a positive multiple of the page size")

	// ErrBadRange indicates a Reclaim range outside the reserved region.
	ErrBadRange = errors.New("vmem: range outside reserved region")
)

// Region is a contiguous reserved address range.
type Region struct {
	data   []byte
	mapped bool
}

// Bytes returns the whole reserved range. The slice stays valid until
// Release.
func (r *Region) Bytes() []byte {
	return r.data
}

// Size returns the reserved size in bytes.
func (r *Region) Size() int {
	return len(r.data)
}

func (r *Region) checkRange(off, length int) error {
	if off < 0 || length <= 0 || off+length > len(r.data) {
		return ErrBadRange
	}
	return nil
}
