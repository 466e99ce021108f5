//go:build linux || freebsd || darwin

package vmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const pageSize = 4096

// Reserve maps size bytes of anonymous private memory. The kernel commits
// physical pages lazily on first touch, so reserving a large range is cheap.
func Reserve(size int) (*Region, error) {
	if size <= 0 || size%pageSize != 0 {
		return nil, ErrBadSize
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("vmem: mmap %d bytes: %w", size, err)
	}
	return &Region{data: data, mapped: true}, nil
}

// Reclaim tells the kernel it may drop the physical backing of
// data[off:off+length] without unmapping it. The range re-faults as zero
// pages on the next write. Callers must not expect the old contents to
// survive.
func (r *Region) Reclaim(off, length int) error {
	if err := r.checkRange(off, length); err != nil {
		return err
	}
	err := unix.Madvise(r.data[off:off+length], unix.MADV_FREE)
	if errors.Is(err, unix.EINVAL) {
		// Kernels without MADV_FREE (Linux < 4.5) reject it; DONTNEED
		// drops the pages eagerly instead, which is a stronger form of
		// the same contract.
		err = unix.Madvise(r.data[off:off+length], unix.MADV_DONTNEED)
	}
	if err != nil {
		return fmt.Errorf("vmem: madvise: %w", err)
	}
	return nil
}

// Release unmaps the region. Nil regions and double releases are no-ops.
func (r *Region) Release() error {
	if r == nil || !r.mapped || r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	r.mapped = false
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
