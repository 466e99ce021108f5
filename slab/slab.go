package slab

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/minseok127/bmslab/internal/vmem"
)

const (
	pageSize  = 4096
	pageShift = 12

	// MinObjSize is the smallest supported object size.
	MinObjSize = 8

	// MaxObjSize is the largest supported object size (one full page).
	MaxObjSize = pageSize
)

// Slab is a fixed-size object allocator over a reserved range of 4 KB
// pages. All methods are safe for concurrent use.
type Slab struct {
	objSize   int
	slotCount int // real slots per page
	virtPages int

	region *vmem.Region
	base   uintptr

	bitmaps []pageBitmap
	refs    []pageRef

	physPages atomic.Uint32
	allocated atomic.Int64
	coord     atomic.Uint32
}

// Stats is a point-in-time snapshot of a Slab. The two fields are read
// independently, not transactionally.
type Stats struct {
	PhysPages      int
	AllocatedSlots int
}

// New creates a Slab for objects of objSize bytes, capped at maxPages
// pages. The full maxPages*4096-byte virtual range is reserved immediately;
// one page starts live and the rest come online on demand.
func New(objSize, maxPages int) (*Slab, error) {
	if objSize < MinObjSize || objSize > MaxObjSize {
		return nil, ErrObjSize
	}
	if maxPages < 1 {
		return nil, ErrMaxPages
	}

	region, err := vmem.Reserve(maxPages * pageSize)
	if err != nil {
		return nil, fmt.Errorf("slab: reserve %d pages: %w", maxPages, err)
	}

	s := &Slab{
		objSize:   objSize,
		slotCount: pageSize / objSize,
		virtPages: maxPages,
		region:    region,
		base:      uintptr(unsafe.Pointer(&region.Bytes()[0])),
		bitmaps:   make([]pageBitmap, maxPages),
		refs:      make([]pageRef, maxPages),
	}

	for i := range s.bitmaps {
		s.bitmaps[i].init(s.slotCount)
	}
	// Reserved pages are born drain-locked; publishing one is exactly an
	// unlockDrain. Page 0 starts live.
	for i := 1; i < maxPages; i++ {
		s.refs[i].lockDrain()
	}
	s.physPages.Store(1)

	return s, nil
}

// Close releases the reserved range and all metadata. Nil receivers and
// repeated closes are no-ops. Closing with allocations outstanding leaves
// their slices dangling; callers must drain first.
func (s *Slab) Close() error {
	if s == nil || s.region == nil {
		return nil
	}
	region := s.region
	s.region = nil
	s.base = 0
	return region.Release()
}

// Stats returns an atomic snapshot of the live page and allocation counts.
func (s *Slab) Stats() Stats {
	return Stats{
		PhysPages:      int(s.physPages.Load()),
		AllocatedSlots: int(s.allocated.Load()),
	}
}

// ObjSize returns the object size the Slab was created with.
func (s *Slab) ObjSize() int { return s.objSize }

// SlotsPerPage returns the number of real slots each page holds.
func (s *Slab) SlotsPerPage() int { return s.slotCount }

// VirtPages returns the page cap fixed at construction.
func (s *Slab) VirtPages() int { return s.virtPages }

// slotBytes returns the slot's storage as a full-capacity slice.
func (s *Slab) slotBytes(page, slot int) []byte {
	off := page<<pageShift + slot*s.objSize
	return s.region.Bytes()[off : off+s.objSize : off+s.objSize]
}

// locate maps a buffer back to its (page, slot) pair. The checks mirror
// the pointer validity rules: inside the reserved range, on an object
// boundary, below the page's real slot count.
func (s *Slab) locate(buf []byte) (page, slot int, ok bool) {
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	if ptr < s.base {
		return 0, 0, false
	}
	diff := ptr - s.base
	if diff >= uintptr(s.virtPages)<<pageShift {
		return 0, 0, false
	}
	page = int(diff >> pageShift)
	off := int(diff) - page<<pageShift
	if off%s.objSize != 0 {
		return 0, 0, false
	}
	slot = off / s.objSize
	if slot >= s.slotCount {
		return 0, 0, false
	}
	return page, slot, true
}
