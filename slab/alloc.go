package slab

import (
	"math/bits"
	"runtime"
)

// Alloc claims a free slot and returns its storage as an ObjSize-length
// slice, or nil when a scan claims nothing and the page cap is reached.
// That is normally because every live page is full; under concurrency it
// can also happen when every CAS the scan tried was lost or a page was
// drain-locked.
//
// The path is lock-free: each CAS either claims a slot or moves the scan to
// a different word, so some caller always makes progress.
func (s *Slab) Alloc() []byte {
	if s == nil || s.region == nil {
		return nil
	}
	for {
		if buf := s.scan(); buf != nil {
			return buf
		}
		// Every page the scan could reach was full or draining. Force a
		// page online regardless of the occupancy threshold; a stranded
		// low-occupancy instance would otherwise never expand.
		if s.grow() {
			continue
		}
		if int(s.physPages.Load()) >= s.virtPages {
			return nil
		}
		// Another caller holds the coordination flag. Let it finish and
		// rescan; whatever it publishes or reclaims changes our view.
		runtime.Gosched()
	}
}

// scan walks the live pages from a hashed starting point and tries to claim
// one bit. On success the page reference taken here is intentionally kept:
// it now counts the live allocation, and the matching Free drops it.
func (s *Slab) scan() []byte {
	n := s.physPages.Load()
	if n == 0 {
		return nil
	}
	pr := newProbe()
	pageStart := pr.next(n)

	for i := uint32(0); i < n; i++ {
		page := (pageStart + i) % n
		if !s.refs[page].tryRef() {
			// Draining; only existing references may touch it.
			continue
		}
		subStart := pr.next(submapCount)
		for j := 0; j < submapCount; j++ {
			sub := (subStart + uint32(j)) % submapCount
			word := &s.bitmaps[page][sub].bits
			old := word.Load()
			if old == ^uint32(0) {
				continue
			}
			bit := bits.TrailingZeros32(^old)
			if bit >= slotsPerSubmap {
				continue
			}
			if !word.CompareAndSwap(old, old|uint32(1)<<bit) {
				// Lost the race. Move to the next word instead of
				// retrying here; advancing is what keeps the scan
				// bounded.
				continue
			}
			s.allocated.Add(1)
			s.maybeGrow()
			return s.slotBytes(int(page), joinSlot(int(sub), bit))
		}
		s.refs[page].unref()
	}
	return nil
}
