package slab

import (
	"fmt"
	"os"
)

// Runtime flag for resize tracing - controlled by BMSLAB_LOG_RESIZE env var.
var logResize = os.Getenv("BMSLAB_LOG_RESIZE") != ""

// maybeGrow publishes the next page once occupancy crosses one half of the
// live capacity. The headroom keeps allocation time flat before the next
// page comes online and stays clear of the 12.5% shrink threshold.
func (s *Slab) maybeGrow() {
	used := s.allocated.Load()
	capacity := int64(s.physPages.Load()) * int64(s.slotCount)
	if used < capacity/2 {
		return
	}
	s.grow()
}

// grow brings one reserved page online. Single-flight: callers that lose
// the coordination CAS back off immediately. Reports whether a page was
// published.
func (s *Slab) grow() bool {
	if !s.coord.CompareAndSwap(0, 1) {
		return false
	}
	defer s.coord.Store(0)

	if int(s.physPages.Load()) >= s.virtPages {
		return false
	}
	// The page's bitmap was initialized at construction and its reference
	// word is drain-locked, so publishing is exactly: extend the live
	// range, then lift the drain.
	page := s.physPages.Add(1) - 1
	s.refs[page].unlockDrain()
	if logResize {
		fmt.Fprintf(os.Stderr, "[slab] grow: page %d online, %d/%d live\n",
			page, page+1, s.virtPages)
	}
	return true
}

// maybeShrink reclaims the last live page once occupancy falls to an eighth
// of the live capacity.
func (s *Slab) maybeShrink() {
	used := s.allocated.Load()
	capacity := int64(s.physPages.Load()) * int64(s.slotCount)
	if used > capacity/8 {
		return
	}
	s.shrink()
}

// shrink locks the last live page against new references and, if the page
// has fully drained, hands its physical backing to the OS. The virtual
// mapping survives: the bitmap already reads all-free, and a later grow
// re-publishes the same index with the first write faulting in zero pages.
//
// Reclamation continues page by page while the shrink threshold still
// holds for the reduced capacity, so a fully drained instance falls back
// to one page in a single pass instead of one page per Free call.
func (s *Slab) shrink() {
	if !s.coord.CompareAndSwap(0, 1) {
		return
	}
	defer s.coord.Store(0)

	for {
		last := s.physPages.Load() - 1
		if last == 0 {
			// The first page is never reclaimed.
			return
		}
		ref := &s.refs[last]
		ref.lockDrain()
		// The sequentially consistent RMW above and load below pin the
		// drain handshake: an in-flight tryRef either observed the lock
		// and backed out, or its increment is visible in this read.
		if !ref.reclaimable() {
			// Still referenced. Lift the lock rather than strand the
			// page until some later shrink happens to catch it drained.
			ref.unlockDrain()
			return
		}
		if err := s.region.Reclaim(int(last)<<pageShift, pageSize); err != nil && logResize {
			fmt.Fprintf(os.Stderr, "[slab] shrink: reclaim page %d: %v\n", last, err)
		}
		s.physPages.Add(^uint32(0))
		if logResize {
			fmt.Fprintf(os.Stderr, "[slab] shrink: page %d offline, %d/%d live\n",
				last, last, s.virtPages)
		}
		if s.allocated.Load() > int64(last)*int64(s.slotCount)/8 {
			return
		}
	}
}
