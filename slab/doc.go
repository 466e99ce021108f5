// Package slab provides a fixed-size object allocator built for heavily
// concurrent allocation and release of small objects (8 to 4096 bytes).
//
// # Overview
//
// A Slab is created for one object size and a cap on the 4 KB pages it may
// occupy. The whole virtual range is reserved up front; physical pages are
// brought online one at a time as demand grows and handed back to the OS
// when demand falls away. Any number of goroutines may call Alloc and Free
// concurrently. There is no mutex anywhere: allocation is lock-free and
// release is wait-free.
//
// # Data model
//
// Object slots carry no headers. All bookkeeping lives beside the data:
//
//   - Each page has 16 atomic 32-bit sub-bitmaps, one bit per slot
//     (0 = free, 1 = used). Consecutive slots are interleaved across
//     sub-bitmaps, and each sub-bitmap is padded to its own cacheline, so
//     concurrent claimers spread across both the metadata and the page.
//   - Each page has one atomic 64-bit reference word. The high bit is a
//     drain lock; the low 63 bits count the allocations currently live on
//     the page plus the scanners currently inspecting it.
//   - Slot bits past the page's real slot count are born set and never
//     cleared, so the scan loop needs no bounds arithmetic.
//
// # Allocation
//
// Alloc hashes a stack address and a monotonic seed to pick a random
// starting page and sub-bitmap, then scans forward: skip full words, claim
// the lowest free bit with a single compare-and-swap, and on a lost race
// move to the next word rather than retrying in place. Losing a CAS
// therefore always advances the scan, which bounds the per-call work and
// keeps the path lock-free without livelock.
//
// # Resizing
//
// Crossing 50% occupancy publishes the next reserved page; falling to
// 12.5% locks the last page and, if its reference count is already zero,
// releases its physical backing with an MADV_FREE-style advisory call. A
// page that is still referenced is unlocked and stays live; there is no
// waiting. The
// virtual mapping survives, so a later expansion re-publishes the same page
// index and the first write re-faults fresh zero pages. Both transitions
// are single-flight, coordinated by one CAS flag, and run opportunistically
// on whichever caller trips the threshold; there is no background worker.
//
// # Usage
//
//	s, err := slab.New(64, 16)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	buf := s.Alloc() // nil when all 16 pages are full
//	...
//	s.Free(buf)
//
// Alloc returns slices of the reserved range; their backing addresses are
// the slot identities. A Slab must not be closed while allocations are
// outstanding.
package slab
