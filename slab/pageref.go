package slab

import "sync/atomic"

// drainBit is the high bit of a page's reference word. While it is set no
// new reference can be taken, so the count can only fall.
const drainBit = uint64(1) << 63

// pageRef is a page's combined drain lock and reference count. Keeping both
// in one word means a single atomic read-modify-write observes the lock and
// adjusts the count at the same instant, which is what makes tryRef safe
// against a concurrent drain.
//
// The count covers every party operating on the page: scanners that have
// acquired it and allocations that are still live. A page is reclaimable
// exactly when it is drain-locked with a zero count.
type pageRef struct {
	word atomic.Uint64
}

// tryRef takes a reference unless the page is drain-locked. On a locked
// page the optimistic increment is rolled back and tryRef reports failure.
func (p *pageRef) tryRef() bool {
	if p.word.Add(1)&drainBit != 0 {
		p.word.Add(^uint64(0))
		return false
	}
	return true
}

// unref drops one reference.
func (p *pageRef) unref() {
	p.word.Add(^uint64(0))
}

// lockDrain sets the drain bit. Existing references stay valid.
func (p *pageRef) lockDrain() {
	p.word.Or(drainBit)
}

// unlockDrain clears the drain bit, making the page acquirable again.
func (p *pageRef) unlockDrain() {
	p.word.And(^drainBit)
}

// reclaimable reports whether the page is drain-locked with no references.
func (p *pageRef) reclaimable() bool {
	return p.word.Load() == drainBit
}
