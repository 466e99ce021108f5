package slab

import (
	"math/bits"
	"sync/atomic"
)

const (
	// submapCount is the number of 32-bit slot bitmaps per page.
	submapCount = 16

	// slotsPerSubmap is the number of slot bits in one sub-bitmap word.
	slotsPerSubmap = 32

	// maxSlotsPerPage is the addressable slot space per page. Pages with
	// fewer real slots pre-mark the excess as used.
	maxSlotsPerPage = submapCount * slotsPerSubmap

	cachelineSize = 64
)

// submap is one 32-bit slice of a page's slot bitmap, padded so every word
// sits on its own cacheline. Claimers that hash to different sub-bitmaps
// never contend on the same line.
type submap struct {
	bits atomic.Uint32
	_    [cachelineSize - 4]byte
}

// pageBitmap tracks the slots of a single page. Bit b of sub-bitmap s is
// slot b*16+s: consecutive slots land in different words, and successive
// claims from one word are 16 slots apart, on different cachelines of the
// page itself.
type pageBitmap [submapCount]submap

// init marks every bit used, then carves out the page's real slots.
// Everything above slotCount stays set as a sentinel.
func (b *pageBitmap) init(slotCount int) {
	for sub := range b {
		b[sub].bits.Store(^uint32(0))
	}
	for s := 0; s < slotCount; s++ {
		sub, bit := splitSlot(s)
		b[sub].bits.And(^(uint32(1) << bit))
	}
}

// used returns the number of set bits, sentinels included.
func (b *pageBitmap) used() int {
	n := 0
	for sub := range b {
		n += bits.OnesCount32(b[sub].bits.Load())
	}
	return n
}

// splitSlot maps a slot index to its sub-bitmap and bit position.
func splitSlot(slot int) (sub, bit int) {
	return slot % submapCount, slot / submapCount
}

// joinSlot is the inverse of splitSlot.
func joinSlot(sub, bit int) int {
	return bit*submapCount + sub
}
