package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPageRef_RefCounting checks references stack and unwind.
func TestPageRef_RefCounting(t *testing.T) {
	var p pageRef

	require.True(t, p.tryRef())
	require.True(t, p.tryRef())
	assert.Equal(t, uint64(2), p.word.Load())

	p.unref()
	p.unref()
	assert.Equal(t, uint64(0), p.word.Load())
}

// TestPageRef_DrainBlocksNewRefs checks a locked page rejects tryRef and
// rolls the optimistic increment back.
func TestPageRef_DrainBlocksNewRefs(t *testing.T) {
	var p pageRef

	require.True(t, p.tryRef())
	p.lockDrain()

	require.False(t, p.tryRef(), "drain-locked page must refuse new references")
	assert.Equal(t, drainBit|1, p.word.Load(), "failed tryRef leaves the count untouched")

	// The existing holder can still leave.
	p.unref()
	assert.True(t, p.reclaimable())
}

// TestPageRef_Reclaimable checks the exact reclaim condition: drain bit
// set, count zero.
func TestPageRef_Reclaimable(t *testing.T) {
	var p pageRef
	assert.False(t, p.reclaimable(), "unlocked empty page is not reclaimable")

	p.lockDrain()
	assert.True(t, p.reclaimable())

	p.unlockDrain()
	assert.False(t, p.reclaimable())

	require.True(t, p.tryRef())
	p.lockDrain()
	assert.False(t, p.reclaimable(), "referenced page is not reclaimable")
	p.unref()
	assert.True(t, p.reclaimable())
}

// TestPageRef_UnlockRestores checks the drain bit toggles cleanly around a
// held reference.
func TestPageRef_UnlockRestores(t *testing.T) {
	var p pageRef
	require.True(t, p.tryRef())
	p.lockDrain()
	p.unlockDrain()
	require.True(t, p.tryRef(), "unlocked page accepts references again")
	assert.Equal(t, uint64(2), p.word.Load())
}
