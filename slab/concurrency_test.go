package slab

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrent_AllocFreePairs runs sixteen goroutines through repeated
// alloc-then-free pairs and checks no two simultaneously outstanding
// buffers ever share a slot.
func TestConcurrent_AllocFreePairs(t *testing.T) {
	const workers = 16
	pairs := 100000
	if testing.Short() {
		pairs = 2000
	}

	s, err := New(8, 2)
	require.NoError(t, err)
	defer s.Close()

	var outstanding sync.Map // slot address -> worker id
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < pairs; i++ {
				// Capacity is 1024 slots for at most 16 holders. A scan can
				// still come home empty-handed when every CAS it tries is
				// lost to a winner, so give it a few attempts before
				// calling the slots lost.
				var buf []byte
				for attempt := 0; attempt < 1000 && buf == nil; attempt++ {
					buf = s.Alloc()
				}
				if buf == nil {
					errs <- assert.AnError
					return
				}
				addr := uintptr(unsafe.Pointer(&buf[0]))
				if _, loaded := outstanding.LoadOrStore(addr, id); loaded {
					errs <- assert.AnError
					return
				}
				buf[0] = byte(id)
				outstanding.Delete(addr)
				s.Free(buf)
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	require.Empty(t, errs, "duplicate or failed allocation under concurrency")

	assert.Equal(t, 0, s.Stats().AllocatedSlots, "every pair returned its slot")
}

// TestConcurrent_BatchChurn holds batches across goroutines so expansion
// and shrinkage run while allocations are in flight.
func TestConcurrent_BatchChurn(t *testing.T) {
	const workers = 8
	rounds := 200
	if testing.Short() {
		rounds = 20
	}

	s, err := New(64, 8)
	require.NoError(t, err)
	defer s.Close()

	var outstanding sync.Map
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			batch := make([][]byte, 0, 32)
			for r := 0; r < rounds; r++ {
				for len(batch) < cap(batch) {
					buf := s.Alloc()
					if buf == nil {
						break // a scan at the page cap came back empty-handed
					}
					addr := uintptr(unsafe.Pointer(&buf[0]))
					if _, loaded := outstanding.LoadOrStore(addr, id); loaded {
						errs <- assert.AnError
						return
					}
					batch = append(batch, buf)
				}
				for _, buf := range batch {
					outstanding.Delete(uintptr(unsafe.Pointer(&buf[0])))
					s.Free(buf)
				}
				batch = batch[:0]
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	require.Empty(t, errs, "duplicate allocation under batched churn")

	st := s.Stats()
	assert.Equal(t, 0, st.AllocatedSlots)
	assert.GreaterOrEqual(t, st.PhysPages, 1)
	assert.LessOrEqual(t, st.PhysPages, 8)
}

// TestConcurrent_CountersStayBounded hammers a tiny instance so allocators
// constantly collide with the resize protocol.
func TestConcurrent_CountersStayBounded(t *testing.T) {
	const workers = 8
	pairs := 20000
	if testing.Short() {
		pairs = 1000
	}

	s, err := New(1024, 2) // 4 slots per page: maximal contention
	require.NoError(t, err)
	defer s.Close()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < pairs; i++ {
				if buf := s.Alloc(); buf != nil {
					s.Free(buf)
				}
			}
		}()
	}
	wg.Wait()

	st := s.Stats()
	assert.Equal(t, 0, st.AllocatedSlots)
	assert.GreaterOrEqual(t, st.PhysPages, 1)
	assert.LessOrEqual(t, st.PhysPages, 2)
	assert.Equal(t, sentinelBits(s), popcount(s), "no leaked slot bits")
}
