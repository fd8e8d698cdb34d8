package filter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcceptNeverAdded(t *testing.T) {
	f := NewThreadFilter()

	require.False(t, f.Accept(0))
	require.False(t, f.Accept(42))
	require.False(t, f.Accept(Capacity-1))
}

func TestAddAcceptRemove(t *testing.T) {
	f := NewThreadFilter()

	tids := []int{0, 1, 31, 32, 63, 1234, ChunkBits - 1, ChunkBits, ChunkBits + 7, Capacity - 1}
	for _, tid := range tids {
		f.Add(tid)
		require.True(t, f.Accept(tid), "tid %d", tid)
	}

	// Neighbors of added ids stay out.
	require.False(t, f.Accept(2))
	require.False(t, f.Accept(ChunkBits+8))

	for _, tid := range tids {
		f.Remove(tid)
		require.False(t, f.Accept(tid), "tid %d", tid)
	}
}

func TestRemoveWithoutChunkIsNoop(t *testing.T) {
	f := NewThreadFilter()

	f.Remove(5 * ChunkBits)
	require.False(t, f.Accept(5*ChunkBits))
	require.Nil(t, f.chunks[5].Load())
}

func TestInitDoesNotAllocate(t *testing.T) {
	f := NewThreadFilter()
	f.Init(true)

	require.True(t, f.Enabled())
	for i := range f.chunks {
		require.Nil(t, f.chunks[i].Load())
	}

	f.Init(false)
	require.False(t, f.Enabled())
}

func TestClearKeepsChunksAndEnabled(t *testing.T) {
	f := NewThreadFilter()
	f.Init(true)

	tids := []int{3, 1000, ChunkBits + 1, 2*ChunkBits + 2}
	for _, tid := range tids {
		f.Add(tid)
	}

	allocated := make([]*chunk, 0)
	for i := range f.chunks {
		if c := f.chunks[i].Load(); c != nil {
			allocated = append(allocated, c)
		}
	}
	require.Len(t, allocated, 3)

	f.Clear()

	for _, tid := range tids {
		require.False(t, f.Accept(tid))
	}
	require.True(t, f.Enabled())

	// Same chunks, just zeroed.
	i := 0
	for j := range f.chunks {
		if c := f.chunks[j].Load(); c != nil {
			require.Same(t, allocated[i], c)
			i++
		}
	}
	require.Equal(t, len(allocated), i)
}

func TestConcurrentFirstTouchAllocatesOnce(t *testing.T) {
	f := NewThreadFilter()

	const workers = 32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// All workers race on the same chunk.
			f.Add(i)
		}(i)
	}
	close(start)
	wg.Wait()

	require.NotNil(t, f.chunks[0].Load())
	for i := 1; i < MaxChunks; i++ {
		require.Nil(t, f.chunks[i].Load())
	}
	for i := 0; i < workers; i++ {
		require.True(t, f.Accept(i))
	}
}

func TestConcurrentAddRemoveAccept(t *testing.T) {
	f := NewThreadFilter()
	f.Init(true)

	const (
		workers = 16
		rounds  = 1000
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				tid := (w*rounds + i) % (2 * ChunkBits)
				f.Add(tid)
				f.Accept(tid)
				f.Remove(tid)
			}
		}(w)
	}
	wg.Wait()

	// Overlapping ids were all removed by their last writer or left set by a
	// concurrent Add; either way the filter must still be consistent.
	for i := 0; i < 2; i++ {
		require.NotNil(t, f.chunks[i].Load())
	}
}
