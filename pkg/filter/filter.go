package filter

import (
	"sync"
	"sync/atomic"
)

const (
	// MaxChunks bounds the sparse directory of bitmap chunks.
	MaxChunks = 1024

	// ChunkBits is the number of thread ids covered by one chunk.
	ChunkBits = 64 * 1024

	chunkWords = ChunkBits / 32

	// Capacity is the highest addressable thread id plus one.
	// Accept, Add and Remove index the chunk directory directly:
	// a thread id outside [0, Capacity) panics on the bounds check.
	// Keeping ids in range is a caller obligation.
	Capacity = MaxChunks * ChunkBits
)

type chunk [chunkWords]atomic.Uint32

// ThreadFilter is a concurrent membership set of OS thread ids backed by a
// sparse two-level bitmap. Membership tests and updates are lock-free atomic
// word operations; only the first touch of a chunk takes a lock to allocate
// it. Chunks are never freed before the filter itself is collected.
type ThreadFilter struct {
	enabled atomic.Bool
	chunks  [MaxChunks]atomic.Pointer[chunk]
	mu      sync.Mutex
}

func NewThreadFilter() *ThreadFilter {
	return new(ThreadFilter)
}

// Init sets whether filtering is active. It does not allocate chunks.
func (f *ThreadFilter) Init(enable bool) {
	f.enabled.Store(enable)
}

// Enabled reports whether filtering is active. When false, every thread is
// accepted regardless of membership.
func (f *ThreadFilter) Enabled() bool {
	return f.enabled.Load()
}

// Accept reports whether tid is in the set. It is lock-free and safe to call
// concurrently with Add and Remove on any ids.
func (f *ThreadFilter) Accept(tid int) bool {
	c := f.chunks[tid/ChunkBits].Load()
	return c != nil && c[(tid%ChunkBits)/32].Load()&(1<<(tid&31)) != 0
}

// Add inserts tid into the set. The owning chunk is allocated lazily with a
// double-checked lock so concurrent first-touch allocates it exactly once.
func (f *ThreadFilter) Add(tid int) {
	slot := &f.chunks[tid/ChunkBits]
	c := slot.Load()
	if c == nil {
		f.mu.Lock()
		if c = slot.Load(); c == nil {
			c = new(chunk)
			slot.Store(c)
		}
		f.mu.Unlock()
	}
	c[(tid%ChunkBits)/32].Or(1 << (tid & 31))
}

// Remove deletes tid from the set. A no-op if the owning chunk was never
// allocated.
func (f *ThreadFilter) Remove(tid int) {
	if c := f.chunks[tid/ChunkBits].Load(); c != nil {
		c[(tid%ChunkBits)/32].And(^uint32(1 << (tid & 31)))
	}
}

// Clear zeroes every allocated chunk. Chunks stay allocated and the enabled
// flag is untouched.
func (f *ThreadFilter) Clear() {
	for i := range f.chunks {
		c := f.chunks[i].Load()
		if c == nil {
			continue
		}
		for w := range c {
			c[w].Store(0)
		}
	}
}
