package detour_tile_cache

// DtTileCacheAlloc provides scratch memory for a single tile rebuild.
// The tile cache calls Reset before every rebuild.
type DtTileCacheAlloc interface {
	Reset()
	// Alloc returns size bytes or nil when the arena is exhausted.
	Alloc(size int) []byte
	Free(ptr []byte)
}

// DtTileCacheLinearAllocator is a bump allocator over a fixed buffer.
type DtTileCacheLinearAllocator struct {
	buffer []byte
	top    int
	high   int
}

func NewDtTileCacheLinearAllocator(capacity int) *DtTileCacheLinearAllocator {
	return &DtTileCacheLinearAllocator{buffer: make([]byte, capacity)}
}

// Reset rewinds the arena. Memory is not cleared.
func (a *DtTileCacheLinearAllocator) Reset() {
	a.high = max(a.high, a.top)
	a.top = 0
}

func (a *DtTileCacheLinearAllocator) Alloc(size int) []byte {
	if a.buffer == nil || size < 0 || a.top+size > len(a.buffer) {
		return nil
	}
	mem := a.buffer[a.top : a.top+size : a.top+size]
	a.top += size
	return mem
}

func (a *DtTileCacheLinearAllocator) Free(ptr []byte) {}

// High is the largest number of bytes in use before any Reset.
func (a *DtTileCacheLinearAllocator) High() int     { return max(a.high, a.top) }
func (a *DtTileCacheLinearAllocator) Top() int      { return a.top }
func (a *DtTileCacheLinearAllocator) Capacity() int { return len(a.buffer) }
