package ad

import "sync"

// Implementation of the memory-resource hook (spec section 5:
// "get_memory/return_memory/hold_memory/free_available"). No teacher
// file addresses this directly; grounded on the teacher's general
// preference for plain Go allocation (no custom allocator appears in
// ad/tape.go), generalized here into an explicit hook interface with
// a pass-through and a sync.Pool-backed implementation.
//
// A Fun grows its Taylor rows through its own Allocator, which newFun
// sets to DefaultAllocator; no exported API installs a different
// Allocator on a Fun, so PooledAllocator is usable only directly.
// Reverse allocates its Partial rows with make, not through the hook.

// Allocator is the memory hook of spec section 5. DefaultAllocator is
// a thin pass-through to make; PooledAllocator recycles slices of a
// fixed element width via sync.Pool.
type Allocator[B Base[B]] interface {
	// GetMemory returns a []B of length n, content undefined.
	GetMemory(n int) []B
	// ReturnMemory releases a slice obtained from GetMemory. The
	// allocator may retain it for reuse; callers must not touch buf
	// again after returning it.
	ReturnMemory(buf []B)
	// HoldMemory hints that future GetMemory calls of this size are
	// imminent (e.g. about to sweep every order up to p); FreeAvailable
	// releases any memory held purely as a result of such a hint.
	HoldMemory(n int)
	FreeAvailable()
}

// DefaultAllocator allocates and discards via the Go runtime
// allocator, with no pooling.
type DefaultAllocator[B Base[B]] struct{}

func (DefaultAllocator[B]) GetMemory(n int) []B { return make([]B, n) }
func (DefaultAllocator[B]) ReturnMemory([]B)     {}
func (DefaultAllocator[B]) HoldMemory(int)       {}
func (DefaultAllocator[B]) FreeAvailable()       {}

// PooledAllocator recycles same-length []B buffers through a
// sync.Pool keyed by length, for hosts that repeatedly sweep the same
// Fun at the same order and want to cut allocator churn.
type PooledAllocator[B Base[B]] struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

func NewPooledAllocator[B Base[B]]() *PooledAllocator[B] {
	return &PooledAllocator[B]{pools: make(map[int]*sync.Pool)}
}

func (a *PooledAllocator[B]) poolFor(n int) *sync.Pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[n]
	if !ok {
		p = &sync.Pool{New: func() interface{} { return make([]B, n) }}
		a.pools[n] = p
	}
	return p
}

func (a *PooledAllocator[B]) GetMemory(n int) []B {
	buf := a.poolFor(n).Get().([]B)
	var z B
	for i := range buf {
		buf[i] = z
	}
	return buf
}

func (a *PooledAllocator[B]) ReturnMemory(buf []B) {
	a.poolFor(len(buf)).Put(buf) //nolint:staticcheck // length-keyed pool, not a pointer-stability concern
}

func (a *PooledAllocator[B]) HoldMemory(n int) { a.poolFor(n) }

func (a *PooledAllocator[B]) FreeAvailable() {
	a.mu.Lock()
	a.pools = make(map[int]*sync.Pool)
	a.mu.Unlock()
}
