// Package particles holds the flat liquid-particle store, its free-list
// allocator, and the per-cell spatial bins.
package particles

import "sync/atomic"

// Store is a fixed-capacity SoA particle pool. Mass is the sole
// liveness flag: mass <= 0 means the slot is free for recycling.
type Store struct {
	Cap int

	PosX []float32
	PosY []float32
	VelX []float32
	VelY []float32
	Mass []float32

	free    []int32
	freeTop atomic.Int32
}

// NewStore allocates a store with all slots dead.
func NewStore(capacity int) *Store {
	return &Store{
		Cap:  capacity,
		PosX: make([]float32, capacity),
		PosY: make([]float32, capacity),
		VelX: make([]float32, capacity),
		VelY: make([]float32, capacity),
		Mass: make([]float32, capacity),
		free: make([]int32, capacity),
	}
}

// ResetFreeList empties the free list ahead of a rebuild scan.
func (s *Store) ResetFreeList() {
	s.freeTop.Store(0)
}

// ScanFree appends every dead slot in [i0, i1) to the free list. Safe
// to run concurrently over disjoint ranges; each dead slot claims a
// distinct free-list entry via the atomic counter.
func (s *Store) ScanFree(i0, i1 int) {
	for i := i0; i < i1; i++ {
		if s.Mass[i] <= 0 {
			slot := s.freeTop.Add(1) - 1
			s.free[slot] = int32(i)
		}
	}
}

// FreeCount returns how many slots the free list currently holds.
func (s *Store) FreeCount() int {
	return int(s.freeTop.Load())
}

// Alloc claims a free slot. The compare-and-exchange retry loop makes
// this safe under full parallel spawning with no sequential allocator.
// Returns false when the pool is exhausted: the spawn request is
// silently truncated, never an error.
func (s *Store) Alloc() (int, bool) {
	for {
		top := s.freeTop.Load()
		if top <= 0 {
			return -1, false
		}
		if s.freeTop.CompareAndSwap(top, top-1) {
			return int(s.free[top-1]), true
		}
	}
}

// Spawn allocates and initializes a live particle. Returns false when
// the free list is exhausted.
func (s *Store) Spawn(x, y, vx, vy float32) bool {
	i, ok := s.Alloc()
	if !ok {
		return false
	}
	s.PosX[i] = x
	s.PosY[i] = y
	s.VelX[i] = vx
	s.VelY[i] = vy
	s.Mass[i] = 1
	return true
}

// Kill marks a particle dead; the slot is reclaimed on the next
// free-list rebuild.
func (s *Store) Kill(i int) {
	s.Mass[i] = 0
}

// LiveCount counts live particles. Telemetry/test path, not hot.
func (s *Store) LiveCount() int {
	n := 0
	for _, m := range s.Mass {
		if m > 0 {
			n++
		}
	}
	return n
}
