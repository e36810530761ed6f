package particles

import "sync/atomic"

// Bins is the per-cell fixed-capacity particle index, rebuilt from
// scratch every substep. Layout follows the dense spatial grid pattern:
// a flat slot array plus an atomic count per cell. A full cell soft-
// clips: the particle stays live but is invisible to neighbor queries
// for that pass.
type Bins struct {
	W, H int
	Cap  int

	counts []atomic.Int32
	slots  []int32
}

// NewBins allocates bins for a w×h grid with the given per-cell capacity.
func NewBins(w, h, capacity int) *Bins {
	return &Bins{
		W: w, H: h, Cap: capacity,
		counts: make([]atomic.Int32, w*h),
		slots:  make([]int32, w*h*capacity),
	}
}

// Clear zeroes every cell count.
func (b *Bins) Clear() {
	for i := range b.counts {
		b.counts[i].Store(0)
	}
}

// Add bins particle p into cell. Safe for concurrent use; returns false
// on overflow (the concurrent over-claims cancel out, leaving the count
// at capacity).
func (b *Bins) Add(cell int, p int32) bool {
	n := b.counts[cell].Add(1) - 1
	if int(n) >= b.Cap {
		b.counts[cell].Add(-1)
		return false
	}
	b.slots[cell*b.Cap+int(n)] = p
	return true
}

// Count returns the number of particles binned in cell.
func (b *Bins) Count(cell int) int {
	return int(b.counts[cell].Load())
}

// At returns a read-only view of the particles binned in cell. Valid
// only between the binning pass and the next Clear.
func (b *Bins) At(cell int) []int32 {
	n := b.Count(cell)
	return b.slots[cell*b.Cap : cell*b.Cap+n]
}

// CellOf maps a grid-space position to its cell index, or -1 outside
// the domain. Truncation only floors for non-negative values, so the
// negative band is rejected before converting.
func (b *Bins) CellOf(x, y float32) int {
	if x < 0 || y < 0 {
		return -1
	}
	cx := int(x)
	cy := int(y)
	if cx >= b.W || cy >= b.H {
		return -1
	}
	return cy*b.W + cx
}

// TotalBinned sums all cell counts. Never exceeds the live particle
// count; used by tests and telemetry.
func (b *Bins) TotalBinned() int {
	n := 0
	for i := range b.counts {
		n += int(b.counts[i].Load())
	}
	return n
}

// KillBinned marks every particle binned in cell dead. Called when a
// cell is overwritten by a non-liquid material or erased.
func KillBinned(s *Store, b *Bins, cell int) int {
	killed := 0
	for _, p := range b.At(cell) {
		if s.Mass[p] > 0 {
			s.Kill(int(p))
			killed++
		}
	}
	return killed
}
