package grid

// Snapshot is one buffer of the double-buffered cell state. A pass reads
// one snapshot and writes the other; in-place mutation is never allowed.
type Snapshot struct {
	W, H int
	Mat  []Material
	Meta []Meta
}

// Idx converts cell coordinates to a flat index. No bounds check.
func (s *Snapshot) Idx(x, y int) int {
	return y*s.W + x
}

// In reports whether (x, y) is inside the domain.
func (s *Snapshot) In(x, y int) bool {
	return x >= 0 && x < s.W && y >= 0 && y < s.H
}

// At returns the material at (x, y), treating out-of-domain as Wall so
// edge cells never need special-casing.
func (s *Snapshot) At(x, y int) Material {
	if !s.In(x, y) {
		return Wall
	}
	return s.Mat[y*s.W+x]
}

// MetaAt returns the grain metadata at (x, y), zero outside the domain.
func (s *Snapshot) MetaAt(x, y int) Meta {
	if !s.In(x, y) {
		return 0
	}
	return s.Meta[y*s.W+x]
}

// Cells owns both snapshots plus the transient solid-velocity layer.
// The front index is explicit state flipped by the driver; no package
// tracks a "current buffer" on its own.
type Cells struct {
	W, H int

	bufs  [2]Snapshot
	front int

	// Solid velocity: set only on cells that just received a grain,
	// cleared at the start of every automaton step. Single-buffered
	// because it is fully rewritten before anything reads it.
	SolidVX []float32
	SolidVY []float32
}

// NewCells allocates an empty double-buffered cell store.
func NewCells(w, h int) *Cells {
	c := &Cells{W: w, H: h}
	for i := range c.bufs {
		c.bufs[i] = Snapshot{
			W:    w,
			H:    h,
			Mat:  make([]Material, w*h),
			Meta: make([]Meta, w*h),
		}
	}
	c.SolidVX = make([]float32, w*h)
	c.SolidVY = make([]float32, w*h)
	return c
}

// Front returns the snapshot holding the authoritative current state.
func (c *Cells) Front() *Snapshot {
	return &c.bufs[c.front]
}

// Back returns the snapshot the next pass writes into.
func (c *Cells) Back() *Snapshot {
	return &c.bufs[1-c.front]
}

// Flip swaps front and back after a writing pass completes.
func (c *Cells) Flip() {
	c.front = 1 - c.front
}

// ClearSolidVelocity zeroes the transient velocity layer.
func (c *Cells) ClearSolidVelocity() {
	for i := range c.SolidVX {
		c.SolidVX[i] = 0
		c.SolidVY[i] = 0
	}
}

// Set writes material and meta into the front buffer directly. Reserved
// for spawn application and terrain setup, which run between passes
// while no snapshot is being read.
func (c *Cells) Set(x, y int, m Material, meta Meta) {
	if x < 0 || x >= c.W || y < 0 || y >= c.H {
		return
	}
	i := y*c.W + x
	f := c.Front()
	f.Mat[i] = m
	f.Meta[i] = meta
}

// CountMaterial returns how many front-buffer cells hold m.
func (c *Cells) CountMaterial(m Material) int {
	n := 0
	for _, v := range c.Front().Mat {
		if v == m {
			n++
		}
	}
	return n
}
