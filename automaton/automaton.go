// Package automaton resolves granular/solid movement for one frame.
//
// Movement is a pure function of the previous cell snapshot, the frame
// counter, and the hash seed. Conflicts are resolved by the gather
// pattern: every empty destination re-evaluates its neighbors' moves in
// a fixed priority order and accepts the first one targeting it, while
// each mover vacates only if it is the accepted candidate of its own
// target. Both sides evaluate the same pure function over the same
// read-only snapshot, so they always agree and no cell is written twice.
// Water cells gather like empty ones; a falling grain displaces liquid
// dense enough to count as water and settles beneath it.
package automaton

import (
	"github.com/pthm-cable/silt/grid"
)

// Params are the per-frame granular movement inputs.
type Params struct {
	Fluidity  float32 // 0..1 settle-chance scale
	Interact  float32 // density at which a grain counts as wet
	SolidPush float32 // velocity stamped on a receiving cell
	Seed      uint64
}

// settleSalt decorrelates settle rolls from other hash uses at the
// same position and frame.
const settleSalt = 0x5117

// materialFluidity scales the settle chance per material.
func materialFluidity(m grid.Material) float32 {
	switch m {
	case grid.Sand:
		return 1.0
	case grid.Lava:
		return 0.35
	case grid.Steam:
		return 0.8
	}
	return 0
}

// settleChance returns the base probability band for a grain's age.
// Bands shift at ages 10, 30 and 60; old grains nearly never move.
func settleChance(age uint16) float32 {
	switch {
	case age < 10:
		return 0.80
	case age < 30:
		return 0.40
	case age < 60:
		return 0.15
	}
	return 0.03
}

// Movement returns the displacement a grain at (x, y) wants this frame:
// one of (0,dn), (±1,dn), (±1,0), (0,0), where dn is +1 for falling
// materials and -1 for rising ones. Pure: reads only the prior snapshot
// and derived fields.
func Movement(prev *grid.Snapshot, density *grid.Field, vel *grid.Velocity, x, y int, frame uint32, p Params) (int, int) {
	m := prev.At(x, y)
	if !m.Granular() {
		return 0, 0
	}

	dn := 1
	if m.Rises() {
		dn = -1
	}

	// Fall straight: highest priority. Falling grains also displace
	// liquid cells dense enough to count as water; the displaced
	// particles are evicted upward by the solver.
	below := prev.At(x, y+dn)
	if below == grid.Empty {
		return 0, dn
	}
	if dn == 1 && below == grid.Water && density.At(x, y+dn) >= p.Interact {
		return 0, dn
	}

	// Diagonal fall: both the diagonal target and the sideways cell
	// must be open, so a grain above the target keeps its priority.
	leftOK := prev.At(x-1, y) == grid.Empty && prev.At(x-1, y+dn) == grid.Empty
	rightOK := prev.At(x+1, y) == grid.Empty && prev.At(x+1, y+dn) == grid.Empty
	if leftOK && rightOK {
		// Tie between open diagonals: follow the local fluid drift if
		// it is decisive, else checkerboard parity.
		u := vel.SampleU(float32(x)+0.5, float32(y)+0.5)
		switch {
		case u < -0.01:
			return -1, dn
		case u > 0.01:
			return 1, dn
		case grid.Parity(x, y, frame):
			return -1, dn
		default:
			return 1, dn
		}
	}
	if leftOK {
		return -1, dn
	}
	if rightOK {
		return 1, dn
	}

	// No fall possible: roll for a sideways settle.
	chance := settleChance(prev.MetaAt(x, y).Age()) * p.Fluidity * materialFluidity(m)
	if density.At(x, y) >= p.Interact {
		chance *= 0.5 // wet grains resist movement
	}
	if grid.Hash01(x, y, frame, p.Seed^settleSalt) >= chance {
		return 0, 0
	}

	first, second := 1, -1
	if grid.Parity(x, y, frame) {
		first, second = -1, 1
	}
	if slideOpen(prev, x, y, first, dn, frame) {
		return first, 0
	}
	if slideOpen(prev, x, y, second, dn, frame) {
		return second, 0
	}
	return 0, 0
}

// slideOpen reports whether sliding one cell toward dir leads to an
// eventual fall: either immediately past the slide, or after a second
// slide. A grain two cells away that would claim the same intermediate
// cell suppresses the slide for whichever side loses the parity break.
func slideOpen(prev *grid.Snapshot, x, y, dir, dn int, frame uint32) bool {
	if prev.At(x+dir, y) != grid.Empty {
		return false
	}
	// The grain two cells over competes for the intermediate cell when
	// it is itself blocked from falling straight.
	far := prev.At(x+2*dir, y)
	if far.Granular() && prev.At(x+2*dir, y+dn) != grid.Empty {
		// Deterministic tiebreak: the left cell of the pair wins on
		// even parity of the contested cell, the right cell otherwise.
		leftWins := grid.Parity(x+dir, y, frame)
		if (dir > 0) == leftWins {
			return false
		}
	}
	// Fall right after the slide.
	if prev.At(x+dir, y+dn) == grid.Empty {
		return true
	}
	// Fall after a second slide.
	if prev.At(x+2*dir, y) == grid.Empty && prev.At(x+2*dir, y+dn) == grid.Empty {
		return true
	}
	return false
}

// candidate offsets from an empty destination, in acceptance priority.
// Falling sources first: straight above, slides from the sides, then
// the upper diagonals. Rising sources mirror them below. The left/right
// order within each pair flips with the destination's parity.
func candidateOffsets(x, y int, frame uint32) [8][2]int {
	s := 1
	if grid.Parity(x, y, frame) {
		s = -1
	}
	return [8][2]int{
		{0, -1},       // grain above falling in
		{s, 0},        // slide in, preferred side first
		{-s, 0},       //
		{s, -1},       // diagonal falls
		{-s, -1},      //
		{0, 1},        // steam below rising in
		{s, 1},        // rising diagonals
		{-s, 1},       //
	}
}

// Accepted returns the source cell whose move into the open cell
// (x, y) wins this frame, or ok=false if no neighbor targets it. Open
// means empty, or liquid that a sinking grain may displace.
func Accepted(prev *grid.Snapshot, density *grid.Field, vel *grid.Velocity, x, y int, frame uint32, p Params) (int, int, bool) {
	if d := prev.At(x, y); d != grid.Empty && d != grid.Water {
		return 0, 0, false
	}
	for _, off := range candidateOffsets(x, y, frame) {
		sx, sy := x+off[0], y+off[1]
		if !prev.In(sx, sy) || !prev.At(sx, sy).Granular() {
			continue
		}
		dx, dy := Movement(prev, density, vel, sx, sy, frame, p)
		if dx == 0 && dy == 0 {
			continue
		}
		if sx+dx == x && sy+dy == y {
			return sx, sy, true
		}
	}
	return 0, 0, false
}

// StepRange advances cells [i0, i1) of the snapshot. Each invocation
// writes only its own next-buffer cells plus the solid-velocity entry
// of cells it accepts a grain into, so ranges can run fully parallel.
func StepRange(prev, next *grid.Snapshot, solidVX, solidVY []float32, density *grid.Field, vel *grid.Velocity, frame uint32, p Params, i0, i1 int) {
	w := prev.W
	for i := i0; i < i1; i++ {
		x := i % w
		y := i / w
		m := prev.Mat[i]

		switch {
		case m == grid.Empty || m == grid.Water:
			sx, sy, ok := Accepted(prev, density, vel, x, y, frame, p)
			if !ok {
				// Water copies through; the driver reclassifies
				// liquid cells from density after the substeps.
				next.Mat[i] = m
				next.Meta[i] = prev.Meta[i]
				continue
			}
			next.Mat[i] = prev.At(sx, sy)
			next.Meta[i] = prev.MetaAt(sx, sy).Moved()
			solidVX[i] = float32(x-sx) * p.SolidPush
			solidVY[i] = float32(y-sy) * p.SolidPush

		case m.Immovable():
			next.Mat[i] = m
			next.Meta[i] = 0

		case m.Granular():
			dx, dy := Movement(prev, density, vel, x, y, frame, p)
			if dx != 0 || dy != 0 {
				// Vacate only if our target accepts us; the target
				// evaluates the identical function, so this agrees
				// with its own gather.
				ax, ay, ok := Accepted(prev, density, vel, x+dx, y+dy, frame, p)
				if ok && ax == x && ay == y {
					next.Mat[i] = grid.Empty
					next.Meta[i] = 0
					continue
				}
			}
			next.Mat[i] = m
			next.Meta[i] = prev.Meta[i].Aged()

		default:
			next.Mat[i] = m
			next.Meta[i] = prev.Meta[i]
		}
	}
}

// Step advances the whole snapshot serially. Test and headless path;
// the driver dispatches StepRange over its worker pool instead.
func Step(prev, next *grid.Snapshot, solidVX, solidVY []float32, density *grid.Field, vel *grid.Velocity, frame uint32, p Params) {
	StepRange(prev, next, solidVX, solidVY, density, vel, frame, p, 0, prev.W*prev.H)
}
