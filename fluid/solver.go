// Package fluid implements the hybrid particle-grid (FLIP/PIC) liquid
// solver. Each substep is a sequence of data-parallel passes over the
// particle or grid domain; passes communicate only through the shared
// fields and atomic accumulators, with an implicit barrier between
// dispatches.
package fluid

import (
	"github.com/pthm-cable/silt/grid"
	"github.com/pthm-cable/silt/particles"
)

// Dispatch runs fn over chunked subranges of [0, n). The driver plugs
// in its worker pool; tests use Serial.
type Dispatch func(n int, fn func(i0, i1 int))

// Serial is the single-threaded Dispatch.
func Serial(n int, fn func(i0, i1 int)) {
	fn(0, n)
}

// Params are the per-substep solver inputs. All of them are
// runtime-mutable from the UI layer.
type Params struct {
	Gravity          float32
	Viscosity        float32 // density-gated damping scale
	FlipRatio        float32
	SurfaceFlipRatio float32
	PressureIters    int
	RestDensity      float32
	DensityDrift     float32
	Interact         float32 // wet/interaction density threshold
	Render           float32 // full-liquid density threshold
	VelDamping       float32
	GridDamping      float32
	Vorticity        float32
	ExtrapolateIters int
	MaxSpeed         float32
	AirMixing        bool
	Dilate           bool
	DT               float32
	Radius           float32
	SepStrength      float32
	SepIters         int
}

// Push describes the interactive push tool.
type Push struct {
	X, Y    float32
	Radius  float32
	VX, VY  float32
	Enabled bool
}

// Solver owns the grid fields and scratch buffers of the liquid step.
// The particle store and bins are shared with the driver, which also
// applies spawns and kills against them.
type Solver struct {
	W, H int

	Store *particles.Store
	Bins  *particles.Bins

	Vel      *grid.Velocity
	PrevVel  *grid.Velocity
	Density  *grid.Field
	Pressure *grid.Field
	Marker   *grid.Marker

	denAcc  grid.Accumulator
	uAcc    grid.Accumulator
	uWeight grid.Accumulator
	vAcc    grid.Accumulator
	vWeight grid.Accumulator

	// Position snapshot for the separation sweep: neighbor reads come
	// from here while writes go to the store, so concurrent chunks
	// never observe each other's half-pushes.
	sepX []float32
	sepY []float32

	// Pressure-solve and enhancement scratch. Double buffers where a
	// pass reads what the previous iteration wrote.
	div        []float32
	pScratch   []float32
	markBase   []grid.Mark
	curl       []float32
	curlMag    []float32
	forceX     []float32
	forceY     []float32
	uValid     []uint8
	uValidNext []uint8
	vValid     []uint8
	vValidNext []uint8
}

// NewSolver allocates a solver for a w×h grid sharing the given
// particle store and bins.
func NewSolver(w, h int, store *particles.Store, bins *particles.Bins) *Solver {
	cells := w * h
	return &Solver{
		W: w, H: h,
		Store:    store,
		Bins:     bins,
		Vel:      grid.NewVelocity(w, h),
		PrevVel:  grid.NewVelocity(w, h),
		Density:  grid.NewField(w, h),
		Pressure: grid.NewField(w, h),
		Marker:   grid.NewMarker(w, h),

		denAcc:  grid.NewAccumulator(cells),
		uAcc:    grid.NewAccumulator((w + 1) * h),
		uWeight: grid.NewAccumulator((w + 1) * h),
		vAcc:    grid.NewAccumulator(w * (h + 1)),
		vWeight: grid.NewAccumulator(w * (h + 1)),

		sepX: make([]float32, store.Cap),
		sepY: make([]float32, store.Cap),

		div:        make([]float32, cells),
		pScratch:   make([]float32, cells),
		markBase:   make([]grid.Mark, cells),
		curl:       make([]float32, cells),
		curlMag:    make([]float32, cells),
		forceX:     make([]float32, cells),
		forceY:     make([]float32, cells),
		uValid:     make([]uint8, (w+1)*h),
		uValidNext: make([]uint8, (w+1)*h),
		vValid:     make([]uint8, w*(h+1)),
		vValidNext: make([]uint8, w*(h+1)),
	}
}

// RebuildBins clears and refills the per-cell particle index.
func (s *Solver) RebuildBins(dispatch Dispatch) {
	s.Bins.Clear()
	dispatch(s.Store.Cap, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			if s.Store.Mass[i] <= 0 {
				continue
			}
			cell := s.Bins.CellOf(s.Store.PosX[i], s.Store.PosY[i])
			if cell >= 0 {
				s.Bins.Add(cell, int32(i))
			}
		}
	})
}

// Substep advances the liquid by one fixed timestep. snap is the
// authoritative material snapshot for this frame; solidVX/solidVY is
// the transient velocity of freshly-moved grains.
func (s *Solver) Substep(snap *grid.Snapshot, solidVX, solidVY []float32, p Params, push Push, dispatch Dispatch) {
	n := s.Store.Cap

	// 1. Integrate particles under gravity and density-gated damping.
	dispatch(n, func(i0, i1 int) { s.integrate(snap, p, i0, i1) })

	// 2. Rebind particles to cells.
	s.RebuildBins(dispatch)

	// 3. Push overlapping particles apart.
	for it := 0; it < p.SepIters; it++ {
		s.separatePass(p, dispatch)
	}

	// 4-5. Splat mass and momentum onto the grid, then normalize.
	s.clearAccumulators()
	dispatch(n, func(i0, i1 int) { s.deposit(i0, i1) })
	s.normalize(dispatch)

	// 6. Classify cells for the pressure solve.
	s.classify(snap, p, dispatch)

	// 7. Impose solid-face velocities.
	s.maskSolids(snap, solidVX, solidVY, dispatch)

	// 8-9. Relax pressure and project the velocity field.
	s.solvePressure(p, dispatch)
	s.applyPressure(p, dispatch)
	s.maskSolids(snap, solidVX, solidVY, dispatch)

	// 10. Extrapolate velocities into adjacent air.
	if p.ExtrapolateIters > 0 {
		s.extrapolate(p.ExtrapolateIters, dispatch)
		s.maskSolids(snap, solidVX, solidVY, dispatch)
	}

	// 11. Bound energy growth from the fixed-point deposit cycle.
	s.Vel.Scale(p.GridDamping)

	// 12. Optional vorticity confinement.
	if p.Vorticity > 0 {
		s.confineVorticity(p, dispatch)
		s.maskSolids(snap, solidVX, solidVY, dispatch)
	}

	// 13. Optional interactive push.
	if push.Enabled {
		s.applyPush(push, dispatch)
		s.maskSolids(snap, solidVX, solidVY, dispatch)
	}

	// 14. Transfer grid velocities back to particles.
	dispatch(n, func(i0, i1 int) { s.transfer(snap, p, i0, i1) })
}

func (s *Solver) clearAccumulators() {
	s.denAcc.Clear()
	s.uAcc.Clear()
	s.uWeight.Clear()
	s.vAcc.Clear()
	s.vWeight.Clear()
}

// DivergenceResidual sums |divergence| over fluid cells. Telemetry and
// test hook for the pressure-residual property.
func (s *Solver) DivergenceResidual() float64 {
	var sum float64
	for j := 0; j < s.H; j++ {
		for i := 0; i < s.W; i++ {
			if s.Marker.At(i, j) != grid.MarkFluid {
				continue
			}
			d := s.Vel.UAt(i+1, j) - s.Vel.UAt(i, j) +
				s.Vel.VAt(i, j+1) - s.Vel.VAt(i, j)
			if d < 0 {
				d = -d
			}
			sum += float64(d)
		}
	}
	return sum
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
