// Package sim owns the frame driver: it sequences the granular
// automaton, the liquid substeps, material reactions, and brush input
// into one deterministic tick, dispatching the data-parallel passes
// over a persistent worker pool.
package sim

import (
	"github.com/pthm-cable/silt/automaton"
	"github.com/pthm-cable/silt/config"
	"github.com/pthm-cable/silt/fluid"
	"github.com/pthm-cable/silt/grid"
	"github.com/pthm-cable/silt/particles"
)

// Hash salts keeping the driver's rolls decorrelated from the
// automaton's settle rolls at the same position and frame.
const (
	spawnSalt    = 0x51A0
	reactSalt    = 0x51B0
	condenseSalt = 0x51C0
)

// condenseAge is the stationary age at which steam starts rolling to
// condense back into liquid.
const condenseAge = 180

// brushOp is one queued paint or erase request. Ops accumulate between
// frames and apply at the top of the next Step, never mid-pass.
type brushOp struct {
	X, Y   int
	Radius int
	Mat    grid.Material
	Erase  bool
}

// Sim is the whole simulation state.
type Sim struct {
	W, H int

	Cells  *grid.Cells
	Store  *particles.Store
	Bins   *particles.Bins
	Solver *fluid.Solver
	Pool   *Pool

	// Dispatch runs the data-parallel passes. Defaults to the worker
	// pool; bit-exact replays swap in fluid.Serial, since bin slot
	// order under the pool depends on scheduling.
	Dispatch fluid.Dispatch

	// Runtime-tunable parameter blocks, initialized from config and
	// mutated by the UI.
	Auto     automaton.Params
	Fluid    fluid.Params
	Push     fluid.Push
	Substeps int

	Frame uint32
	Seed  uint64

	perCell     int
	spawnJitter float32

	brushQueue []brushOp
	eraseMask  []bool

	// Per-frame reaction tallies for telemetry.
	RockFormed     int
	SteamFormed    int
	SteamCondensed int
}

// New builds a simulation from the loaded config.
func New(cfg *config.Config) *Sim {
	w := cfg.Grid.Width
	h := cfg.Grid.Height

	store := particles.NewStore(cfg.Derived.MaxParticles)
	bins := particles.NewBins(w, h, cfg.Particles.MaxPerBin)

	s := &Sim{
		W: w, H: h,
		Cells:  grid.NewCells(w, h),
		Store:  store,
		Bins:   bins,
		Solver: fluid.NewSolver(w, h, store, bins),
		Pool:   NewPool(),

		Substeps:    cfg.Sim.Substeps,
		Seed:        uint64(cfg.Sim.Seed),
		perCell:     cfg.Particles.PerCell,
		spawnJitter: float32(cfg.Particles.SpawnJitter),
	}
	s.Dispatch = s.Pool.Run

	s.Auto = automaton.Params{
		Fluidity:  cfg.Derived.Fluidity01,
		Interact:  cfg.Derived.Interact32,
		SolidPush: float32(cfg.Sand.SolidPush),
		Seed:      s.Seed,
	}
	s.Fluid = fluid.Params{
		Gravity:          cfg.Derived.Gravity32,
		Viscosity:        float32(cfg.Fluid.Viscosity),
		FlipRatio:        float32(cfg.Fluid.FlipRatio),
		SurfaceFlipRatio: float32(cfg.Fluid.SurfaceFlipRatio),
		PressureIters:    cfg.Fluid.PressureIters,
		RestDensity:      float32(cfg.Fluid.RestDensity),
		DensityDrift:     float32(cfg.Fluid.DensityDrift),
		Interact:         cfg.Derived.Interact32,
		Render:           cfg.Derived.Render32,
		VelDamping:       float32(cfg.Fluid.VelocityDamping),
		GridDamping:      float32(cfg.Fluid.GridDamping),
		Vorticity:        float32(cfg.Fluid.VorticityStrength),
		ExtrapolateIters: cfg.Fluid.ExtrapolateIters,
		MaxSpeed:         float32(cfg.Fluid.MaxSpeed),
		AirMixing:        cfg.Fluid.AirMixing,
		Dilate:           true,
		DT:               cfg.Derived.DT32,
		Radius:           cfg.Derived.Radius32,
		SepStrength:      float32(cfg.Particles.SeparationStrength),
		SepIters:         cfg.Particles.SeparationIters,
	}

	s.rebuildFreeList()
	GeneratePreset(s, cfg.Sim.Preset)
	return s
}

// Close stops the worker pool.
func (s *Sim) Close() {
	s.Pool.Stop()
}

// Paint queues a circular brush stroke of the given material. Water
// paints particles; everything else paints cells.
func (s *Sim) Paint(x, y, radius int, m grid.Material) {
	s.brushQueue = append(s.brushQueue, brushOp{X: x, Y: y, Radius: radius, Mat: m})
}

// Erase queues a circular erase: cells cleared, particles killed.
func (s *Sim) Erase(x, y, radius int) {
	s.brushQueue = append(s.brushQueue, brushOp{X: x, Y: y, Radius: radius, Erase: true})
}

// Step advances the simulation one frame: brush application, one
// automaton pass, particle eviction, the configured number of fluid
// substeps, material reactions, and liquid-cell reclassification.
func (s *Sim) Step() {
	dispatch := s.Dispatch

	s.rebuildFreeList()
	s.applyBrush()

	// Granular pass: read front, write back, flip. The automaton reads
	// last frame's density and velocity fields, which is exactly the
	// one-frame lag the wet-sand coupling wants.
	s.Cells.ClearSolidVelocity()
	prev := s.Cells.Front()
	next := s.Cells.Back()
	dispatch(s.W*s.H, func(i0, i1 int) {
		automaton.StepRange(prev, next, s.Cells.SolidVX, s.Cells.SolidVY,
			s.Solver.Density, s.Solver.Vel, s.Frame, s.Auto, i0, i1)
	})
	s.Cells.Flip()

	// Particles caught under a freshly-landed grain get pushed out
	// before the solver sees them.
	snap := s.Cells.Front()
	dispatch(s.Store.Cap, func(i0, i1 int) {
		s.Solver.Evict(snap, s.Cells.SolidVX, s.Cells.SolidVY, i0, i1)
	})

	for i := 0; i < s.Substeps; i++ {
		s.Solver.Substep(snap, s.Cells.SolidVX, s.Cells.SolidVY, s.Fluid, s.Push, dispatch)
	}

	s.applyReactions()
	s.reclassifyLiquid()

	s.Frame++
}

// StepPaused keeps read-side state fresh while the clock is stopped:
// bins are rebuilt against current particle positions so display modes
// and cell queries stay in sync, but nothing mutates and the frame
// counter holds. Queued brush ops wait for the next live Step.
func (s *Sim) StepPaused() {
	s.Solver.RebuildBins(s.Dispatch)
}

// rebuildFreeList rescans the particle pool for dead slots.
func (s *Sim) rebuildFreeList() {
	s.Store.ResetFreeList()
	s.Dispatch(s.Store.Cap, func(i0, i1 int) {
		s.Store.ScanFree(i0, i1)
	})
}

// applyBrush drains the queued ops into the front buffer and the
// particle store. Runs between passes, so direct front writes are safe.
// Erased and solidified cells accumulate in a mask; the particles in
// them die in one store pass at the end, which also catches particles
// the bins soft-clipped.
func (s *Sim) applyBrush() {
	if len(s.brushQueue) == 0 {
		return
	}
	if s.eraseMask == nil {
		s.eraseMask = make([]bool, s.W*s.H)
	}
	masked := false
	for _, op := range s.brushQueue {
		r2 := op.Radius * op.Radius
		for oy := -op.Radius; oy <= op.Radius; oy++ {
			for ox := -op.Radius; ox <= op.Radius; ox++ {
				if ox*ox+oy*oy > r2 {
					continue
				}
				x, y := op.X+ox, op.Y+oy
				if x < 0 || x >= s.W || y < 0 || y >= s.H {
					continue
				}
				if s.applyBrushCell(x, y, op) {
					masked = true
				}
			}
		}
	}
	s.brushQueue = s.brushQueue[:0]

	if !masked {
		return
	}
	for i := 0; i < s.Store.Cap; i++ {
		if s.Store.Mass[i] <= 0 {
			continue
		}
		cell := s.Bins.CellOf(s.Store.PosX[i], s.Store.PosY[i])
		if cell >= 0 && s.eraseMask[cell] {
			s.Store.Kill(i)
		}
	}
	for i := range s.eraseMask {
		s.eraseMask[i] = false
	}
}

// applyBrushCell applies one op to one cell, reporting whether the cell
// was added to the particle-kill mask.
func (s *Sim) applyBrushCell(x, y int, op brushOp) bool {
	front := s.Cells.Front()
	cell := y*s.W + x

	if op.Erase {
		s.Cells.Set(x, y, grid.Empty, 0)
		s.eraseMask[cell] = true
		return true
	}

	switch op.Mat {
	case grid.Water:
		if front.Mat[cell].Solid() {
			return false
		}
		s.seedCell(x, y)
	case grid.Empty:
		// Painting Empty is an erase without the particle kill.
		s.Cells.Set(x, y, grid.Empty, 0)
	default:
		if front.Mat[cell] != grid.Empty && front.Mat[cell] != grid.Water {
			return false
		}
		cv := uint8(grid.Hash(x, y, s.Frame, s.Seed^spawnSalt))
		s.Cells.Set(x, y, op.Mat, grid.PackMeta(0, cv))
		// A cell turning solid entombs whatever liquid was in it.
		if op.Mat.Solid() {
			s.eraseMask[cell] = true
			return true
		}
	}
	return false
}

// seedCell spawns a cell's worth of liquid particles on a jittered
// sub-grid. Spawning respects pool capacity; overflow is dropped.
func (s *Sim) seedCell(x, y int) {
	side := 1
	for side*side < s.perCell {
		side++
	}
	spacing := 1.0 / float32(side)
	n := 0
	for sy := 0; sy < side && n < s.perCell; sy++ {
		for sx := 0; sx < side && n < s.perCell; sx++ {
			h := grid.Hash(x*side+sx, y*side+sy, s.Frame, s.Seed^spawnSalt)
			jx := (float32(h&0xFF)/255 - 0.5) * s.spawnJitter * spacing
			jy := (float32((h>>8)&0xFF)/255 - 0.5) * s.spawnJitter * spacing
			px := float32(x) + (float32(sx)+0.5)*spacing + jx
			py := float32(y) + (float32(sy)+0.5)*spacing + jy
			if !s.Store.Spawn(px, py, 0, 0) {
				return
			}
			n++
		}
	}
}

// applyReactions runs the material couplings on the front buffer:
// wet lava hardens to rock and boils off steam; old steam condenses
// back to liquid. Serial pass; reaction rates keep the per-frame cell
// count tiny.
func (s *Sim) applyReactions() {
	s.RockFormed = 0
	s.SteamFormed = 0
	s.SteamCondensed = 0

	front := s.Cells.Front()
	for y := 0; y < s.H; y++ {
		for x := 0; x < s.W; x++ {
			i := y*s.W + x
			switch front.Mat[i] {
			case grid.Lava:
				s.reactLava(front, x, y, i)
			case grid.Steam:
				s.reactSteam(front, x, y, i)
			}
		}
	}
}

// reactLava hardens a lava cell that liquid is touching. The contacting
// particles boil: they die and the cell above the lava fills with steam.
func (s *Sim) reactLava(front *grid.Snapshot, x, y, i int) {
	if s.Solver.Density.V[i] < s.Fluid.Interact && !s.wetNeighbor(x, y) {
		return
	}
	cv := front.Meta[i].ColorVar()
	s.Cells.Set(x, y, grid.Rock, grid.PackMeta(0, cv))
	s.RockFormed++

	boiled := 0
	for _, off := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, ny := x+off[0], y+off[1]
		if nx < 0 || nx >= s.W || ny < 0 || ny >= s.H {
			continue
		}
		boiled += particles.KillBinned(s.Store, s.Bins, ny*s.W+nx)
	}
	if boiled > 0 && front.At(x, y-1) == grid.Empty {
		scv := uint8(grid.Hash(x, y-1, s.Frame, s.Seed^reactSalt))
		s.Cells.Set(x, y-1, grid.Steam, grid.PackMeta(0, scv))
		s.SteamFormed++
	}
}

// reactSteam rolls an aged steam cell to condense. Condensation turns
// the cell back into liquid particles in place.
func (s *Sim) reactSteam(front *grid.Snapshot, x, y, i int) {
	if front.Meta[i].Age() < condenseAge {
		return
	}
	if grid.Hash01(x, y, s.Frame, s.Seed^condenseSalt) >= 0.02 {
		return
	}
	s.Cells.Set(x, y, grid.Empty, 0)
	s.seedCell(x, y)
	s.SteamCondensed++
}

// wetNeighbor reports whether any 4-neighbor of (x, y) holds liquid.
func (s *Sim) wetNeighbor(x, y int) bool {
	for _, off := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, ny := x+off[0], y+off[1]
		if nx < 0 || nx >= s.W || ny < 0 || ny >= s.H {
			continue
		}
		i := ny*s.W + nx
		if s.Solver.Density.V[i] >= s.Fluid.Interact && s.Bins.Count(i) > 0 {
			return true
		}
	}
	return false
}

// reclassifyLiquid syncs the display material with the particle field:
// empty cells dense enough to read as liquid become Water, Water cells
// the particles have left become Empty. Water cells a sinking grain
// displaced already hold the grain by the time this pass runs.
func (s *Sim) reclassifyLiquid() {
	front := s.Cells.Front()
	s.Dispatch(s.W*s.H, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			switch front.Mat[i] {
			case grid.Empty:
				if s.Solver.Density.V[i] >= s.Fluid.Render && s.Bins.Count(i) > 0 {
					front.Mat[i] = grid.Water
					front.Meta[i] = 0
				}
			case grid.Water:
				if s.Bins.Count(i) == 0 || s.Solver.Density.V[i] < s.Fluid.Interact {
					front.Mat[i] = grid.Empty
					front.Meta[i] = 0
				}
			}
		}
	})
}

// LiveParticles reports the current live particle count.
func (s *Sim) LiveParticles() int {
	return s.Store.LiveCount()
}
