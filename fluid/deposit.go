package fluid

import (
	"github.com/pthm-cable/silt/grid"
)

// splat accumulates value and weight onto the four nodes of a regular
// nx×ny lattice surrounding (gx, gy), bilinear weights, atomic adds.
func splat(acc, weight grid.Accumulator, nx, ny int, gx, gy, value, mass float32) {
	gx = clampf(gx, 0, float32(nx-1))
	gy = clampf(gy, 0, float32(ny-1))
	i0 := int(gx)
	j0 := int(gy)
	if i0 > nx-2 {
		i0 = nx - 2
	}
	if j0 > ny-2 {
		j0 = ny - 2
	}
	tx := gx - float32(i0)
	ty := gy - float32(j0)

	w00 := (1 - tx) * (1 - ty) * mass
	w10 := tx * (1 - ty) * mass
	w01 := (1 - tx) * ty * mass
	w11 := tx * ty * mass

	base := j0*nx + i0
	acc.Add(base, w00*value)
	acc.Add(base+1, w10*value)
	acc.Add(base+nx, w01*value)
	acc.Add(base+nx+1, w11*value)
	if weight != nil {
		weight.Add(base, w00)
		weight.Add(base+1, w10)
		weight.Add(base+nx, w01)
		weight.Add(base+nx+1, w11)
	}
}

// deposit splats mass onto cell centers and momentum onto the staggered
// faces for particles [i0, i1). The fixed-point accumulators stand in
// for float atomics; integer adds commute, so the result is independent
// of thread interleaving.
func (s *Solver) deposit(i0, i1 int) {
	for i := i0; i < i1; i++ {
		m := s.Store.Mass[i]
		if m <= 0 {
			continue
		}
		x := s.Store.PosX[i]
		y := s.Store.PosY[i]

		// Density at cell centers (i+0.5, j+0.5).
		splat(s.denAcc, nil, s.W, s.H, x-0.5, y-0.5, 1, m)

		// U on vertical faces (i, j+0.5), V on horizontal faces (i+0.5, j).
		splat(s.uAcc, s.uWeight, s.W+1, s.H, x, y-0.5, s.Store.VelX[i], m)
		splat(s.vAcc, s.vWeight, s.W, s.H+1, x-0.5, y, s.Store.VelY[i], m)
	}
}

// normalize divides accumulated momentum by accumulated weight and
// snapshots the result as the previous velocity for the FLIP delta.
// Zero weight yields zero velocity; never a division blowup.
func (s *Solver) normalize(dispatch Dispatch) {
	dispatch(s.W*s.H, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			s.Density.V[i] = s.denAcc.Load(i)
		}
	})
	dispatch((s.W+1)*s.H, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			w := s.uWeight.Load(i)
			if w > 1e-6 {
				s.Vel.U[i] = s.uAcc.Load(i) / w
			} else {
				s.Vel.U[i] = 0
			}
		}
	})
	dispatch(s.W*(s.H+1), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			w := s.vWeight.Load(i)
			if w > 1e-6 {
				s.Vel.V[i] = s.vAcc.Load(i) / w
			} else {
				s.Vel.V[i] = 0
			}
		}
	})
	s.PrevVel.CopyFrom(s.Vel)
}

// classify derives the Air/Fluid/Solid marker from the material
// snapshot, particle occupancy, and density, with optional one-ring
// dilation of fluid into dense air cells to close leaky boundaries.
func (s *Solver) classify(snap *grid.Snapshot, p Params, dispatch Dispatch) {
	dispatch(s.W*s.H, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			switch {
			case snap.Mat[i].Solid():
				s.markBase[i] = grid.MarkSolid
			case s.Bins.Count(i) > 0 || s.Density.V[i] >= p.Interact:
				s.markBase[i] = grid.MarkFluid
			default:
				s.markBase[i] = grid.MarkAir
			}
		}
	})

	if !p.Dilate {
		copy(s.Marker.M, s.markBase)
		return
	}

	dispatch(s.W*s.H, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			m := s.markBase[i]
			if m == grid.MarkAir && s.Density.V[i] > 0.05 {
				x := i % s.W
				y := i / s.W
				if s.baseMarkAt(x-1, y) == grid.MarkFluid ||
					s.baseMarkAt(x+1, y) == grid.MarkFluid ||
					s.baseMarkAt(x, y-1) == grid.MarkFluid ||
					s.baseMarkAt(x, y+1) == grid.MarkFluid {
					m = grid.MarkFluid
				}
			}
			s.Marker.M[i] = m
		}
	})
}

func (s *Solver) baseMarkAt(x, y int) grid.Mark {
	if x < 0 || x >= s.W || y < 0 || y >= s.H {
		return grid.MarkSolid
	}
	return s.markBase[y*s.W+x]
}

// maskSolids imposes solid velocities on solid-adjacent faces so liquid
// reacts to a moving grain, not just static walls. Face-centric: each
// face has exactly one writer, keeping the pass race-free.
func (s *Solver) maskSolids(snap *grid.Snapshot, solidVX, solidVY []float32, dispatch Dispatch) {
	w := s.W
	dispatch((w+1)*s.H, func(i0, i1 int) {
		for f := i0; f < i1; f++ {
			i := f % (w + 1)
			j := f / (w + 1)
			left := snap.At(i-1, j)
			right := snap.At(i, j)
			if left.Solid() {
				s.Vel.U[f] = solidU(snap, solidVX, w, i-1, j)
			} else if right.Solid() {
				s.Vel.U[f] = solidU(snap, solidVX, w, i, j)
			}
		}
	})
	dispatch(w*(s.H+1), func(i0, i1 int) {
		for f := i0; f < i1; f++ {
			i := f % w
			j := f / w
			up := snap.At(i, j-1)
			down := snap.At(i, j)
			if up.Solid() {
				s.Vel.V[f] = solidV(snap, solidVY, w, i, j-1)
			} else if down.Solid() {
				s.Vel.V[f] = solidV(snap, solidVY, w, i, j)
			}
		}
	})
}

// solidU returns the horizontal velocity carried by the solid cell at
// (x, y): the transient grain velocity inside the domain, zero for the
// static boundary.
func solidU(snap *grid.Snapshot, solidVX []float32, w, x, y int) float32 {
	if !snap.In(x, y) {
		return 0
	}
	return solidVX[y*w+x]
}

func solidV(snap *grid.Snapshot, solidVY []float32, w, x, y int) float32 {
	if !snap.In(x, y) {
		return 0
	}
	return solidVY[y*w+x]
}
