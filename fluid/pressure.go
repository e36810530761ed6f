package fluid

import "github.com/pthm-cable/silt/grid"

// solvePressure runs a fixed number of Jacobi relaxation sweeps on the
// cell-centered pressure field. Jacobi reads only the previous
// iteration's values, so every sweep is a clean data-parallel pass;
// convergence per sweep is worse than Gauss-Seidel but the iteration
// count is fixed and the result is deterministic under any dispatch.
func (s *Solver) solvePressure(p Params, dispatch Dispatch) {
	s.computeDivergence(p, dispatch)

	src := s.Pressure.V
	dst := s.pScratch
	for i := range src {
		src[i] = 0
	}

	for it := 0; it < p.PressureIters; it++ {
		s.jacobiSweep(src, dst, p, dispatch)
		src, dst = dst, src
	}
	if &src[0] != &s.Pressure.V[0] {
		copy(s.Pressure.V, src)
	}
}

// computeDivergence fills the divergence right-hand side for every cell
// in the solve domain. Cells over rest density get a drift compensator
// subtracted so the projection actively pushes excess particles apart
// instead of merely conserving the crowded state.
func (s *Solver) computeDivergence(p Params, dispatch Dispatch) {
	w := s.W
	dispatch(w*s.H, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			if !s.inSolveDomain(i, p) {
				s.div[i] = 0
				continue
			}
			x := i % w
			y := i / w
			d := s.Vel.UAt(x+1, y) - s.Vel.UAt(x, y) +
				s.Vel.VAt(x, y+1) - s.Vel.VAt(x, y)
			if p.DensityDrift > 0 {
				if excess := s.Density.V[i] - p.RestDensity; excess > 0 {
					d -= p.DensityDrift * excess
				}
			}
			s.div[i] = d
		}
	})
}

// jacobiSweep computes one relaxation iteration from src into dst.
// Solid neighbors drop out of the stencil; air neighbors contribute
// zero pressure but still count in the denominator, which is what makes
// the free surface free.
func (s *Solver) jacobiSweep(src, dst []float32, p Params, dispatch Dispatch) {
	w := s.W
	dispatch(w*s.H, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			if !s.inSolveDomain(i, p) {
				dst[i] = 0
				continue
			}
			x := i % w
			y := i / w

			var sum float32
			n := 0
			if m := s.Marker.At(x-1, y); m != grid.MarkSolid {
				n++
				if m == grid.MarkFluid || p.AirMixing {
					sum += src[i-1]
				}
			}
			if m := s.Marker.At(x+1, y); m != grid.MarkSolid {
				n++
				if m == grid.MarkFluid || p.AirMixing {
					sum += src[i+1]
				}
			}
			if m := s.Marker.At(x, y-1); m != grid.MarkSolid {
				n++
				if m == grid.MarkFluid || p.AirMixing {
					sum += src[i-w]
				}
			}
			if m := s.Marker.At(x, y+1); m != grid.MarkSolid {
				n++
				if m == grid.MarkFluid || p.AirMixing {
					sum += src[i+w]
				}
			}
			if n == 0 {
				dst[i] = 0
				continue
			}
			dst[i] = (sum - s.div[i]) / float32(n)
		}
	})
}

// inSolveDomain reports whether cell i participates in the pressure
// solve. Air mixing widens the domain to air cells, which smooths
// sloshing at the surface at the cost of a softer liquid.
func (s *Solver) inSolveDomain(i int, p Params) bool {
	switch s.Marker.M[i] {
	case grid.MarkFluid:
		return true
	case grid.MarkAir:
		return p.AirMixing
	}
	return false
}

// applyPressure subtracts the pressure gradient from the face
// velocities. Face-centric: each face reads its two adjacent cells and
// is written exactly once, so the pass is race-free. Faces touching a
// solid cell are skipped; maskSolids owns those.
func (s *Solver) applyPressure(p Params, dispatch Dispatch) {
	w := s.W
	pr := s.Pressure.V

	dispatch((w+1)*s.H, func(i0, i1 int) {
		for f := i0; f < i1; f++ {
			x := f % (w + 1)
			y := f / (w + 1)
			if x == 0 || x == w {
				continue
			}
			l := y*w + x - 1
			r := y*w + x
			if s.Marker.M[l] == grid.MarkSolid || s.Marker.M[r] == grid.MarkSolid {
				continue
			}
			if !s.inSolveDomain(l, p) && !s.inSolveDomain(r, p) {
				continue
			}
			s.Vel.U[f] -= pr[r] - pr[l]
		}
	})
	dispatch(w*(s.H+1), func(i0, i1 int) {
		for f := i0; f < i1; f++ {
			x := f % w
			y := f / w
			if y == 0 || y == s.H {
				continue
			}
			u := (y-1)*w + x
			d := y*w + x
			if s.Marker.M[u] == grid.MarkSolid || s.Marker.M[d] == grid.MarkSolid {
				continue
			}
			if !s.inSolveDomain(u, p) && !s.inSolveDomain(d, p) {
				continue
			}
			s.Vel.V[f] -= pr[d] - pr[u]
		}
	})
}
