package fluid

import (
	"math"

	"github.com/pthm-cable/silt/grid"
)

// integrate advances particles [i0, i1): gravity, density-gated
// viscosity damping, advection, domain clamp, and axis-separated solid
// rejection. Movement into a solid cell reverts that axis and zeroes
// its velocity component so particles slide along surfaces instead of
// sticking to them.
func (s *Solver) integrate(snap *grid.Snapshot, p Params, i0, i1 int) {
	dt := p.DT
	r := p.Radius
	maxX := float32(s.W) - r
	maxY := float32(s.H) - r

	for i := i0; i < i1; i++ {
		if s.Store.Mass[i] <= 0 {
			continue
		}
		x := s.Store.PosX[i]
		y := s.Store.PosY[i]
		vx := s.Store.VelX[i]
		vy := s.Store.VelY[i]

		vy += p.Gravity * dt

		// Damping ramps in as local density crosses from the interact
		// threshold to the render threshold.
		if p.Viscosity > 0 {
			d := s.Density.Sample(x, y)
			t := clampf((d-p.Interact)/(p.Render-p.Interact), 0, 1)
			k := 1 - p.Viscosity*t*dt
			if k < 0 {
				k = 0
			}
			vx *= k
			vy *= k
		}

		nx := clampf(x+vx*dt, r, maxX)
		if snap.At(int(nx), int(y)).Solid() {
			nx = x
			vx = 0
		}
		ny := clampf(y+vy*dt, r, maxY)
		if snap.At(int(nx), int(ny)).Solid() {
			ny = y
			vy = 0
		}

		s.Store.PosX[i] = nx
		s.Store.PosY[i] = ny
		s.Store.VelX[i] = vx
		s.Store.VelY[i] = vy
	}
}

// separatePass runs one separation sweep: positions are copied into
// the sweep snapshot, then the per-particle push dispatches over it.
func (s *Solver) separatePass(p Params, dispatch Dispatch) {
	copy(s.sepX, s.Store.PosX)
	copy(s.sepY, s.Store.PosY)
	dispatch(s.Store.Cap, func(i0, i1 int) { s.separate(p, i0, i1) })
}

// separate pushes apart particle pairs closer than twice the particle
// radius, scanning the 3×3 bin neighborhood. All positions are read
// from the sweep-start snapshot and each particle writes only its own
// store slot, so chunks never race; both members of a pair compute the
// symmetric half-push from the same snapshot.
func (s *Solver) separate(p Params, i0, i1 int) {
	minDist := 2 * p.Radius
	minDist2 := minDist * minDist

	for i := i0; i < i1; i++ {
		if s.Store.Mass[i] <= 0 {
			continue
		}
		px := s.sepX[i]
		py := s.sepY[i]
		cx := int(px)
		cy := int(py)

		var dx, dy float32
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				nx, ny := cx+ox, cy+oy
				if nx < 0 || nx >= s.W || ny < 0 || ny >= s.H {
					continue
				}
				for _, j := range s.Bins.At(ny*s.W + nx) {
					if int(j) == i || s.Store.Mass[j] <= 0 {
						continue
					}
					ddx := px - s.sepX[j]
					ddy := py - s.sepY[j]
					d2 := ddx*ddx + ddy*ddy
					if d2 >= minDist2 || d2 < 1e-12 {
						continue
					}
					d := float32(math.Sqrt(float64(d2)))
					push := p.SepStrength * (minDist - d) * 0.5 / d
					dx += ddx * push
					dy += ddy * push
				}
			}
		}
		s.Store.PosX[i] = clampf(px+dx, p.Radius, float32(s.W)-p.Radius)
		s.Store.PosY[i] = clampf(py+dy, p.Radius, float32(s.H)-p.Radius)
	}
}

// Evict relocates particles [i0, i1) that ended up inside a solid cell
// to the nearest open neighbor, preferring the direction opposite the
// solid's own motion. Velocity is zeroed on relocation.
func (s *Solver) Evict(snap *grid.Snapshot, solidVX, solidVY []float32, i0, i1 int) {
	for i := i0; i < i1; i++ {
		if s.Store.Mass[i] <= 0 {
			continue
		}
		cx := int(s.Store.PosX[i])
		cy := int(s.Store.PosY[i])
		if !snap.In(cx, cy) || !snap.At(cx, cy).Solid() {
			continue
		}

		cell := cy*s.W + cx
		svx := solidVX[cell]
		svy := solidVY[cell]

		bestX, bestY := -1, -1
		var bestScore float32 = -1e30
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				if ox == 0 && oy == 0 {
					continue
				}
				nx, ny := cx+ox, cy+oy
				if !snap.In(nx, ny) || snap.At(nx, ny).Solid() {
					continue
				}
				// Alignment against the solid's velocity ranks first;
				// cardinal neighbors beat diagonals on ties.
				score := -(svx*float32(ox) + svy*float32(oy))
				score -= 0.1 * float32(ox*ox+oy*oy)
				if score > bestScore {
					bestScore = score
					bestX, bestY = nx, ny
				}
			}
		}
		if bestX < 0 {
			// Entombed: no open neighbor this frame. Kill the particle
			// rather than leave it inside a solid.
			s.Store.Kill(i)
			continue
		}
		s.Store.PosX[i] = float32(bestX) + 0.5
		s.Store.PosY[i] = float32(bestY) + 0.5
		s.Store.VelX[i] = 0
		s.Store.VelY[i] = 0
	}
}
