package fluid

import (
	"math"

	"github.com/pthm-cable/silt/grid"
)

// extrapolate pushes known face velocities one ring per iteration into
// faces that carried no particle weight, so particles sampling just
// past the surface see a continuous field instead of a hard zero.
// Validity and velocity are double-buffered per iteration.
func (s *Solver) extrapolate(iters int, dispatch Dispatch) {
	w := s.W
	nu := (w + 1) * s.H
	nv := w * (s.H + 1)

	dispatch(nu, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			if s.uWeight.Load(i) > 1e-6 {
				s.uValid[i] = 1
			} else {
				s.uValid[i] = 0
			}
		}
	})
	dispatch(nv, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			if s.vWeight.Load(i) > 1e-6 {
				s.vValid[i] = 1
			} else {
				s.vValid[i] = 0
			}
		}
	})

	for it := 0; it < iters; it++ {
		dispatch(nu, func(i0, i1 int) {
			for f := i0; f < i1; f++ {
				s.uValidNext[f] = s.uValid[f]
				if s.uValid[f] == 1 {
					continue
				}
				x := f % (w + 1)
				y := f / (w + 1)
				var sum float32
				n := 0
				if x > 0 && s.uValid[f-1] == 1 {
					sum += s.Vel.U[f-1]
					n++
				}
				if x < w && s.uValid[f+1] == 1 {
					sum += s.Vel.U[f+1]
					n++
				}
				if y > 0 && s.uValid[f-(w+1)] == 1 {
					sum += s.Vel.U[f-(w+1)]
					n++
				}
				if y < s.H-1 && s.uValid[f+(w+1)] == 1 {
					sum += s.Vel.U[f+(w+1)]
					n++
				}
				if n > 0 {
					s.Vel.U[f] = sum / float32(n)
					s.uValidNext[f] = 1
				}
			}
		})
		dispatch(nv, func(i0, i1 int) {
			for f := i0; f < i1; f++ {
				s.vValidNext[f] = s.vValid[f]
				if s.vValid[f] == 1 {
					continue
				}
				x := f % w
				y := f / w
				var sum float32
				n := 0
				if x > 0 && s.vValid[f-1] == 1 {
					sum += s.Vel.V[f-1]
					n++
				}
				if x < w-1 && s.vValid[f+1] == 1 {
					sum += s.Vel.V[f+1]
					n++
				}
				if y > 0 && s.vValid[f-w] == 1 {
					sum += s.Vel.V[f-w]
					n++
				}
				if y < s.H && s.vValid[f+w] == 1 {
					sum += s.Vel.V[f+w]
					n++
				}
				if n > 0 {
					s.Vel.V[f] = sum / float32(n)
					s.vValidNext[f] = 1
				}
			}
		})
		s.uValid, s.uValidNext = s.uValidNext, s.uValid
		s.vValid, s.vValidNext = s.vValidNext, s.vValid
	}
}

// confineVorticity measures per-cell curl, then nudges face velocities
// toward the local vortex centers to restore rotational detail the
// grid transfer smears out. Three passes: curl, curl magnitude
// gradient into per-cell forces, face-averaged application.
func (s *Solver) confineVorticity(p Params, dispatch Dispatch) {
	w := s.W
	h := s.H
	cells := w * h

	dispatch(cells, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			x := i % w
			y := i / w
			c := (s.Vel.VAt(x+1, y) + s.Vel.VAt(x+1, y+1) -
				s.Vel.VAt(x-1, y) - s.Vel.VAt(x-1, y+1)) * 0.25
			c -= (s.Vel.UAt(x, y+1) + s.Vel.UAt(x+1, y+1) -
				s.Vel.UAt(x, y-1) - s.Vel.UAt(x+1, y-1)) * 0.25
			s.curl[i] = c
			s.curlMag[i] = float32(math.Abs(float64(c)))
		}
	})

	dispatch(cells, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			if s.Marker.M[i] != grid.MarkFluid {
				s.forceX[i] = 0
				s.forceY[i] = 0
				continue
			}
			x := i % w
			y := i / w
			gx := s.curlMagAt(x+1, y) - s.curlMagAt(x-1, y)
			gy := s.curlMagAt(x, y+1) - s.curlMagAt(x, y-1)
			mag := float32(math.Sqrt(float64(gx*gx + gy*gy)))
			if mag < 1e-5 {
				s.forceX[i] = 0
				s.forceY[i] = 0
				continue
			}
			gx /= mag
			gy /= mag
			// Force is perpendicular to the curl gradient, spinning with
			// the local rotation.
			s.forceX[i] = p.Vorticity * gy * s.curl[i]
			s.forceY[i] = -p.Vorticity * gx * s.curl[i]
		}
	})

	dt := p.DT
	dispatch((w+1)*h, func(i0, i1 int) {
		for f := i0; f < i1; f++ {
			x := f % (w + 1)
			y := f / (w + 1)
			if x == 0 || x == w {
				continue
			}
			s.Vel.U[f] += (s.forceX[y*w+x-1] + s.forceX[y*w+x]) * 0.5 * dt
		}
	})
	dispatch(w*(h+1), func(i0, i1 int) {
		for f := i0; f < i1; f++ {
			x := f % w
			y := f / w
			if y == 0 || y == h {
				continue
			}
			s.Vel.V[f] += (s.forceY[(y-1)*w+x] + s.forceY[y*w+x]) * 0.5 * dt
		}
	})
}

func (s *Solver) curlMagAt(x, y int) float32 {
	if x < 0 || x >= s.W || y < 0 || y >= s.H {
		return 0
	}
	return s.curlMag[y*s.W+x]
}

// applyPush blends face velocities toward the push tool's velocity with
// a linear radial falloff. Blending rather than adding keeps the tool
// from winding the liquid up on repeated frames.
func (s *Solver) applyPush(push Push, dispatch Dispatch) {
	w := s.W
	r2 := push.Radius * push.Radius

	dispatch((w+1)*s.H, func(i0, i1 int) {
		for f := i0; f < i1; f++ {
			fx := float32(f % (w + 1))
			fy := float32(f/(w+1)) + 0.5
			dx := fx - push.X
			dy := fy - push.Y
			d2 := dx*dx + dy*dy
			if d2 >= r2 {
				continue
			}
			t := 1 - float32(math.Sqrt(float64(d2)))/push.Radius
			s.Vel.U[f] += (push.VX - s.Vel.U[f]) * t
		}
	})
	dispatch(w*(s.H+1), func(i0, i1 int) {
		for f := i0; f < i1; f++ {
			fx := float32(f%w) + 0.5
			fy := float32(f / w)
			dx := fx - push.X
			dy := fy - push.Y
			d2 := dx*dx + dy*dy
			if d2 >= r2 {
				continue
			}
			t := 1 - float32(math.Sqrt(float64(d2)))/push.Radius
			s.Vel.V[f] += (push.VY - s.Vel.V[f]) * t
		}
	})
}

// transfer updates particle velocities from the projected grid field.
// Each particle blends a pure grid sample (PIC, dissipative) with its
// old velocity plus the grid delta (FLIP, noisy); the blend leans
// toward PIC near the free surface and near solids, where FLIP noise
// shows most.
func (s *Solver) transfer(snap *grid.Snapshot, p Params, i0, i1 int) {
	for i := i0; i < i1; i++ {
		if s.Store.Mass[i] <= 0 {
			continue
		}
		x := s.Store.PosX[i]
		y := s.Store.PosY[i]

		gu := s.Vel.SampleU(x, y)
		gv := s.Vel.SampleV(x, y)
		du := gu - s.PrevVel.SampleU(x, y)
		dv := gv - s.PrevVel.SampleV(x, y)

		d := s.Density.Sample(x, y)
		ratio := lerp(p.SurfaceFlipRatio, p.FlipRatio, clampf(d/p.Interact, 0, 1))
		if nearSolid(snap, int(x), int(y)) {
			ratio *= 0.5
		}

		vx := lerp(gu, s.Store.VelX[i]+du, ratio) * p.VelDamping
		vy := lerp(gv, s.Store.VelY[i]+dv, ratio) * p.VelDamping

		if sp2 := vx*vx + vy*vy; sp2 > p.MaxSpeed*p.MaxSpeed {
			k := p.MaxSpeed / float32(math.Sqrt(float64(sp2)))
			vx *= k
			vy *= k
		}
		s.Store.VelX[i] = vx
		s.Store.VelY[i] = vy
	}
}

func nearSolid(snap *grid.Snapshot, cx, cy int) bool {
	return snap.At(cx-1, cy).Solid() || snap.At(cx+1, cy).Solid() ||
		snap.At(cx, cy-1).Solid() || snap.At(cx, cy+1).Solid()
}
