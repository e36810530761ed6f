// Package renderer composes the simulation state into an RGBA pixel
// buffer, one pixel per cell. The buffer feeds both the raylib texture
// upload and the websocket frame stream; nothing here touches the GPU.
package renderer

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/silt/fluid"
	"github.com/pthm-cable/silt/grid"
)

// Mode selects what Compose draws.
type Mode int

const (
	ModeMaterial Mode = iota
	ModeSurface
	ModePressure
	ModeVelocity
	ModeDensity

	NumModes
)

var modeNames = [NumModes]string{"material", "surface", "pressure", "velocity", "density"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// shadeLevels is the number of precomputed brightness variants per
// material; a grain's color-variation byte indexes into them.
const shadeLevels = 32

// Composer owns the pixel buffer and the precomputed material palettes.
type Composer struct {
	W, H int
	Pix  []byte // RGBA, 4 bytes per cell, row-major

	palette [grid.NumMaterials][shadeLevels][3]byte
	waterLo [3]byte
	waterHi [3]byte
}

// NewComposer builds a composer for a w×h grid.
func NewComposer(w, h int) *Composer {
	c := &Composer{
		W: w, H: h,
		Pix: make([]byte, w*h*4),
	}
	c.buildPalettes()
	return c
}

// baseColors are the material hues in HSV; shading varies value only so
// a pile reads as one substance with grain-level texture.
func (c *Composer) buildPalettes() {
	base := map[grid.Material][3]float64{ // hue, saturation, value
		grid.Wall:  {0, 0.00, 0.25},
		grid.Sand:  {45, 0.55, 0.85},
		grid.Lava:  {18, 0.95, 0.95},
		grid.Steam: {200, 0.08, 0.90},
		grid.Rock:  {25, 0.20, 0.40},
	}
	for m, hsv := range base {
		for i := 0; i < shadeLevels; i++ {
			// Shade span of +-12% around the base value.
			v := hsv[2] * (0.88 + 0.24*float64(i)/float64(shadeLevels-1))
			if v > 1 {
				v = 1
			}
			col := colorful.Hsv(hsv[0], hsv[1], v)
			r, g, b := col.RGB255()
			c.palette[m][i] = [3]byte{r, g, b}
		}
	}

	lo := colorful.Hsv(210, 0.70, 0.55)
	hi := colorful.Hsv(195, 0.55, 0.95)
	r, g, b := lo.RGB255()
	c.waterLo = [3]byte{r, g, b}
	r, g, b = hi.RGB255()
	c.waterHi = [3]byte{r, g, b}
}

// Compose renders one frame into Pix.
func (c *Composer) Compose(mode Mode, snap *grid.Snapshot, s *fluid.Solver, renderThreshold float32) {
	switch mode {
	case ModeSurface:
		c.composeSurface(snap, s, renderThreshold)
	case ModePressure:
		c.composePressure(snap, s)
	case ModeVelocity:
		c.composeVelocity(snap, s)
	case ModeDensity:
		c.composeDensity(snap, s)
	default:
		c.composeMaterial(snap, s, renderThreshold)
	}
}

func (c *Composer) composeMaterial(snap *grid.Snapshot, s *fluid.Solver, renderThreshold float32) {
	for i := 0; i < c.W*c.H; i++ {
		m := snap.Mat[i]
		o := i * 4
		switch {
		case m == grid.Empty:
			// Thin spray below the render threshold still tints the cell.
			d := s.Density.V[i]
			if d > 0.05 {
				t := float64(d / renderThreshold)
				if t > 1 {
					t = 1
				}
				c.blendWater(o, t*0.6)
			} else {
				c.Pix[o] = 12
				c.Pix[o+1] = 12
				c.Pix[o+2] = 16
				c.Pix[o+3] = 255
			}
		case m == grid.Water:
			d := float64(s.Density.V[i] / (renderThreshold * 2))
			if d > 1 {
				d = 1
			}
			c.blendWater(o, 0.4+0.6*d)
		default:
			shade := int(snap.Meta[i].ColorVar()) * shadeLevels / 256
			p := c.palette[m][shade]
			c.Pix[o] = p[0]
			c.Pix[o+1] = p[1]
			c.Pix[o+2] = p[2]
			c.Pix[o+3] = 255
		}
	}
}

// blendWater writes the deep-to-surface water gradient at t in [0, 1],
// darker for deeper columns.
func (c *Composer) blendWater(o int, t float64) {
	c.Pix[o] = byte(float64(c.waterHi[0]) + (float64(c.waterLo[0])-float64(c.waterHi[0]))*t)
	c.Pix[o+1] = byte(float64(c.waterHi[1]) + (float64(c.waterLo[1])-float64(c.waterHi[1]))*t)
	c.Pix[o+2] = byte(float64(c.waterHi[2]) + (float64(c.waterLo[2])-float64(c.waterHi[2]))*t)
	c.Pix[o+3] = 255
}

// composeSurface reconstructs the free surface from the density field.
// Each cell samples a cross-smoothed density against the render
// threshold as the iso level: cells past it fill as liquid shaded by
// depth under the surface, cells straddling it fade up to a bright
// crest band, everything else is background.
func (c *Composer) composeSurface(snap *grid.Snapshot, s *fluid.Solver, renderThreshold float32) {
	const bandStart = 0.55
	for j := 0; j < c.H; j++ {
		for i := 0; i < c.W; i++ {
			idx := j*c.W + i
			o := idx * 4
			if snap.Mat[idx].Solid() {
				c.Pix[o] = 40
				c.Pix[o+1] = 40
				c.Pix[o+2] = 40
				c.Pix[o+3] = 255
				continue
			}
			iso := float64(c.smoothDensity(s, i, j) / renderThreshold)
			switch {
			case iso >= 1:
				depth := (iso - 1) * 0.5
				if depth > 1 {
					depth = 1
				}
				c.blendWater(o, 0.3+0.7*depth)
			case iso >= bandStart:
				t := (iso - bandStart) / (1 - bandStart)
				c.Pix[o] = byte(12 + (float64(c.waterHi[0])-12)*t)
				c.Pix[o+1] = byte(12 + (float64(c.waterHi[1])-12)*t)
				c.Pix[o+2] = byte(16 + (float64(c.waterHi[2])-16)*t)
				c.Pix[o+3] = 255
			default:
				c.Pix[o] = 12
				c.Pix[o+1] = 12
				c.Pix[o+2] = 16
				c.Pix[o+3] = 255
			}
		}
	}
}

// smoothDensity cross-averages the density around (i, j) with double
// weight at the center, rounding off single-cell spikes so the iso
// contour reads as a surface rather than a particle histogram.
func (c *Composer) smoothDensity(s *fluid.Solver, i, j int) float32 {
	d := s.Density.At(i, j) * 2
	d += s.Density.At(i-1, j) + s.Density.At(i+1, j)
	d += s.Density.At(i, j-1) + s.Density.At(i, j+1)
	return d / 6
}

// composePressure maps pressure to a diverging blue/red ramp over the
// material base layer.
func (c *Composer) composePressure(snap *grid.Snapshot, s *fluid.Solver) {
	// Normalize against the window max so the ramp stays readable as
	// pressure magnitudes swing.
	var maxP float32 = 1e-6
	for _, p := range s.Pressure.V {
		if p > maxP {
			maxP = p
		}
		if -p > maxP {
			maxP = -p
		}
	}
	for i := 0; i < c.W*c.H; i++ {
		o := i * 4
		if snap.Mat[i].Solid() {
			c.Pix[o] = 40
			c.Pix[o+1] = 40
			c.Pix[o+2] = 40
			c.Pix[o+3] = 255
			continue
		}
		t := float64(s.Pressure.V[i] / maxP) // -1..1
		var col colorful.Color
		if t >= 0 {
			col = colorful.Hsv(0, t, 0.2+0.8*t)
		} else {
			col = colorful.Hsv(220, -t, 0.2-0.8*t)
		}
		r, g, b := col.RGB255()
		c.Pix[o] = r
		c.Pix[o+1] = g
		c.Pix[o+2] = b
		c.Pix[o+3] = 255
	}
}

// composeVelocity maps flow direction to hue and speed to brightness.
func (c *Composer) composeVelocity(snap *grid.Snapshot, s *fluid.Solver) {
	for j := 0; j < c.H; j++ {
		for i := 0; i < c.W; i++ {
			idx := j*c.W + i
			o := idx * 4
			if snap.Mat[idx].Solid() {
				c.Pix[o] = 40
				c.Pix[o+1] = 40
				c.Pix[o+2] = 40
				c.Pix[o+3] = 255
				continue
			}
			u := (s.Vel.UAt(i, j) + s.Vel.UAt(i+1, j)) * 0.5
			v := (s.Vel.VAt(i, j) + s.Vel.VAt(i, j+1)) * 0.5
			speed := math.Sqrt(float64(u*u + v*v))
			hue := math.Atan2(float64(v), float64(u))*180/math.Pi + 180
			val := speed / 10
			if val > 1 {
				val = 1
			}
			col := colorful.Hsv(hue, 0.8, 0.1+0.9*val)
			r, g, b := col.RGB255()
			c.Pix[o] = r
			c.Pix[o+1] = g
			c.Pix[o+2] = b
			c.Pix[o+3] = 255
		}
	}
}

// composeDensity draws the raw particle density field as a grayscale
// ramp with fluid-marked cells tinted blue.
func (c *Composer) composeDensity(snap *grid.Snapshot, s *fluid.Solver) {
	for i := 0; i < c.W*c.H; i++ {
		o := i * 4
		if snap.Mat[i].Solid() {
			c.Pix[o] = 40
			c.Pix[o+1] = 40
			c.Pix[o+2] = 40
			c.Pix[o+3] = 255
			continue
		}
		t := float64(s.Density.V[i] / 2)
		if t > 1 {
			t = 1
		}
		v := byte(255 * t)
		c.Pix[o] = v
		c.Pix[o+1] = v
		if s.Marker.M[i] == grid.MarkFluid {
			c.Pix[o+2] = 255
		} else {
			c.Pix[o+2] = v
		}
		c.Pix[o+3] = 255
	}
}
