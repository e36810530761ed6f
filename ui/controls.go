// Package ui holds the interactive control panel and the brush input
// mapping for graphical runs.
package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/silt/sim"
)

// Panel renders the parameter sliders along the right edge of the
// window and writes edits straight into the live parameter blocks.
type Panel struct {
	x, y    int32
	width   int32
	visible bool
}

// NewPanel creates a panel anchored at (x, y).
func NewPanel(x, y, width int32) *Panel {
	return &Panel{x: x, y: y, width: width, visible: true}
}

// Toggle switches panel visibility.
func (p *Panel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// Visible reports whether the panel is shown.
func (p *Panel) Visible() bool {
	return p.visible
}

// Draw renders the sliders and applies any changes to s. Returns the y
// coordinate below the panel.
func (p *Panel) Draw(s *sim.Sim) int32 {
	if !p.visible {
		return p.y
	}

	x := float32(p.x)
	y := float32(p.y)
	w := float32(p.width - 80)

	rl.DrawText("Parameters", p.x, int32(y), 16, rl.RayWhite)
	y += 26

	slider := func(label string, v, lo, hi float32) float32 {
		rl.DrawText(fmt.Sprintf("%s: %.2f", label, v), int32(x), int32(y), 12, rl.LightGray)
		y += 16
		nv := gui.SliderBar(
			rl.Rectangle{X: x, Y: y, Width: w, Height: 16},
			fmt.Sprintf("%.1f", lo), fmt.Sprintf("%.1f", hi),
			v, lo, hi,
		)
		y += 22
		return nv
	}

	s.Auto.Fluidity = slider("fluidity", s.Auto.Fluidity, 0, 1)
	s.Fluid.FlipRatio = slider("flip ratio", s.Fluid.FlipRatio, 0, 1)
	s.Fluid.SurfaceFlipRatio = slider("surface flip", s.Fluid.SurfaceFlipRatio, 0, 1)
	s.Fluid.RestDensity = slider("rest density", s.Fluid.RestDensity, 0.2, 2)
	s.Fluid.DensityDrift = slider("density drift", s.Fluid.DensityDrift, 0, 1)
	s.Fluid.Viscosity = slider("viscosity", s.Fluid.Viscosity, 0, 4)
	s.Fluid.Vorticity = slider("vorticity", s.Fluid.Vorticity, 0, 4)
	s.Fluid.Gravity = slider("gravity", s.Fluid.Gravity, 0, 300)
	s.Fluid.MaxSpeed = slider("max speed", s.Fluid.MaxSpeed, 5, 120)
	s.Fluid.SepStrength = slider("separation", s.Fluid.SepStrength, 0, 1)

	iters := slider("pressure iters", float32(s.Fluid.PressureIters), 1, 120)
	s.Fluid.PressureIters = int(iters)

	s.Fluid.AirMixing = gui.CheckBox(
		rl.Rectangle{X: x, Y: y, Width: 14, Height: 14},
		"air mixing", s.Fluid.AirMixing,
	)
	y += 22

	return int32(y)
}
