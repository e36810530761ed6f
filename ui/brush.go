package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/silt/fluid"
	"github.com/pthm-cable/silt/grid"
	"github.com/pthm-cable/silt/renderer"
	"github.com/pthm-cable/silt/sim"
)

// Brush maps mouse and keyboard input to simulation edits: left click
// paints the selected material, right click erases, middle drag pushes
// the liquid around. Number keys pick the material, tab cycles display
// modes, space pauses.
type Brush struct {
	Material grid.Material
	Radius   int
	Mode     renderer.Mode
	Paused   bool

	// Grid-space scale of the window, set per frame by the caller.
	cellPx float32

	lastMX, lastMY float32
	haveLast       bool
}

// NewBrush starts with a small sand brush.
func NewBrush() *Brush {
	return &Brush{Material: grid.Sand, Radius: 3}
}

// Handle processes one frame of input against s. cellPx is the on-screen
// pixel size of one cell.
func (b *Brush) Handle(s *sim.Sim, cellPx float32) {
	b.cellPx = cellPx

	if rl.IsKeyPressed(rl.KeySpace) {
		b.Paused = !b.Paused
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		b.Mode = (b.Mode + 1) % renderer.NumModes
	}

	switch {
	case rl.IsKeyPressed(rl.KeyOne):
		b.Material = grid.Sand
	case rl.IsKeyPressed(rl.KeyTwo):
		b.Material = grid.Water
	case rl.IsKeyPressed(rl.KeyThree):
		b.Material = grid.Wall
	case rl.IsKeyPressed(rl.KeyFour):
		b.Material = grid.Lava
	case rl.IsKeyPressed(rl.KeyFive):
		b.Material = grid.Steam
	}

	wheel := rl.GetMouseWheelMove()
	if wheel != 0 {
		b.Radius += int(wheel)
		if b.Radius < 1 {
			b.Radius = 1
		}
		if b.Radius > 20 {
			b.Radius = 20
		}
	}

	mouse := rl.GetMousePosition()
	gx := mouse.X / cellPx
	gy := mouse.Y / cellPx

	if rl.IsMouseButtonDown(rl.MouseLeftButton) {
		s.Paint(int(gx), int(gy), b.Radius, b.Material)
	}
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		s.Erase(int(gx), int(gy), b.Radius)
	}

	// Middle drag: push tool. Velocity follows the drag motion.
	if rl.IsMouseButtonDown(rl.MouseMiddleButton) && b.haveLast {
		dt := rl.GetFrameTime()
		if dt <= 0 {
			dt = 1.0 / 60
		}
		s.Push = fluid.Push{
			X:       gx,
			Y:       gy,
			Radius:  float32(b.Radius) * 2,
			VX:      (gx - b.lastMX) / dt,
			VY:      (gy - b.lastMY) / dt,
			Enabled: true,
		}
	} else {
		s.Push.Enabled = false
	}

	b.lastMX = gx
	b.lastMY = gy
	b.haveLast = true
}

// DrawCursor outlines the brush footprint at the mouse position.
func (b *Brush) DrawCursor() {
	mouse := rl.GetMousePosition()
	rl.DrawCircleLines(int32(mouse.X), int32(mouse.Y), float32(b.Radius)*b.cellPx, rl.RayWhite)
}
