package sim

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/silt/grid"
)

// GeneratePreset fills the front buffer with one of the named starting
// terrains. Unknown names fall back to an empty box.
func GeneratePreset(s *Sim, name string) {
	switch name {
	case "floor":
		genFloor(s)
	case "dunes":
		genDunes(s)
	case "caverns":
		genCaverns(s)
	default:
		genEmpty(s)
	}
}

// genEmpty clears the grid and walls the border.
func genEmpty(s *Sim) {
	for y := 0; y < s.H; y++ {
		for x := 0; x < s.W; x++ {
			if x == 0 || x == s.W-1 || y == s.H-1 {
				s.Cells.Set(x, y, grid.Wall, 0)
			} else {
				s.Cells.Set(x, y, grid.Empty, 0)
			}
		}
	}
}

// genFloor is the empty box plus a shallow rock floor.
func genFloor(s *Sim) {
	genEmpty(s)
	floor := s.H - s.H/8
	for y := floor; y < s.H-1; y++ {
		for x := 1; x < s.W-1; x++ {
			cv := uint8(grid.Hash(x, y, 0, s.Seed^spawnSalt))
			s.Cells.Set(x, y, grid.Rock, grid.PackMeta(0, cv))
		}
	}
}

// genDunes layers sand over a noise-displaced rock base.
func genDunes(s *Sim) {
	genEmpty(s)
	noise := opensimplex.New(int64(s.Seed))
	base := float64(s.H) * 0.75
	for x := 1; x < s.W-1; x++ {
		fx := float64(x)
		rock := base + 12*noise.Eval2(fx/48, 0)
		sand := rock - 10 - 8*noise.Eval2(fx/20, 100)
		for y := 1; y < s.H-1; y++ {
			fy := float64(y)
			cv := uint8(grid.Hash(x, y, 0, s.Seed^spawnSalt))
			switch {
			case fy >= rock:
				s.Cells.Set(x, y, grid.Rock, grid.PackMeta(0, cv))
			case fy >= sand:
				// Old age keeps the starting dunes from slumping on
				// frame one.
				s.Cells.Set(x, y, grid.Sand, grid.PackMeta(200, cv))
			}
		}
	}
}

// genCaverns thresholds two octaves of noise into a connected cave
// system with lava pooling near the bottom.
func genCaverns(s *Sim) {
	genEmpty(s)
	noise := opensimplex.New(int64(s.Seed))
	lavaLine := float64(s.H) * 0.9
	for y := 1; y < s.H-1; y++ {
		for x := 1; x < s.W-1; x++ {
			fx, fy := float64(x), float64(y)
			v := noise.Eval2(fx/24, fy/24) + 0.5*noise.Eval2(fx/9, fy/9)
			cv := uint8(grid.Hash(x, y, 0, s.Seed^spawnSalt))
			switch {
			case v > 0.15:
				s.Cells.Set(x, y, grid.Rock, grid.PackMeta(0, cv))
			case fy > lavaLine:
				s.Cells.Set(x, y, grid.Lava, grid.PackMeta(200, cv))
			}
		}
	}
}
