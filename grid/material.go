// Package grid holds the cell-state store and the scalar/vector fields
// shared between the granular automaton and the liquid solver.
package grid

// Material identifies what occupies a cell.
type Material uint8

const (
	Empty Material = iota
	Wall
	Sand
	Water
	Lava
	Steam
	Rock

	NumMaterials
)

var materialNames = [NumMaterials]string{
	"empty", "wall", "sand", "water", "lava", "steam", "rock",
}

func (m Material) String() string {
	if int(m) < len(materialNames) {
		return materialNames[m]
	}
	return "unknown"
}

// Solid reports whether the material blocks fluid flow.
func (m Material) Solid() bool {
	return m == Wall || m == Rock || m == Sand
}

// Falls reports whether the material is granular and pulled down.
func (m Material) Falls() bool {
	return m == Sand || m == Lava
}

// Rises reports whether the material is granular and pushed up.
func (m Material) Rises() bool {
	return m == Steam
}

// Granular reports whether the automaton moves this material at all.
func (m Material) Granular() bool {
	return m.Falls() || m.Rises()
}

// Immovable reports whether the automaton copies the cell through untouched.
func (m Material) Immovable() bool {
	return m == Wall || m == Rock
}

// Meta packs per-grain metadata: age in the low 16 bits, a cosmetic
// color-variation byte above it. Water cells carry no meta.
type Meta uint32

// PackMeta builds a Meta value.
func PackMeta(age uint16, colorVar uint8) Meta {
	return Meta(uint32(age) | uint32(colorVar)<<16)
}

// Age returns the stationary-frame counter.
func (m Meta) Age() uint16 {
	return uint16(m)
}

// ColorVar returns the spawn-assigned variation byte.
func (m Meta) ColorVar() uint8 {
	return uint8(m >> 16)
}

// Aged returns the meta with age incremented, saturating at 65535.
func (m Meta) Aged() Meta {
	if m.Age() == 0xFFFF {
		return m
	}
	return m + 1
}

// Moved returns the meta with age reset, variation preserved.
func (m Meta) Moved() Meta {
	return m &^ 0xFFFF
}
