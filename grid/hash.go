package grid

// Position hashing drives every pseudo-random decision in the automaton.
// Hashing (x, y, frame, seed) instead of drawing from a sequential RNG
// keeps each cell's roll independent of evaluation order, which is what
// lets the gather step recompute a neighbor's roll and get the same
// answer. Finalizer constants are the splitmix64 mix.

const (
	mix1 = 0xBF58476D1CE4E5B9
	mix2 = 0x94D049BB133111EB
)

// Hash returns 32 uniform bits for a cell position at a frame.
func Hash(x, y int, frame uint32, seed uint64) uint32 {
	z := seed
	z ^= uint64(uint32(x))
	z ^= uint64(uint32(y)) << 20
	z ^= uint64(frame) << 40
	z = (z ^ (z >> 30)) * mix1
	z = (z ^ (z >> 27)) * mix2
	return uint32(z ^ (z >> 31))
}

// Hash01 maps Hash output onto [0, 1).
func Hash01(x, y int, frame uint32, seed uint64) float32 {
	return float32(Hash(x, y, frame, seed)) * (1.0 / 4294967296.0)
}

// Parity is the checkerboard parity of a cell at a frame, used for
// unbiased left/right preference alternation.
func Parity(x, y int, frame uint32) bool {
	return (uint32(x)+uint32(y)+frame)&1 == 0
}
