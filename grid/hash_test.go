package grid

import "testing"

func TestHashDeterminism(t *testing.T) {
	a := Hash(12, 34, 56, 0xDEADBEEF)
	b := Hash(12, 34, 56, 0xDEADBEEF)
	if a != b {
		t.Errorf("Hash not deterministic: %v != %v", a, b)
	}
}

func TestHashVariesByInput(t *testing.T) {
	base := Hash(10, 10, 1, 7)
	variants := []struct {
		name  string
		x, y  int
		frame uint32
		seed  uint64
	}{
		{"x", 11, 10, 1, 7},
		{"y", 10, 11, 1, 7},
		{"frame", 10, 10, 2, 7},
		{"seed", 10, 10, 1, 8},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			if Hash(v.x, v.y, v.frame, v.seed) == base {
				t.Errorf("hash collision when varying %s", v.name)
			}
		})
	}
}

func TestHash01Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := Hash01(i, i*3, uint32(i), 99)
		if v < 0 || v >= 1 {
			t.Fatalf("Hash01 out of range: %v", v)
		}
	}
}

func TestParityAlternates(t *testing.T) {
	if Parity(0, 0, 0) == Parity(1, 0, 0) {
		t.Error("parity should differ for adjacent cells")
	}
	if Parity(0, 0, 0) == Parity(0, 0, 1) {
		t.Error("parity should flip between frames")
	}
}

func TestMetaPack(t *testing.T) {
	m := PackMeta(1234, 56)
	if m.Age() != 1234 {
		t.Errorf("Age = %d, want 1234", m.Age())
	}
	if m.ColorVar() != 56 {
		t.Errorf("ColorVar = %d, want 56", m.ColorVar())
	}
	moved := m.Moved()
	if moved.Age() != 0 {
		t.Errorf("Moved age = %d, want 0", moved.Age())
	}
	if moved.ColorVar() != 56 {
		t.Errorf("Moved color = %d, want 56", moved.ColorVar())
	}
}

func TestMetaAgedSaturates(t *testing.T) {
	m := PackMeta(0xFFFF, 9)
	if m.Aged().Age() != 0xFFFF {
		t.Errorf("age should saturate at 65535, got %d", m.Aged().Age())
	}
	if m.Aged().ColorVar() != 9 {
		t.Errorf("aging must not bleed into the color byte")
	}
}
