package grid

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestFieldSampleAtCenters(t *testing.T) {
	f := NewField(4, 4)
	f.Set(1, 1, 8)

	// Sampling exactly at the cell center returns the stored value.
	if got := f.Sample(1.5, 1.5); !approx(got, 8) {
		t.Errorf("Sample at center = %v, want 8", got)
	}
	// Halfway between two centers averages them.
	if got := f.Sample(2.0, 1.5); !approx(got, 4) {
		t.Errorf("Sample between centers = %v, want 4", got)
	}
}

func TestFieldSampleClampsAtBorder(t *testing.T) {
	f := NewField(3, 3)
	f.Set(0, 0, 6)
	if got := f.Sample(-5, -5); !approx(got, 6) {
		t.Errorf("border clamp = %v, want 6", got)
	}
}

func TestVelocityStaggering(t *testing.T) {
	v := NewVelocity(4, 4)

	// A single U face influences points on its row.
	v.U[v.UIdx(2, 1)] = 10
	if got := v.SampleU(2.0, 1.5); !approx(got, 10) {
		t.Errorf("SampleU on face = %v, want 10", got)
	}

	// A single V face likewise.
	v.V[v.VIdx(1, 2)] = 4
	if got := v.SampleV(1.5, 2.0); !approx(got, 4) {
		t.Errorf("SampleV on face = %v, want 4", got)
	}
}

func TestVelocityOutOfRangeIsZero(t *testing.T) {
	v := NewVelocity(3, 3)
	if v.UAt(-1, 0) != 0 || v.UAt(0, 5) != 0 {
		t.Error("UAt out of range should be zero")
	}
	if v.VAt(5, 0) != 0 || v.VAt(0, -1) != 0 {
		t.Error("VAt out of range should be zero")
	}
}

func TestSnapshotOutOfDomainIsWall(t *testing.T) {
	s := &Snapshot{W: 2, H: 2, Mat: make([]Material, 4), Meta: make([]Meta, 4)}
	if s.At(-1, 0) != Wall || s.At(2, 0) != Wall || s.At(0, 2) != Wall {
		t.Error("out-of-domain cells must read as Wall")
	}
}

func TestCellsFlip(t *testing.T) {
	c := NewCells(2, 2)
	c.Set(0, 0, Sand, PackMeta(0, 1))
	if c.Front().At(0, 0) != Sand {
		t.Fatal("Set should write the front buffer")
	}
	c.Flip()
	if c.Front().At(0, 0) != Empty {
		t.Error("after Flip the other buffer is front")
	}
	c.Flip()
	if c.Front().At(0, 0) != Sand {
		t.Error("double Flip restores the original front")
	}
}

func TestAccumulatorRoundTrip(t *testing.T) {
	a := NewAccumulator(4)
	a.Add(1, 0.5)
	a.Add(1, 0.25)
	if got := a.Load(1); !approx(got, 0.75) {
		t.Errorf("Load = %v, want 0.75", got)
	}
	a.Clear()
	if a.Load(1) != 0 {
		t.Error("Clear should zero the accumulator")
	}
}
