package particles

import "testing"

func rebuildFree(s *Store) {
	s.ResetFreeList()
	s.ScanFree(0, s.Cap)
}

func TestSpawnAndKill(t *testing.T) {
	s := NewStore(8)
	rebuildFree(s)

	if !s.Spawn(1, 2, 0, 0) {
		t.Fatal("spawn should succeed with free slots")
	}
	if s.LiveCount() != 1 {
		t.Errorf("LiveCount = %d, want 1", s.LiveCount())
	}

	// Find and kill the live particle.
	for i := 0; i < s.Cap; i++ {
		if s.Mass[i] > 0 {
			s.Kill(i)
		}
	}
	if s.LiveCount() != 0 {
		t.Errorf("LiveCount after kill = %d, want 0", s.LiveCount())
	}
}

func TestSpawnExhaustion(t *testing.T) {
	s := NewStore(4)
	rebuildFree(s)

	for i := 0; i < 4; i++ {
		if !s.Spawn(0, 0, 0, 0) {
			t.Fatalf("spawn %d should succeed", i)
		}
	}
	if s.Spawn(0, 0, 0, 0) {
		t.Error("spawn on a full pool must fail, not grow")
	}
	if s.LiveCount() != 4 {
		t.Errorf("LiveCount = %d, want 4", s.LiveCount())
	}
}

func TestFreeListRecycles(t *testing.T) {
	s := NewStore(2)
	rebuildFree(s)
	s.Spawn(0, 0, 0, 0)
	s.Spawn(0, 0, 0, 0)
	s.Kill(0)

	// Dead slot is not reusable until the next rebuild scan.
	if s.Spawn(0, 0, 0, 0) {
		t.Error("spawn should fail before free-list rebuild")
	}
	rebuildFree(s)
	if !s.Spawn(0, 0, 0, 0) {
		t.Error("spawn should succeed after rebuild reclaims the dead slot")
	}
}

func TestBinsOverflowSoftClips(t *testing.T) {
	b := NewBins(2, 2, 3)
	for i := int32(0); i < 5; i++ {
		ok := b.Add(0, i)
		if i < 3 && !ok {
			t.Errorf("Add %d should fit", i)
		}
		if i >= 3 && ok {
			t.Errorf("Add %d should overflow", i)
		}
	}
	if b.Count(0) != 3 {
		t.Errorf("Count = %d, want capacity 3", b.Count(0))
	}
	if len(b.At(0)) != 3 {
		t.Errorf("At view length = %d, want 3", len(b.At(0)))
	}
}

func TestBinsCellOf(t *testing.T) {
	b := NewBins(4, 3, 2)
	tests := []struct {
		name string
		x, y float32
		want int
	}{
		{"origin", 0.5, 0.5, 0},
		{"interior", 2.9, 1.1, 6},
		{"left of domain", -0.1, 1, -1},
		{"above domain", 1, -0.5, -1},
		{"below domain", 1, 3.0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.CellOf(tt.x, tt.y); got != tt.want {
				t.Errorf("CellOf(%v, %v) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestKillBinned(t *testing.T) {
	s := NewStore(4)
	rebuildFree(s)
	b := NewBins(2, 2, 4)

	s.Spawn(0.5, 0.5, 0, 0)
	s.Spawn(0.2, 0.7, 0, 0)
	s.Spawn(1.5, 0.5, 0, 0)
	for i := 0; i < s.Cap; i++ {
		if s.Mass[i] <= 0 {
			continue
		}
		b.Add(b.CellOf(s.PosX[i], s.PosY[i]), int32(i))
	}

	killed := KillBinned(s, b, 0)
	if killed != 2 {
		t.Errorf("killed = %d, want 2", killed)
	}
	if s.LiveCount() != 1 {
		t.Errorf("LiveCount = %d, want 1", s.LiveCount())
	}
}
