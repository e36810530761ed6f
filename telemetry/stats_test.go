package telemetry

import (
	"math"
	"testing"
)

func TestComputeSpeedStats(t *testing.T) {
	speeds := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	mean, std, p50, p90, max := ComputeSpeedStats(speeds)

	if math.Abs(mean-5.5) > 0.001 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	if std <= 0 {
		t.Errorf("std = %v, want positive", std)
	}
	if math.Abs(p50-5) > 0.001 {
		t.Errorf("p50 = %v, want 5", p50)
	}
	if math.Abs(p90-9) > 0.001 {
		t.Errorf("p90 = %v, want 9", p90)
	}
	if max != 10 {
		t.Errorf("max = %v, want 10", max)
	}
}

func TestComputeSpeedStatsUnsortedInput(t *testing.T) {
	speeds := []float64{7, 1, 9, 3, 5}
	_, _, _, _, max := ComputeSpeedStats(speeds)
	if max != 9 {
		t.Errorf("max = %v, want 9", max)
	}
}

func TestComputeSpeedStatsEmpty(t *testing.T) {
	mean, std, p50, p90, max := ComputeSpeedStats([]float64{})

	if mean != 0 || std != 0 || p50 != 0 || p90 != 0 || max != 0 {
		t.Error("empty slice should return all zeros")
	}
}

func TestCollectorWindowBoundary(t *testing.T) {
	// 0.5s windows at 60fps -> 30 frames per window.
	c := NewCollector(0.5, 1.0/60)

	if c.ShouldFlush(29) {
		t.Error("window should not flush before 30 frames")
	}
	if !c.ShouldFlush(30) {
		t.Error("window should flush at 30 frames")
	}
}

func TestCollectorFlushResetsCounters(t *testing.T) {
	c := NewCollector(0.5, 1.0/60)
	c.RecordSpawned(10)
	c.RecordKilled(3)
	c.RecordBinOverflow(2)
	c.RecordReactions(4, 5, 6)

	stats := c.Flush(30, Snapshot{Particles: 100, DivergenceResidual: 0.25})

	if stats.Spawned != 10 || stats.Killed != 3 || stats.BinOverflows != 2 {
		t.Errorf("event counts not carried into stats: %+v", stats)
	}
	if stats.RockFormed != 4 || stats.SteamFormed != 5 || stats.SteamCondensed != 6 {
		t.Errorf("reaction counts not carried into stats: %+v", stats)
	}
	if stats.Particles != 100 {
		t.Errorf("particles = %d, want 100", stats.Particles)
	}
	if stats.DivergenceResidual != 0.25 {
		t.Errorf("residual = %v, want 0.25", stats.DivergenceResidual)
	}
	if math.Abs(stats.SimTimeSec-0.5) > 0.001 {
		t.Errorf("sim time = %v, want 0.5", stats.SimTimeSec)
	}

	// Second window starts empty.
	next := c.Flush(60, Snapshot{})
	if next.Spawned != 0 || next.Killed != 0 || next.RockFormed != 0 {
		t.Errorf("counters not reset between windows: %+v", next)
	}
	if next.WindowStartFrame != 30 {
		t.Errorf("window start = %d, want 30", next.WindowStartFrame)
	}
}

func TestCollectorMinimumWindow(t *testing.T) {
	// A window shorter than one frame still spans at least one frame.
	c := NewCollector(0.001, 1.0/60)
	if !c.ShouldFlush(1) {
		t.Error("degenerate window should flush every frame")
	}
}
