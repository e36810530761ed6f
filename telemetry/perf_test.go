package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorBasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseAutomaton)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseFluid)
		time.Sleep(200 * time.Microsecond)
		pc.EndFrame()
	}

	stats := pc.Stats()

	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration")
	}
	if len(stats.PhaseAvg) == 0 {
		t.Error("expected phase averages to be populated")
	}
	if _, ok := stats.PhaseAvg[PhaseAutomaton]; !ok {
		t.Error("expected automaton phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseFluid]; !ok {
		t.Error("expected fluid phase to be tracked")
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	// Overfill the window; older samples fall off.
	for i := 0; i < 10; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseAutomaton)
		pc.EndFrame()
	}

	stats := pc.Stats()

	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration after window filled")
	}
	if stats.FramesPerSecond <= 0 {
		t.Error("expected positive frames per second")
	}
}

func TestPerfCollectorPhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	// Millisecond-scale sleeps keep the ordering visible even under
	// coarse timer granularity.
	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase("fast")
		time.Sleep(2 * time.Millisecond)
		pc.StartPhase("slow")
		time.Sleep(10 * time.Millisecond)
		pc.EndFrame()
	}

	stats := pc.Stats()

	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)",
			stats.PhasePct["slow"], stats.PhasePct["fast"])
	}
}

func TestPerfCollectorEmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgFrameDuration != 0 {
		t.Error("expected zero avg frame duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollectorWallClockPacing(t *testing.T) {
	pc := NewPerfCollector(10)

	// First call establishes baseline, second measures the gap.
	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()

	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	if stats.FPS <= 0 {
		t.Error("expected positive FPS once pacing is established")
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	pc := NewPerfCollector(4)
	pc.StartFrame()
	pc.StartPhase(PhaseFluid)
	time.Sleep(50 * time.Microsecond)
	pc.EndFrame()

	row := pc.Stats().ToCSV(120)

	if row.WindowEnd != 120 {
		t.Errorf("window end = %d, want 120", row.WindowEnd)
	}
	if row.AvgFrameUS <= 0 {
		t.Error("expected positive average frame time")
	}
	if row.FluidPct <= 0 {
		t.Error("expected fluid phase percentage in CSV row")
	}
}
