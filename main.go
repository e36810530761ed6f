package main

import (
	"flag"
	"image/color"
	"log/slog"
	"math"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/silt/config"
	"github.com/pthm-cable/silt/grid"
	"github.com/pthm-cable/silt/renderer"
	"github.com/pthm-cable/silt/sim"
	"github.com/pthm-cable/silt/telemetry"
	"github.com/pthm-cable/silt/ui"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "Hash seed (0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	preset := flag.String("preset", "", "Terrain preset override (empty = use config)")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *seed != 0 {
		cfg.Sim.Seed = *seed
	}
	if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = time.Now().UnixNano()
	}
	if *preset != "" {
		cfg.Sim.Preset = *preset
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	s := sim.New(cfg)
	defer s.Close()

	rep := newReporter(s, statsWindowSec, cfg, *logStats, om)

	slog.Info("starting simulation",
		"grid_w", cfg.Grid.Width,
		"grid_h", cfg.Grid.Height,
		"max_particles", cfg.Derived.MaxParticles,
		"seed", cfg.Sim.Seed,
		"preset", cfg.Sim.Preset,
		"headless", *headless,
	)

	if *headless {
		runHeadless(s, rep, *maxFrames)
		return
	}
	runGraphical(s, rep, cfg, *maxFrames)
}

// reporter drives the telemetry collectors from the main loop.
type reporter struct {
	s         *sim.Sim
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager
	logStats  bool

	lastLive int
}

func newReporter(s *sim.Sim, windowSec float64, cfg *config.Config, logStats bool, om *telemetry.OutputManager) *reporter {
	return &reporter{
		s:         s,
		collector: telemetry.NewCollector(windowSec, cfg.Derived.DT32),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:    om,
		logStats:  logStats,
	}
}

// afterFrame records per-frame events and flushes windows.
func (r *reporter) afterFrame() {
	live := r.s.Store.LiveCount()
	if delta := live - r.lastLive; delta > 0 {
		r.collector.RecordSpawned(delta)
	} else {
		r.collector.RecordKilled(-delta)
	}
	r.lastLive = live
	r.collector.RecordBinOverflow(live - r.s.Bins.TotalBinned())
	r.collector.RecordReactions(r.s.RockFormed, r.s.SteamFormed, r.s.SteamCondensed)

	if !r.collector.ShouldFlush(int32(r.s.Frame)) {
		return
	}

	stats := r.collector.Flush(int32(r.s.Frame), r.sample(live))
	if r.logStats {
		stats.LogStats()
		r.perf.Stats().LogStats()
	}
	if err := r.output.WriteTelemetry(stats); err != nil {
		slog.Error("telemetry write failed", "error", err)
	}
	if err := r.output.WritePerf(r.perf.Stats(), int32(r.s.Frame)); err != nil {
		slog.Error("perf write failed", "error", err)
	}
}

// speedSampleStride keeps the per-window sort cheap on full pools.
const speedSampleStride = 4

func (r *reporter) sample(live int) telemetry.Snapshot {
	snap := telemetry.Snapshot{
		Particles:          live,
		SandCells:          r.s.Cells.CountMaterial(grid.Sand),
		WaterCells:         r.s.Cells.CountMaterial(grid.Water),
		LavaCells:          r.s.Cells.CountMaterial(grid.Lava),
		SteamCells:         r.s.Cells.CountMaterial(grid.Steam),
		RockCells:          r.s.Cells.CountMaterial(grid.Rock),
		DivergenceResidual: r.s.Solver.DivergenceResidual(),
	}
	st := r.s.Store
	for i := 0; i < st.Cap; i += speedSampleStride {
		if st.Mass[i] <= 0 {
			continue
		}
		vx := float64(st.VelX[i])
		vy := float64(st.VelY[i])
		snap.Speeds = append(snap.Speeds, vx*vx+vy*vy)
	}
	for i, v := range snap.Speeds {
		snap.Speeds[i] = math.Sqrt(v)
	}
	return snap
}

func runHeadless(s *sim.Sim, rep *reporter, maxFrames int) {
	for {
		rep.perf.StartFrame()
		rep.perf.StartPhase(telemetry.PhaseFluid)
		s.Step()
		rep.perf.StartPhase(telemetry.PhaseTelemetry)
		rep.afterFrame()
		rep.perf.EndFrame()

		if maxFrames > 0 && int(s.Frame) >= maxFrames {
			slog.Info("max frames reached", "frame", s.Frame)
			return
		}
	}
}

func runGraphical(s *sim.Sim, rep *reporter, cfg *config.Config, maxFrames int) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Silt")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	w, h := cfg.Grid.Width, cfg.Grid.Height
	img := rl.GenImageColor(w, h, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	compose := renderer.NewComposer(w, h)
	pixels := make([]color.RGBA, w*h)
	brush := ui.NewBrush()
	panel := ui.NewPanel(int32(cfg.Screen.Width)-210, 10, 200)

	cellPx := float32(cfg.Screen.Width) / float32(w)

	for !rl.WindowShouldClose() {
		brush.Handle(s, cellPx)

		if !brush.Paused {
			rep.perf.StartFrame()
			rep.perf.StartPhase(telemetry.PhaseFluid)
			s.Step()
			rep.perf.StartPhase(telemetry.PhaseTelemetry)
			rep.afterFrame()
			rep.perf.EndFrame()
		} else {
			s.StepPaused()
		}
		rep.perf.RecordFrame()

		compose.Compose(brush.Mode, s.Cells.Front(), s.Solver, cfg.Derived.Render32)
		for i := range pixels {
			pixels[i] = color.RGBA{
				R: compose.Pix[i*4],
				G: compose.Pix[i*4+1],
				B: compose.Pix[i*4+2],
				A: compose.Pix[i*4+3],
			}
		}
		rl.UpdateTexture(texture, pixels)

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		rl.DrawTexturePro(
			texture,
			rl.Rectangle{Width: float32(w), Height: float32(h)},
			rl.Rectangle{Width: float32(cfg.Screen.Width), Height: float32(cfg.Screen.Height)},
			rl.Vector2{},
			0,
			rl.White,
		)
		brush.DrawCursor()
		if rl.IsKeyPressed(rl.KeyP) {
			panel.Toggle()
		}
		panel.Draw(s)
		drawHUD(s, brush)
		rl.EndDrawing()

		if maxFrames > 0 && int(s.Frame) >= maxFrames {
			break
		}
	}
}

func drawHUD(s *sim.Sim, brush *ui.Brush) {
	rl.DrawFPS(10, 10)
	rl.DrawText(brush.Material.String(), 10, 34, 16, rl.RayWhite)
	rl.DrawText(brush.Mode.String(), 10, 54, 16, rl.Gray)
	if brush.Paused {
		rl.DrawText("paused", 10, 74, 16, rl.Yellow)
	}
}
