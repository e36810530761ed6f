// Package telemetry aggregates simulation statistics over time windows
// and exports them as structured logs and CSV records.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one time window.
type WindowStats struct {
	WindowStartFrame int32   `csv:"-"`
	WindowEndFrame   int32   `csv:"window_end"`
	SimTimeSec       float64 `csv:"sim_time"`

	// Counts at window end
	Particles  int `csv:"particles"`
	SandCells  int `csv:"sand_cells"`
	WaterCells int `csv:"water_cells"`
	LavaCells  int `csv:"lava_cells"`
	SteamCells int `csv:"steam_cells"`
	RockCells  int `csv:"rock_cells"`

	// Events during window
	Spawned        int `csv:"spawned"`
	Killed         int `csv:"killed"`
	BinOverflows   int `csv:"bin_overflows"`
	RockFormed     int `csv:"rock_formed"`
	SteamFormed    int `csv:"steam_formed"`
	SteamCondensed int `csv:"steam_condensed"`

	// Solver health (sampled at window end)
	DivergenceResidual float64 `csv:"div_residual"`
	SpeedMean          float64 `csv:"speed_mean"`
	SpeedStd           float64 `csv:"speed_std"`
	SpeedP50           float64 `csv:"speed_p50"`
	SpeedP90           float64 `csv:"speed_p90"`
	SpeedMax           float64 `csv:"speed_max"`
}

// ComputeSpeedStats aggregates a sample of particle speeds. The input
// slice is sorted in place.
func ComputeSpeedStats(speeds []float64) (mean, std, p50, p90, max float64) {
	if len(speeds) == 0 {
		return 0, 0, 0, 0, 0
	}
	sort.Float64s(speeds)
	mean = stat.Mean(speeds, nil)
	std = stat.StdDev(speeds, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, speeds, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, speeds, nil)
	max = speeds[len(speeds)-1]
	return mean, std, p50, p90, max
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartFrame)),
		slog.Int("window_end", int(s.WindowEndFrame)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("sand_cells", s.SandCells),
		slog.Int("water_cells", s.WaterCells),
		slog.Int("lava_cells", s.LavaCells),
		slog.Int("steam_cells", s.SteamCells),
		slog.Int("rock_cells", s.RockCells),
		slog.Int("spawned", s.Spawned),
		slog.Int("killed", s.Killed),
		slog.Int("bin_overflows", s.BinOverflows),
		slog.Int("rock_formed", s.RockFormed),
		slog.Int("steam_formed", s.SteamFormed),
		slog.Int("steam_condensed", s.SteamCondensed),
		slog.Float64("div_residual", s.DivergenceResidual),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("speed_max", s.SpeedMax),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndFrame,
		"sim_time", s.SimTimeSec,
		"particles", s.Particles,
		"sand_cells", s.SandCells,
		"water_cells", s.WaterCells,
		"lava_cells", s.LavaCells,
		"steam_cells", s.SteamCells,
		"rock_cells", s.RockCells,
		"spawned", s.Spawned,
		"killed", s.Killed,
		"bin_overflows", s.BinOverflows,
		"rock_formed", s.RockFormed,
		"steam_formed", s.SteamFormed,
		"steam_condensed", s.SteamCondensed,
		"div_residual", s.DivergenceResidual,
		"speed_mean", s.SpeedMean,
		"speed_std", s.SpeedStd,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"speed_max", s.SpeedMax,
	)
}
