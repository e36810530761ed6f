// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Grid      GridConfig      `yaml:"grid"`
	Particles ParticlesConfig `yaml:"particles"`
	Fluid     FluidConfig     `yaml:"fluid"`
	Sand      SandConfig      `yaml:"sand"`
	Sim       SimConfig       `yaml:"sim"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// GridConfig holds simulation grid dimensions.
type GridConfig struct {
	Width    int `yaml:"width"`     // Cells across
	Height   int `yaml:"height"`    // Cells down
	TileSize int `yaml:"tile_size"` // Work-chunk edge for parallel dispatch
}

// ParticlesConfig holds liquid particle parameters.
type ParticlesConfig struct {
	PerCell            int     `yaml:"per_cell"`            // Capacity = cells * per_cell
	MaxPerBin          int     `yaml:"max_per_bin"`         // Fixed bin capacity; overflow is soft-clipped
	Radius             float64 `yaml:"radius"`              // Particle radius in cell units
	SeparationStrength float64 `yaml:"separation_strength"` // Pairwise push factor
	SeparationIters    int     `yaml:"separation_iters"`    // Separation passes per substep
	SpawnJitter        float64 `yaml:"spawn_jitter"`        // Position jitter when seeding a cell
}

// FluidConfig holds FLIP/PIC solver parameters.
type FluidConfig struct {
	Gravity           float64 `yaml:"gravity"`            // Cells/s^2, positive = down
	Viscosity         float64 `yaml:"viscosity"`          // Density-gated damping scale (0 = off)
	FlipRatio         float64 `yaml:"flip_ratio"`         // FLIP share of the transfer blend
	SurfaceFlipRatio  float64 `yaml:"surface_flip_ratio"` // Blend target near the free surface
	PressureIters     int     `yaml:"pressure_iters"`     // Fixed relaxation iteration count
	RestDensity       float64 `yaml:"rest_density"`       // Drift compensator pulls density here
	DensityDrift      float64 `yaml:"density_drift"`      // Drift term strength (soft incompressibility)
	InteractThreshold float64 `yaml:"interact_threshold"` // Density at which cells count as "wet"
	RenderThreshold   float64 `yaml:"render_threshold"`   // Density at which cells read as Water
	VelocityDamping   float64 `yaml:"velocity_damping"`   // Per-substep particle velocity decay
	GridDamping       float64 `yaml:"grid_damping"`       // Per-substep grid velocity decay
	VorticityStrength float64 `yaml:"vorticity"`          // Confinement force scale (0 = off)
	ExtrapolateIters  int     `yaml:"extrapolate_iters"`  // Velocity extrapolation passes (0 = off)
	MaxSpeed          float64 `yaml:"max_speed"`          // Particle speed clamp, cells/s
	AirMixing         bool    `yaml:"air_mixing"`         // Treat air cells as fluid-equivalent in the solve
	DT                float64 `yaml:"dt"`                 // Substep timestep, seconds
}

// SandConfig holds granular movement parameters.
type SandConfig struct {
	Fluidity  float64 `yaml:"fluidity"`   // 0-100 slider range, scaled to 0-1 internally
	SolidPush float64 `yaml:"solid_push"` // Velocity stamped on a cell that just received a grain
}

// SimConfig holds driver parameters.
type SimConfig struct {
	Substeps int    `yaml:"substeps"` // Fluid substeps per displayed frame
	Preset   string `yaml:"preset"`   // Initial terrain: empty, floor, dunes, caverns
	Seed     int64  `yaml:"seed"`     // Hash seed (0 = time-based, resolved by main)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds per stats window
	PerfWindow  int     `yaml:"perf_window"`  // Frames averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	CellCount    int     // Grid.Width * Grid.Height
	MaxParticles int     // CellCount * Particles.PerCell
	Fluidity01   float32 // Sand.Fluidity mapped to 0..1
	DT32         float32 // Fluid.DT as float32
	Gravity32    float32
	Radius32     float32
	Interact32   float32
	Render32     float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// Recompute refreshes the derived values after direct field mutation,
// as the parameter tuner does between evaluations.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Grid.TileSize <= 0 {
		c.Grid.TileSize = 8
	}
	if c.Sim.Substeps <= 0 {
		c.Sim.Substeps = 1
	}
	if c.Particles.MaxPerBin <= 0 {
		c.Particles.MaxPerBin = 16
	}

	fluidity := c.Sand.Fluidity / 100.0
	if fluidity < 0 {
		fluidity = 0
	}
	if fluidity > 1 {
		fluidity = 1
	}

	c.Derived.CellCount = c.Grid.Width * c.Grid.Height
	c.Derived.MaxParticles = c.Derived.CellCount * c.Particles.PerCell
	c.Derived.Fluidity01 = float32(fluidity)
	c.Derived.DT32 = float32(c.Fluid.DT)
	c.Derived.Gravity32 = float32(c.Fluid.Gravity)
	c.Derived.Radius32 = float32(c.Particles.Radius)
	c.Derived.Interact32 = float32(c.Fluid.InteractThreshold)
	c.Derived.Render32 = float32(c.Fluid.RenderThreshold)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
