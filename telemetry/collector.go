package telemetry

// Collector accumulates events within time windows and produces
// WindowStats on flush.
type Collector struct {
	windowDurationSec    float64
	windowDurationFrames int32
	dt                   float32

	windowStartFrame int32

	// Event counters for the current window.
	spawned        int
	killed         int
	binOverflows   int
	rockFormed     int
	steamFormed    int
	steamCondensed int
}

// NewCollector creates a stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds.
// dt: seconds per frame, for frame-to-time conversion.
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	// Round: dt is a float32 reciprocal, so the quotient lands just
	// under whole frame counts.
	framesPerWindow := int32(windowDurationSec/float64(dt) + 0.5)
	if framesPerWindow < 1 {
		framesPerWindow = 1
	}
	return &Collector{
		windowDurationSec:    windowDurationSec,
		windowDurationFrames: framesPerWindow,
		dt:                   dt,
	}
}

// RecordSpawned adds to the window's spawned-particle count.
func (c *Collector) RecordSpawned(n int) {
	c.spawned += n
}

// RecordKilled adds to the window's killed-particle count.
func (c *Collector) RecordKilled(n int) {
	c.killed += n
}

// RecordBinOverflow adds soft-clipped particles to the window count.
func (c *Collector) RecordBinOverflow(n int) {
	c.binOverflows += n
}

// RecordReactions adds a frame's material-reaction tallies.
func (c *Collector) RecordReactions(rock, steam, condensed int) {
	c.rockFormed += rock
	c.steamFormed += steam
	c.steamCondensed += condensed
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(currentFrame int32) bool {
	return currentFrame-c.windowStartFrame >= c.windowDurationFrames
}

// Snapshot carries the instantaneous values the collector cannot
// observe on its own; the driver samples them at flush time.
type Snapshot struct {
	Particles  int
	SandCells  int
	WaterCells int
	LavaCells  int
	SteamCells int
	RockCells  int

	DivergenceResidual float64
	Speeds             []float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentFrame int32, snap Snapshot) WindowStats {
	mean, std, p50, p90, max := ComputeSpeedStats(snap.Speeds)

	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   currentFrame,
		SimTimeSec:       float64(currentFrame) * float64(c.dt),

		Particles:  snap.Particles,
		SandCells:  snap.SandCells,
		WaterCells: snap.WaterCells,
		LavaCells:  snap.LavaCells,
		SteamCells: snap.SteamCells,
		RockCells:  snap.RockCells,

		Spawned:        c.spawned,
		Killed:         c.killed,
		BinOverflows:   c.binOverflows,
		RockFormed:     c.rockFormed,
		SteamFormed:    c.steamFormed,
		SteamCondensed: c.steamCondensed,

		DivergenceResidual: snap.DivergenceResidual,
		SpeedMean:          mean,
		SpeedStd:           std,
		SpeedP50:           p50,
		SpeedP90:           p90,
		SpeedMax:           max,
	}

	c.windowStartFrame = currentFrame
	c.spawned = 0
	c.killed = 0
	c.binOverflows = 0
	c.rockFormed = 0
	c.steamFormed = 0
	c.steamCondensed = 0

	return stats
}
