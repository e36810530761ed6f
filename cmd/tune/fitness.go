package main

import (
	"math"

	"github.com/pthm-cable/silt/config"
	"github.com/pthm-cable/silt/grid"
	"github.com/pthm-cable/silt/sim"
)

// FitnessEvaluator scores a parameter vector by running a fixed
// dam-break scenario headless and measuring how cleanly the liquid
// settles. Lower is better.
type FitnessEvaluator struct {
	params  *ParamVector
	frames  int
	seeds   []int64
	baseCfg *config.Config

	lastResidual float64
	lastSpeed    float64
}

// NewFitnessEvaluator creates an evaluator.
func NewFitnessEvaluator(params *ParamVector, frames int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:  params,
		frames:  frames,
		seeds:   seeds,
		baseCfg: baseCfg,
	}
}

// Evaluate runs the scenario once per seed and returns the mean score.
func (e *FitnessEvaluator) Evaluate(raw []float64) float64 {
	var total float64
	for _, seed := range e.seeds {
		total += e.runOnce(raw, seed)
	}
	return total / float64(len(e.seeds))
}

// LastResidual returns the divergence residual of the most recent run,
// for progress output.
func (e *FitnessEvaluator) LastResidual() float64 {
	return e.lastResidual
}

// LastSpeed returns the late-run mean speed of the most recent run.
func (e *FitnessEvaluator) LastSpeed() float64 {
	return e.lastSpeed
}

// runOnce executes one headless dam break. The score combines the
// liquid's late-run kinetic energy (it should be at rest), the
// post-solve divergence residual, and the fraction of particles lost
// to solid entombment.
func (e *FitnessEvaluator) runOnce(raw []float64, seed int64) float64 {
	cfg := *e.baseCfg
	e.params.ApplyToConfig(&cfg, raw)
	cfg.Sim.Seed = seed
	cfg.Sim.Preset = "floor"

	s := sim.New(&cfg)
	defer s.Close()

	// Dam break: a water column against the left wall, a sand column
	// mid-field for the liquid to crash into.
	colW := s.W / 6
	colH := s.H / 2
	for y := s.H - 1 - colH; y < s.H-1; y++ {
		for x := 1; x < colW; x++ {
			s.Paint(x, y, 0, grid.Water)
		}
	}
	for y := s.H - 1 - s.H/4; y < s.H-1; y++ {
		s.Paint(s.W/2, y, 1, grid.Sand)
	}

	warmup := e.frames * 3 / 4
	var speedSum, residualSum float64
	samples := 0
	var started int

	for f := 0; f < e.frames; f++ {
		s.Step()
		if f == 0 {
			started = s.Store.LiveCount()
		}
		if f >= warmup && f%10 == 0 {
			speedSum += meanSpeed(s)
			residualSum += s.Solver.DivergenceResidual()
			samples++
		}
	}

	if samples == 0 || started == 0 {
		return 1e9
	}
	meanLateSpeed := speedSum / float64(samples)
	meanResidual := residualSum / float64(samples) / float64(started)
	lost := float64(started-s.Store.LiveCount()) / float64(started)
	if lost < 0 {
		lost = 0
	}

	e.lastSpeed = meanLateSpeed
	e.lastResidual = meanResidual

	return meanLateSpeed + 2*meanResidual + 10*lost
}

func meanSpeed(s *sim.Sim) float64 {
	var sum float64
	n := 0
	for i := 0; i < s.Store.Cap; i++ {
		if s.Store.Mass[i] <= 0 {
			continue
		}
		vx := float64(s.Store.VelX[i])
		vy := float64(s.Store.VelY[i])
		sum += math.Sqrt(vx*vx + vy*vy)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
