// Package main provides CMA-ES optimization for liquid stability
// parameters.
package main

import (
	"github.com/pthm-cable/silt/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string
	Path    string // config path, for logging
	Min     float64
	Max     float64
	Default float64
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters:
// the knobs that trade liquid liveliness against settling stability.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "flip_ratio", Path: "fluid.flip_ratio", Min: 0.5, Max: 1.0, Default: 0.9},
			{Name: "surface_flip_ratio", Path: "fluid.surface_flip_ratio", Min: 0.0, Max: 0.8, Default: 0.45},
			{Name: "rest_density", Path: "fluid.rest_density", Min: 0.4, Max: 1.5, Default: 0.85},
			{Name: "density_drift", Path: "fluid.density_drift", Min: 0.0, Max: 1.0, Default: 0.25},
			{Name: "velocity_damping", Path: "fluid.velocity_damping", Min: 0.97, Max: 1.0, Default: 0.995},
			{Name: "grid_damping", Path: "fluid.grid_damping", Min: 0.97, Max: 1.0, Default: 0.998},
			{Name: "viscosity", Path: "fluid.viscosity", Min: 0.0, Max: 3.0, Default: 0.6},
			{Name: "separation_strength", Path: "particles.separation_strength", Min: 0.1, Max: 0.9, Default: 0.45},
			{Name: "fluidity", Path: "sand.fluidity", Min: 10, Max: 100, Default: 60},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct. Order
// must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	i := 0

	cfg.Fluid.FlipRatio = clamped[i]
	i++
	cfg.Fluid.SurfaceFlipRatio = clamped[i]
	i++
	cfg.Fluid.RestDensity = clamped[i]
	i++
	cfg.Fluid.DensityDrift = clamped[i]
	i++
	cfg.Fluid.VelocityDamping = clamped[i]
	i++
	cfg.Fluid.GridDamping = clamped[i]
	i++
	cfg.Fluid.Viscosity = clamped[i]
	i++
	cfg.Particles.SeparationStrength = clamped[i]
	i++
	cfg.Sand.Fluidity = clamped[i]

	cfg.Recompute()
}
