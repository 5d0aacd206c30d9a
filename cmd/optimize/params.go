// Package main provides CMA-ES optimization of zone parameters for a target
// collective state.
package main

import (
	"math"

	"github.com/benmaier/couzinswarm/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name string  // Human-readable name
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "orientation_width", Path: "swarm.orientation_width", Min: 0, Max: 15},
			{Name: "attraction_width", Path: "swarm.attraction_width", Min: 0.5, Max: 20},
			{Name: "angle_of_perception", Path: "swarm.angle_of_perception", Min: math.Pi / 4, Max: math.Pi},
			{Name: "turning_rate", Path: "swarm.turning_rate", Min: 0.05, Max: 1.5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
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
		clamped[i] = math.Min(math.Max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct and recomputes
// its derived values. Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	clamped := pv.Clamp(values)
	cfg.Swarm.OrientationWidth = clamped[0]
	cfg.Swarm.AttractionWidth = clamped[1]
	cfg.Swarm.AngleOfPerception = clamped[2]
	cfg.Swarm.TurningRate = clamped[3]
	return cfg.Prepare()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Swarm.OrientationWidth,
		cfg.Swarm.AttractionWidth,
		cfg.Swarm.AngleOfPerception,
		cfg.Swarm.TurningRate,
	}
}
