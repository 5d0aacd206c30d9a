package main

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/benmaier/couzinswarm/config"
	"github.com/benmaier/couzinswarm/swarm"
	"github.com/benmaier/couzinswarm/telemetry"
)

// Target selects the order parameter the optimizer steers toward.
type Target string

const (
	TargetPolarization Target = "polarization"
	TargetMilling      Target = "milling"
)

// failedRunFitness is charged for parameter sets whose runs abort.
const failedRunFitness = 10.0

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []int64
	baseConfig *config.Config
	target     Target
	goal       float64

	mu          sync.Mutex
	bestFitness float64
	lastScore   float64 // mean order parameter from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seeds []int64, baseCfg *config.Config, target Target, goal float64) (*FitnessEvaluator, error) {
	switch target {
	case TargetPolarization, TargetMilling:
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
	return &FitnessEvaluator{
		params:      params,
		seeds:       seeds,
		baseConfig:  baseCfg,
		target:      target,
		goal:        goal,
		bestFitness: math.Inf(1),
	}, nil
}

// LastScore returns the mean order parameter from the most recent evaluation.
func (fe *FitnessEvaluator) LastScore() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastScore
}

// BestFitness returns the lowest fitness seen so far.
func (fe *FitnessEvaluator) BestFitness() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestFitness
}

// Evaluate computes fitness for a raw parameter vector (lower = better):
// the distance of the steady-state order parameter from the goal, averaged
// over seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return failedRunFitness
	}

	// Run all seeds in parallel
	scores := make([]float64, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			scores[idx], errs[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total, totalScore float64
	for i := range scores {
		if errs[i] != nil {
			total += failedRunFitness
			continue
		}
		total += math.Abs(scores[i] - fe.goal)
		totalScore += scores[i]
	}
	n := float64(len(fe.seeds))
	fitness := total / n

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
	}
	fe.lastScore = totalScore / n
	fe.mu.Unlock()

	return fitness
}

// runSimulation executes a single headless run and returns the mean target
// order parameter over the second half of the run.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (float64, error) {
	s, err := swarm.New(cfg.Derived.Params, swarm.Options{Seed: seed, Workers: 1})
	if err != nil {
		return 0, err
	}
	defer s.Close()

	for _, pl := range cfg.Initial {
		if err := s.Place(pl.Fish, config.Vec(pl.Position), config.Vec(pl.Direction)); err != nil {
			return 0, err
		}
	}

	pos, dir, err := s.Simulate(cfg.Run.Steps)
	if err != nil {
		return 0, err
	}
	series := telemetry.ComputeSeries(pos, dir, cfg.Telemetry.StatsInterval)

	// Discard the transient.
	steady := series[len(series)/2:]
	values := make([]float64, len(steady))
	for i, o := range steady {
		if fe.target == TargetMilling {
			values[i] = o.Milling
		} else {
			values[i] = o.Polarization
		}
	}
	return stat.Mean(values, nil), nil
}

// copyConfig returns a copy of the base config that shares no slices.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	c := *fe.baseConfig
	c.Swarm.BoxLengths = slices.Clone(c.Swarm.BoxLengths)
	c.Swarm.ReflectAtBoundary = slices.Clone(c.Swarm.ReflectAtBoundary)
	c.Initial = slices.Clone(c.Initial)
	return &c
}
