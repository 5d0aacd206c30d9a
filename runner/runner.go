// Package runner wires configuration, the swarm engine, telemetry and file
// output into a single headless run.
package runner

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/benmaier/couzinswarm/config"
	"github.com/benmaier/couzinswarm/swarm"
	"github.com/benmaier/couzinswarm/telemetry"
)

// Options control a run beyond what the configuration holds.
type Options struct {
	Logger   *slog.Logger // nil means slog.Default()
	Progress io.Writer    // nil disables progress reporting
	RunID    string       // empty means a fresh UUID
}

// Result is the outcome of a completed run.
type Result struct {
	RunID      string
	OutputDir  string // empty when file output is disabled
	Positions  *swarm.Trajectory
	Directions *swarm.Trajectory
	Order      []telemetry.Order
	Perf       telemetry.PerfStats
	Elapsed    time.Duration
}

// Final returns the order parameters of the last frame.
func (r *Result) Final() telemetry.Order {
	if len(r.Order) == 0 {
		return telemetry.Order{}
	}
	return r.Order[len(r.Order)-1]
}

// Run simulates cfg and writes outputs under cfg.Output.Dir/<run id> when an
// output directory is configured. cfg must have been prepared by the config
// package.
func Run(cfg *config.Config, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = logger.With("run_id", runID)

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	swarmOpts := swarm.Options{
		Seed:    cfg.Run.Seed,
		Workers: cfg.Run.Workers,
		Logger:  logger,
		Verbose: cfg.Run.Verbose,
		Perf:    perf,
	}
	if opts.Progress != nil {
		swarmOpts.Progress = telemetry.NewProgress(opts.Progress, cfg.Telemetry.ProgressInterval, logger).Func()
	}

	s, err := swarm.New(cfg.Derived.Params, swarmOpts)
	if err != nil {
		return nil, fmt.Errorf("creating swarm: %w", err)
	}
	defer s.Close()

	for _, pl := range cfg.Initial {
		if err := s.Place(pl.Fish, config.Vec(pl.Position), config.Vec(pl.Direction)); err != nil {
			return nil, fmt.Errorf("placing fish %d: %w", pl.Fish, err)
		}
	}

	logger.Info("run starting",
		"fish", s.Len(),
		"steps", cfg.Run.Steps,
		"seed", cfg.Run.Seed,
	)

	start := time.Now()
	pos, dir, err := s.Simulate(cfg.Run.Steps)
	if err != nil {
		return nil, fmt.Errorf("simulating: %w", err)
	}

	res := &Result{
		RunID:      runID,
		Positions:  pos,
		Directions: dir,
		Order:      telemetry.ComputeSeries(pos, dir, cfg.Telemetry.StatsInterval),
		Perf:       perf.Stats(),
		Elapsed:    time.Since(start),
	}

	if cfg.Output.Dir != "" {
		res.OutputDir = filepath.Join(cfg.Output.Dir, runID)
		if err := writeOutputs(cfg, res); err != nil {
			return nil, err
		}
	}

	res.Final().LogStats(logger)
	res.Perf.LogStats(logger)
	logger.Info("run complete",
		"steps", s.Time(),
		"elapsed", res.Elapsed.Round(time.Millisecond),
		"output", res.OutputDir,
	)
	return res, nil
}

func writeOutputs(cfg *config.Config, res *Result) (err error) {
	om, err := telemetry.NewOutputManager(res.OutputDir, cfg.Output.Trajectory)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := om.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output: %w", cerr)
		}
	}()

	if err := om.WriteConfig(cfg); err != nil {
		return err
	}
	if err := om.WriteTrajectory(res.Positions, res.Directions); err != nil {
		return err
	}
	for _, o := range res.Order {
		if err := om.WriteOrder(o); err != nil {
			return err
		}
	}
	return om.WritePerf(res.Perf, cfg.Run.Steps)
}
