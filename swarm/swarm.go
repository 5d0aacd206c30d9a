// Package swarm runs the Couzin zonal model: a fixed population of fish in a
// box with reflecting or periodic walls, advanced in discrete steps that
// first classify every pair of fish into a zone and then let each fish turn
// and swim.
package swarm

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/benmaier/couzinswarm/fish"
)

// Phase names reported to a PhaseTimer.
const (
	PhasePairwise  = "pairwise"
	PhaseIntegrate = "integrate"
	PhaseRecord    = "record"
)

// PhaseTimer receives per-step timing. *telemetry.PerfCollector implements it.
type PhaseTimer interface {
	StartTick()
	StartPhase(phase string)
	EndTick()
}

// ProgressFunc is called by Simulate with step 0 before the first step and
// with 1..total after each completed step.
type ProgressFunc func(step, total int)

// State is the observable state of one fish.
type State struct {
	Position  r3.Vec
	Direction r3.Vec
}

// Options control construction and execution of a Swarm. The zero value is
// usable: seed 0, one worker per CPU, random initial state, default logger.
type Options struct {
	Seed    int64
	Workers int // <= 0 means runtime.GOMAXPROCS(0)

	Logger  *slog.Logger
	Verbose bool // log every fish decision at debug level

	Progress ProgressFunc
	Perf     PhaseTimer

	// Optional initial state; nil means sample from the seeded stream.
	// When set, each slice must have one entry per fish.
	Positions  []r3.Vec
	Directions []r3.Vec
}

// Swarm is a population of fish evolving under fixed Params.
// A Swarm is not safe for concurrent use.
type Swarm struct {
	params Params
	shifts []r3.Vec
	fish   []*fish.Fish
	t      int

	rOrient   float64
	rInteract float64
	maxTurn   float64

	logger   *slog.Logger
	verbose  bool
	progress ProgressFunc
	perf     PhaseTimer

	par *parallelState
}

// New validates p and creates the population. Fish are initialised in index
// order from a stream seeded with opts.Seed: position (if not supplied),
// direction (if not supplied), then the seed of the fish's noise stream.
func New(p Params, opts Options) (*Swarm, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := p.NumberOfFish
	if opts.Positions != nil && len(opts.Positions) != n {
		return nil, &ConfigurationError{
			Field:  "positions",
			Value:  len(opts.Positions),
			Reason: fmt.Sprintf("need %d entries", n),
		}
	}
	if opts.Directions != nil && len(opts.Directions) != n {
		return nil, &ConfigurationError{
			Field:  "directions",
			Value:  len(opts.Directions),
			Reason: fmt.Sprintf("need %d entries", n),
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	s := &Swarm{
		params:    p,
		shifts:    p.Shifts(),
		fish:      make([]*fish.Fish, n),
		rOrient:   p.OrientationRadius(),
		rInteract: p.InteractionRadius(),
		maxTurn:   p.MaxTurn(),
		logger:    logger,
		verbose:   opts.Verbose,
		progress:  opts.Progress,
		perf:      opts.Perf,
		par:       newParallelState(n, workers),
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	for i := range s.fish {
		var pos r3.Vec
		if opts.Positions != nil {
			pos = opts.Positions[i]
			if !p.inBox(pos) {
				return nil, &ConfigurationError{
					Field:  fmt.Sprintf("positions[%d]", i),
					Value:  pos,
					Reason: "outside the box",
				}
			}
		} else {
			pos.X = rng.Float64() * p.BoxLengths[0]
			pos.Y = rng.Float64() * p.BoxLengths[1]
			pos.Z = rng.Float64() * p.BoxLengths[2]
		}

		var dir *r3.Vec
		if opts.Directions != nil {
			d := opts.Directions[i]
			dir = &d
		}

		f, err := fish.New(i, pos, dir, rng)
		if errors.Is(err, fish.ErrZeroDirection) {
			return nil, &ConfigurationError{
				Field:  fmt.Sprintf("directions[%d]", i),
				Value:  opts.Directions[i],
				Reason: "zero length",
			}
		}
		if err != nil {
			return nil, err
		}
		s.fish[i] = f
	}
	return s, nil
}

// Len returns the number of fish.
func (s *Swarm) Len() int { return len(s.fish) }

// Params returns the run parameters.
func (s *Swarm) Params() Params { return s.params }

// Time returns the number of completed steps.
func (s *Swarm) Time() int { return s.t }

// Fish returns fish i. The returned value is owned by the swarm.
func (s *Swarm) Fish(i int) *fish.Fish { return s.fish[i] }

// Place overrides the state of fish i. The direction is normalized.
func (s *Swarm) Place(i int, pos, dir r3.Vec) error {
	if i < 0 || i >= len(s.fish) {
		return &ConfigurationError{Field: "index", Value: i, Reason: fmt.Sprintf("must be in [0, %d)", len(s.fish))}
	}
	if !s.params.inBox(pos) {
		return &ConfigurationError{Field: "position", Value: pos, Reason: "outside the box"}
	}
	n := r3.Norm(dir)
	if n < fish.MinNorm {
		return &ConfigurationError{Field: "direction", Value: dir, Reason: "zero length"}
	}
	f := s.fish[i]
	f.Position = pos
	f.Direction = r3.Scale(1/n, dir)
	return nil
}

// Snapshot appends the state of every fish, in index order, to dst[:0].
func (s *Swarm) Snapshot(dst []State) []State {
	dst = dst[:0]
	for _, f := range s.fish {
		dst = append(dst, State{Position: f.Position, Direction: f.Direction})
	}
	return dst
}

// Step advances the swarm by one time step.
func (s *Swarm) Step() error {
	s.startTick()
	defer s.endTick()
	return s.step()
}

// Simulate runs steps time steps and returns the positions and directions of
// every fish at t = 0..steps. Any error aborts the run without a result.
func (s *Swarm) Simulate(steps int) (positions, directions *Trajectory, err error) {
	if steps < 0 {
		return nil, nil, &ConfigurationError{Field: "steps", Value: steps, Reason: "must not be negative"}
	}

	n := len(s.fish)
	positions = NewTrajectory(n, steps+1)
	directions = NewTrajectory(n, steps+1)
	s.record(positions, directions, 0)
	s.reportProgress(0, steps)

	for t := 1; t <= steps; t++ {
		s.startTick()
		if err := s.step(); err != nil {
			s.endTick()
			return nil, nil, err
		}
		s.startPhase(PhaseRecord)
		s.record(positions, directions, t)
		s.endTick()
		s.reportProgress(t, steps)
	}
	return positions, directions, nil
}

// Close stops the worker pool. The swarm may still be stepped afterwards;
// workers are restarted on demand.
func (s *Swarm) Close() {
	s.par.stopWorkers()
}

// step runs the pairwise phase to completion before any fish moves.
func (s *Swarm) step() error {
	s.startPhase(PhasePairwise)
	if err := s.pairwise(); err != nil {
		for _, f := range s.fish {
			f.Reset()
		}
		return err
	}

	s.startPhase(PhaseIntegrate)
	if err := s.integrate(); err != nil {
		return err
	}
	s.t++
	return nil
}

func (s *Swarm) record(positions, directions *Trajectory, t int) {
	for i, f := range s.fish {
		positions.Set(i, t, f.Position)
		directions.Set(i, t, f.Direction)
	}
}

func (s *Swarm) reportProgress(step, total int) {
	if s.progress != nil {
		s.progress(step, total)
	}
}

func (s *Swarm) startTick() {
	if s.perf != nil {
		s.perf.StartTick()
	}
}

func (s *Swarm) startPhase(phase string) {
	if s.perf != nil {
		s.perf.StartPhase(phase)
	}
}

func (s *Swarm) endTick() {
	if s.perf != nil {
		s.perf.EndTick()
	}
}
