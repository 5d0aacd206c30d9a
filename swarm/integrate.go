package swarm

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// decide computes the next state of fish i from its accumulators. The fish
// itself is not moved; see applyIntents.
func (s *Swarm) decide(i int) (intent, error) {
	f := s.fish[i]
	if s.verbose {
		s.logger.Debug("fish decision", "step", s.t+1, "fish", f)
	}

	dir, err := f.DecideDirection(s.maxTurn, s.params.NoiseSigma)
	if err != nil {
		return intent{}, &NumericalError{
			Step:   s.t + 1,
			Fish:   i,
			Other:  -1,
			Reason: "desired direction has zero length",
			Err:    err,
		}
	}

	disp := r3.Scale(s.params.Speed*s.params.Dt, dir)
	pos, dir := s.params.boundary(f.Position, disp, dir)
	return intent{Position: pos, Direction: dir}, nil
}

func (s *Swarm) integrateRange(i0, i1 int) {
	for i := i0; i < i1; i++ {
		s.par.intents[i], s.par.errs[i] = s.decide(i)
	}
}

// integrate decides every fish, then moves them all. Nothing moves if any
// decision fails.
func (s *Swarm) integrate() error {
	if s.par.enabled() {
		s.computeParallel(phaseIntegrate)
	} else {
		s.integrateRange(0, len(s.fish))
	}
	if err := s.par.firstErr(); err != nil {
		return err
	}
	s.applyIntents()
	return nil
}

// applyIntents writes decided states back in index order.
func (s *Swarm) applyIntents() {
	for i, f := range s.fish {
		in := &s.par.intents[i]
		f.Position = in.Position
		f.Direction = in.Direction
	}
}
