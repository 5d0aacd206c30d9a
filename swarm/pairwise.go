package swarm

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/benmaier/couzinswarm/fish"
	"github.com/benmaier/couzinswarm/vecmath"
)

// zone is the interaction a fish receives from one neighbour.
type zone uint8

const (
	zoneNone zone = iota
	zoneRepulsion
	zoneOrientation
	zoneAttraction
)

// contact is the classification of the unordered pair (i, j), i < j.
type contact struct {
	rij    r3.Vec // unit vector from i toward the interacting image of j
	zi, zj zone
}

// classify tests the image shifts of j in order and stops at the first one
// within interaction range, so a pair interacts through at most one image.
// Positions and directions are read only.
func (s *Swarm) classify(i, j int) (contact, error) {
	fi, fj := s.fish[i], s.fish[j]
	for _, shift := range s.shifts {
		r := r3.Sub(r3.Add(fj.Position, shift), fi.Position)
		dist := r3.Norm(r)
		if dist < fish.MinNorm {
			return contact{}, &NumericalError{
				Step:   s.t + 1,
				Fish:   i,
				Other:  j,
				Reason: "coincident positions",
			}
		}
		rij := r3.Scale(1/dist, r)

		if dist < s.params.RepulsionRadius {
			return contact{rij: rij, zi: zoneRepulsion, zj: zoneRepulsion}, nil
		}
		if dist < s.rInteract {
			social := zoneAttraction
			if dist < s.rOrient {
				social = zoneOrientation
			}
			c := contact{rij: rij}
			// Perception is asymmetric: each side checks its own heading.
			if vecmath.Angle(rij, fi.Direction) < s.params.AngleOfPerception {
				c.zi = social
			}
			if vecmath.Angle(r3.Scale(-1, rij), fj.Direction) < s.params.AngleOfPerception {
				c.zj = social
			}
			return c, nil
		}
	}
	return contact{}, nil
}

// influence records one neighbour on f. toward points from f to the
// neighbour, heading is the neighbour's direction.
func influence(f *fish.Fish, z zone, toward, heading r3.Vec) {
	switch z {
	case zoneRepulsion:
		f.RepulsionUpdate(toward)
	case zoneOrientation:
		f.OrientationUpdate(heading)
	case zoneAttraction:
		f.AttractionUpdate(toward)
	}
}

// pairwiseSerial visits every unordered pair once and updates both sides.
// Each fish receives its contributions in ascending partner order.
func (s *Swarm) pairwiseSerial() error {
	n := len(s.fish)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c, err := s.classify(i, j)
			if err != nil {
				return err
			}
			influence(s.fish[i], c.zi, c.rij, s.fish[j].Direction)
			influence(s.fish[j], c.zj, r3.Scale(-1, c.rij), s.fish[i].Direction)
		}
	}
	return nil
}

// pairwiseRange updates the accumulators of fish [i0, i1) only. Every pair
// is evaluated in canonical order, so results match pairwiseSerial exactly.
func (s *Swarm) pairwiseRange(i0, i1 int) {
	n := len(s.fish)
	for k := i0; k < i1; k++ {
		s.par.errs[k] = nil
		self := s.fish[k]
		for j := 0; j < n; j++ {
			if j == k {
				continue
			}
			lo, hi := min(k, j), max(k, j)
			c, err := s.classify(lo, hi)
			if err != nil {
				s.par.errs[k] = err
				break
			}
			if k == lo {
				influence(self, c.zi, c.rij, s.fish[j].Direction)
			} else {
				influence(self, c.zj, r3.Scale(-1, c.rij), s.fish[j].Direction)
			}
		}
	}
}

func (s *Swarm) pairwise() error {
	if !s.par.enabled() {
		return s.pairwiseSerial()
	}
	s.computeParallel(phasePairwise)
	return s.par.firstErr()
}
