// Package fish implements a single swarm member: its kinematic state, the
// per-step zone influence accumulators and the Couzin direction decision.
package fish

import (
	"errors"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/benmaier/couzinswarm/vecmath"
)

// MinNorm is the length below which a desired direction cannot be normalized.
const MinNorm = 1e-12

// ErrZeroDirection is returned when the desired direction has zero length.
var ErrZeroDirection = errors.New("fish: desired direction has zero length")

// Fish holds the state of one swarm member.
//
// The accumulators are written during the pairwise phase of a step and read
// and cleared exactly once by DecideDirection.
type Fish struct {
	ID        int
	Position  r3.Vec // fish lengths
	Direction r3.Vec // unit vector

	// zone influences
	dR, dO, dA r3.Vec
	nR, nO, nA int

	rng *rand.Rand // private noise stream
}

// New creates a fish at pos. If dir is nil a direction is sampled uniformly
// on the unit sphere from rng; otherwise dir is normalized. The fish's
// private noise stream is seeded from rng after the direction draw.
func New(id int, pos r3.Vec, dir *r3.Vec, rng *rand.Rand) (*Fish, error) {
	f := &Fish{ID: id, Position: pos}
	if dir == nil {
		f.Direction = RandomDirection(rng)
	} else {
		n := r3.Norm(*dir)
		if n < MinNorm {
			return nil, ErrZeroDirection
		}
		f.Direction = r3.Scale(1/n, *dir)
	}
	f.rng = rand.New(rand.NewSource(rng.Int63()))
	return f, nil
}

// RandomDirection samples a direction uniformly on the unit sphere.
// It draws three normal deviates per attempt.
func RandomDirection(rng *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		if n := r3.Norm(v); n >= MinNorm {
			return r3.Scale(1/n, v)
		}
	}
}

// RepulsionUpdate records a neighbour inside the zone of repulsion.
// rij is the unit vector pointing toward the neighbour.
func (f *Fish) RepulsionUpdate(rij r3.Vec) {
	f.dR = r3.Sub(f.dR, rij)
	f.nR++
}

// OrientationUpdate records a visible neighbour inside the zone of
// orientation. vj is the neighbour's direction.
func (f *Fish) OrientationUpdate(vj r3.Vec) {
	f.dO = r3.Add(f.dO, vj)
	f.nO++
}

// AttractionUpdate records a visible neighbour inside the zone of
// attraction. rij is the unit vector pointing toward the neighbour.
func (f *Fish) AttractionUpdate(rij r3.Vec) {
	f.dA = r3.Add(f.dA, rij)
	f.nA++
}

// Counts returns the number of neighbours recorded per zone.
func (f *Fish) Counts() (nR, nO, nA int) {
	return f.nR, f.nO, f.nA
}

// Influences returns the accumulated zone vectors.
func (f *Fish) Influences() (dR, dO, dA r3.Vec) {
	return f.dR, f.dO, f.dA
}

// Reset clears all zone influences.
func (f *Fish) Reset() {
	f.dR, f.dO, f.dA = r3.Vec{}, r3.Vec{}, r3.Vec{}
	f.nR, f.nO, f.nA = 0, 0, 0
}

// DesiredDirection applies the zone priority rule to the accumulators.
// Repulsion overrides everything else. Orientation and attraction are
// averaged when both are present. Without neighbours the current
// direction is kept. The result is not normalized.
func (f *Fish) DesiredDirection() r3.Vec {
	switch {
	case f.nR > 0:
		return f.dR
	case f.nO > 0 && f.nA > 0:
		return r3.Scale(0.5, r3.Add(f.dO, f.dA))
	case f.nO > 0:
		return f.dO
	case f.nA > 0:
		return f.dA
	default:
		return f.Direction
	}
}

// DecideDirection returns the direction the fish takes this step and clears
// the accumulators. The desired direction is perturbed by Gaussian noise of
// standard deviation sigma on both spherical angles, then the turn away from
// the current direction is limited to maxTurn radians.
//
// Direction itself is left untouched so that every fish can decide against
// the same frozen state before any of them moves.
func (f *Fish) DecideDirection(maxTurn, sigma float64) (r3.Vec, error) {
	defer f.Reset()

	d := f.DesiredDirection()
	n := r3.Norm(d)
	if n < MinNorm {
		return r3.Vec{}, ErrZeroDirection
	}
	d = r3.Scale(1/n, d)

	θ, φ := vecmath.CartesianToSpherical(d)
	θ += sigma * f.rng.NormFloat64()
	φ += sigma * f.rng.NormFloat64()
	noisy := r3.Unit(vecmath.SphericalToCartesian(θ, φ))

	if vecmath.Angle(noisy, f.Direction) > maxTurn {
		return r3.Unit(vecmath.RotateToward(f.Direction, noisy, maxTurn)), nil
	}
	return noisy, nil
}

// LogValue implements slog.LogValuer for verbose decision logging.
func (f *Fish) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", f.ID),
		slog.Any("position", f.Position),
		slog.Any("direction", f.Direction),
		slog.Int("n_r", f.nR),
		slog.Any("d_r", f.dR),
		slog.Int("n_o", f.nO),
		slog.Any("d_o", f.dO),
		slog.Int("n_a", f.nA),
		slog.Any("d_a", f.dA),
	)
}
