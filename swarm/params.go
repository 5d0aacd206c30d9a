package swarm

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Params are the model parameters of a run. Lengths are in fish lengths,
// angles in radians and times in the simulation's time unit.
type Params struct {
	NumberOfFish      int
	RepulsionRadius   float64
	OrientationWidth  float64
	AttractionWidth   float64
	AngleOfPerception float64 // half-angle measured from the heading
	TurningRate       float64 // radians per unit time
	Speed             float64 // fish lengths per unit time
	NoiseSigma        float64
	Dt                float64
	BoxLengths        [3]float64
	ReflectAtBoundary [3]bool
}

// DefaultParams returns the parameters of the classic twenty-fish setup.
func DefaultParams() Params {
	return Params{
		NumberOfFish:      20,
		RepulsionRadius:   1,
		OrientationWidth:  10,
		AttractionWidth:   10,
		AngleOfPerception: 340.0 / 360.0 * math.Pi,
		TurningRate:       0.1,
		Speed:             0.1,
		NoiseSigma:        0.01,
		Dt:                0.1,
		BoxLengths:        [3]float64{100, 100, 100},
		ReflectAtBoundary: [3]bool{true, true, true},
	}
}

// Validate checks that the parameters describe a runnable swarm.
func (p Params) Validate() error {
	switch {
	case p.NumberOfFish <= 0:
		return &ConfigurationError{"number_of_fish", p.NumberOfFish, "must be positive"}
	case p.RepulsionRadius < 0:
		return &ConfigurationError{"repulsion_radius", p.RepulsionRadius, "must not be negative"}
	case p.OrientationWidth < 0:
		return &ConfigurationError{"orientation_width", p.OrientationWidth, "must not be negative"}
	case p.AttractionWidth < 0:
		return &ConfigurationError{"attraction_width", p.AttractionWidth, "must not be negative"}
	case !(p.AngleOfPerception > 0 && p.AngleOfPerception <= math.Pi):
		return &ConfigurationError{"angle_of_perception", p.AngleOfPerception, "must be in (0, pi]"}
	case !(p.TurningRate > 0):
		return &ConfigurationError{"turning_rate", p.TurningRate, "must be positive"}
	case !(p.Speed >= 0):
		return &ConfigurationError{"speed", p.Speed, "must not be negative"}
	case !(p.NoiseSigma >= 0):
		return &ConfigurationError{"noise_sigma", p.NoiseSigma, "must not be negative"}
	case !(p.Dt > 0):
		return &ConfigurationError{"dt", p.Dt, "must be positive"}
	}
	for k, l := range p.BoxLengths {
		if !(l > 0) {
			return &ConfigurationError{"box_lengths", p.BoxLengths, "axis " + axisNames[k] + " must be positive"}
		}
	}
	return nil
}

var axisNames = [3]string{"x", "y", "z"}

// OrientationRadius is the outer radius of the zone of orientation.
func (p Params) OrientationRadius() float64 {
	return p.RepulsionRadius + p.OrientationWidth
}

// InteractionRadius is the outer radius of the zone of attraction.
func (p Params) InteractionRadius() float64 {
	return p.RepulsionRadius + p.OrientationWidth + p.AttractionWidth
}

// MaxTurn is the largest turn a fish may make in one step.
func (p Params) MaxTurn() float64 {
	return p.TurningRate * p.Dt
}

// Shifts returns the periodic image offsets to test for each pair.
// A reflecting axis contributes {0}, a periodic one {0, -L, +L}. The
// product is ordered X-major, then Y, then Z, so the zero shift comes first.
func (p Params) Shifts() []r3.Vec {
	var axes [3][]float64
	for k, l := range p.BoxLengths {
		if p.ReflectAtBoundary[k] {
			axes[k] = []float64{0}
		} else {
			axes[k] = []float64{0, -l, l}
		}
	}
	shifts := make([]r3.Vec, 0, len(axes[0])*len(axes[1])*len(axes[2]))
	for _, x := range axes[0] {
		for _, y := range axes[1] {
			for _, z := range axes[2] {
				shifts = append(shifts, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return shifts
}

// inBox reports whether pos lies inside the closed simulation box.
func (p Params) inBox(pos r3.Vec) bool {
	c := toArray(pos)
	for k, l := range p.BoxLengths {
		if !(c[k] >= 0 && c[k] <= l) {
			return false
		}
	}
	return true
}

// boundary applies the per-axis boundary rule to a step from pos by disp
// with new heading dir, returning the final position and heading.
// On a reflecting axis both the displacement and heading component are
// negated; on a periodic axis the displacement is shifted by one box length.
func (p Params) boundary(pos, disp, dir r3.Vec) (r3.Vec, r3.Vec) {
	x, d, v := toArray(pos), toArray(disp), toArray(dir)
	for k, l := range p.BoxLengths {
		next := x[k] + d[k]
		if next >= 0 && next <= l {
			continue
		}
		switch {
		case p.ReflectAtBoundary[k]:
			d[k] = -d[k]
			v[k] = -v[k]
		case next > l:
			d[k] -= l
		default:
			d[k] += l
		}
	}
	return r3.Add(pos, fromArray(d)), fromArray(v)
}

func toArray(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func fromArray(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
