package swarm

import "gonum.org/v1/gonum/spatial/r3"

// Trajectory is a dense (fish, time, 3) array of vectors. Index t = 0 holds
// the state before the first step.
type Trajectory struct {
	fish, steps int
	data        []float64
}

// NewTrajectory allocates a zeroed trajectory for n fish and t time points.
func NewTrajectory(n, t int) *Trajectory {
	return &Trajectory{fish: n, steps: t, data: make([]float64, n*t*3)}
}

// Shape returns (fish, time points, 3).
func (tr *Trajectory) Shape() (int, int, int) {
	return tr.fish, tr.steps, 3
}

// At returns the vector of fish i at time index t.
func (tr *Trajectory) At(i, t int) r3.Vec {
	o := tr.offset(i, t)
	return r3.Vec{X: tr.data[o], Y: tr.data[o+1], Z: tr.data[o+2]}
}

// Set stores the vector of fish i at time index t.
func (tr *Trajectory) Set(i, t int, v r3.Vec) {
	o := tr.offset(i, t)
	tr.data[o], tr.data[o+1], tr.data[o+2] = v.X, v.Y, v.Z
}

// Frame copies all fish at time index t into dst, growing it as needed.
func (tr *Trajectory) Frame(t int, dst []r3.Vec) []r3.Vec {
	dst = dst[:0]
	for i := 0; i < tr.fish; i++ {
		dst = append(dst, tr.At(i, t))
	}
	return dst
}

// Raw exposes the backing slice in (fish, time, axis) row-major order.
func (tr *Trajectory) Raw() []float64 {
	return tr.data
}

func (tr *Trajectory) offset(i, t int) int {
	if i < 0 || i >= tr.fish || t < 0 || t >= tr.steps {
		panic("swarm: trajectory index out of range")
	}
	return (i*tr.steps + t) * 3
}
