// Package vecmath provides the geometric primitives used by the swarm:
// bounded rotation of one direction toward another and conversion between
// cartesian unit vectors and spherical angles.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ParallelEpsilon is the cross-product norm below which two directions are
// treated as parallel (or anti-parallel) and no rotation axis exists.
const ParallelEpsilon = 1e-15

// RotateToward rotates current about the axis current×target by angle.
// If the two vectors are (anti-)parallel the rotation is undefined and
// current is returned unchanged.
func RotateToward(current, target r3.Vec, angle float64) r3.Vec {
	axis := r3.Cross(current, target)
	n := r3.Norm(axis)
	if n < ParallelEpsilon {
		return current
	}
	axis = r3.Scale(1/n, axis)

	R := rodrigues(axis, angle)
	v := mat.NewVecDense(3, []float64{current.X, current.Y, current.Z})
	var out mat.VecDense
	out.MulVec(R, v)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// rodrigues returns R = I + sin(θ)K + (1-cos(θ))K² for the unit axis k,
// where K is the cross-product matrix of k.
func rodrigues(k r3.Vec, θ float64) *mat.Dense {
	K := mat.NewDense(3, 3, []float64{
		0, -k.Z, k.Y,
		k.Z, 0, -k.X,
		-k.Y, k.X, 0,
	})
	var K2 mat.Dense
	K2.Mul(K, K)

	sin, cos := math.Sincos(θ)
	R := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	var sK, cK2 mat.Dense
	sK.Scale(sin, K)
	cK2.Scale(1-cos, &K2)
	R.Add(R, &sK)
	R.Add(R, &cK2)
	return R
}

// CartesianToSpherical returns the polar angle θ (from +z) and the azimuth
// φ = atan2(x, y) of the unit vector v. Non-unit input yields meaningless
// angles; callers normalize first.
func CartesianToSpherical(v r3.Vec) (θ, φ float64) {
	θ = math.Acos(Clip(v.Z, -1, 1))
	φ = math.Atan2(v.X, v.Y)
	return θ, φ
}

// SphericalToCartesian returns the unit vector for the angles θ and φ.
// A θ outside [0, π] is reflected back into range with φ turned by π, so
// every pair of reals maps to a valid direction.
func SphericalToCartesian(θ, φ float64) r3.Vec {
	if θ < 0 {
		θ = math.Pi + θ
		φ += math.Pi
	} else if θ > math.Pi {
		θ = θ - math.Pi
		φ += math.Pi
	}
	sinθ, cosθ := math.Sincos(θ)
	sinφ, cosφ := math.Sincos(φ)
	return r3.Vec{X: sinθ * sinφ, Y: sinθ * cosφ, Z: cosθ}
}

// Angle returns the angle between two unit vectors in [0, π].
func Angle(a, b r3.Vec) float64 {
	return math.Acos(Clip(r3.Dot(a, b), -1, 1))
}

// Clip limits x to [lo, hi].
func Clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
