package fish

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/benmaier/couzinswarm/vecmath"
)

func newTestFish(t *testing.T, dir r3.Vec) *Fish {
	t.Helper()
	f, err := New(0, r3.Vec{X: 50, Y: 50, Z: 50}, &dir, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return f
}

func assertVecInDelta(t *testing.T, want, got r3.Vec, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func TestNewNormalizesDirection(t *testing.T) {
	f := newTestFish(t, r3.Vec{X: 3, Y: 4})
	assertVecInDelta(t, r3.Vec{X: 0.6, Y: 0.8}, f.Direction, 1e-12)
}

func TestNewRejectsZeroDirection(t *testing.T) {
	_, err := New(0, r3.Vec{}, &r3.Vec{}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrZeroDirection)
}

func TestNewSamplesUnitDirection(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var mean r3.Vec
	const n = 2000
	for i := 0; i < n; i++ {
		f, err := New(i, r3.Vec{}, nil, rng)
		require.NoError(t, err)
		require.InDelta(t, 1, r3.Norm(f.Direction), 1e-12)
		mean = r3.Add(mean, f.Direction)
	}
	// Uniform on the sphere: the mean direction vanishes.
	assert.Less(t, r3.Norm(r3.Scale(1.0/n, mean)), 0.1)
}

func TestZoneUpdates(t *testing.T) {
	f := newTestFish(t, r3.Vec{Z: 1})

	f.RepulsionUpdate(r3.Vec{X: 1})
	f.RepulsionUpdate(r3.Vec{Y: 1})
	f.OrientationUpdate(r3.Vec{Z: 1})
	f.AttractionUpdate(r3.Vec{X: 1})
	f.AttractionUpdate(r3.Vec{X: 1})

	nR, nO, nA := f.Counts()
	assert.Equal(t, 2, nR)
	assert.Equal(t, 1, nO)
	assert.Equal(t, 2, nA)

	dR, dO, dA := f.Influences()
	assert.Equal(t, r3.Vec{X: -1, Y: -1}, dR, "repulsion steers away")
	assert.Equal(t, r3.Vec{Z: 1}, dO)
	assert.Equal(t, r3.Vec{X: 2}, dA, "attraction adds without self-reference")
}

func TestDesiredDirectionPriority(t *testing.T) {
	heading := r3.Vec{Z: 1}
	tests := []struct {
		name  string
		setup func(f *Fish)
		want  r3.Vec
	}{
		{
			name:  "no neighbours keeps heading",
			setup: func(f *Fish) {},
			want:  heading,
		},
		{
			name: "repulsion dominates",
			setup: func(f *Fish) {
				f.RepulsionUpdate(r3.Vec{X: 1})
				f.OrientationUpdate(r3.Vec{Y: 1})
				f.AttractionUpdate(r3.Vec{Y: 1})
			},
			want: r3.Vec{X: -1},
		},
		{
			name: "orientation and attraction averaged",
			setup: func(f *Fish) {
				f.OrientationUpdate(r3.Vec{Y: 1})
				f.AttractionUpdate(r3.Vec{X: 1})
			},
			want: r3.Vec{X: 0.5, Y: 0.5},
		},
		{
			name:  "orientation only",
			setup: func(f *Fish) { f.OrientationUpdate(r3.Vec{Y: 1}) },
			want:  r3.Vec{Y: 1},
		},
		{
			name:  "attraction only",
			setup: func(f *Fish) { f.AttractionUpdate(r3.Vec{X: -1}) },
			want:  r3.Vec{X: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFish(t, heading)
			tt.setup(f)
			assert.Equal(t, tt.want, f.DesiredDirection())
		})
	}
}

func TestDecideDirectionRepulsionPriority(t *testing.T) {
	f := newTestFish(t, r3.Vec{Z: 1})
	f.RepulsionUpdate(r3.Vec{X: 1})
	f.RepulsionUpdate(r3.Vec{Y: 1})
	f.OrientationUpdate(r3.Vec{Z: 1})
	f.AttractionUpdate(r3.Vec{Z: 1})

	// No noise and no turn limit: the realized direction is unit(dR).
	got, err := f.DecideDirection(math.Pi, 0)
	require.NoError(t, err)
	assertVecInDelta(t, r3.Unit(r3.Vec{X: -1, Y: -1}), got, 1e-9)
}

func TestDecideDirectionResetsAccumulators(t *testing.T) {
	f := newTestFish(t, r3.Vec{Z: 1})
	f.OrientationUpdate(r3.Vec{X: 1})
	f.AttractionUpdate(r3.Vec{Y: 1})

	_, err := f.DecideDirection(0.1, 0.05)
	require.NoError(t, err)

	nR, nO, nA := f.Counts()
	assert.Zero(t, nR+nO+nA)
	dR, dO, dA := f.Influences()
	assert.Equal(t, r3.Vec{}, dR)
	assert.Equal(t, r3.Vec{}, dO)
	assert.Equal(t, r3.Vec{}, dA)
}

func TestDecideDirectionDoesNotMutateDirection(t *testing.T) {
	f := newTestFish(t, r3.Vec{Z: 1})
	f.AttractionUpdate(r3.Vec{X: 1})

	_, err := f.DecideDirection(0.1, 0)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{Z: 1}, f.Direction)
}

func TestDecideDirectionTurnBound(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const maxTurn = 0.01

	for i := 0; i < 500; i++ {
		f, err := New(i, r3.Vec{}, nil, rng)
		require.NoError(t, err)

		target := RandomDirection(rng)
		switch i % 3 {
		case 0:
			f.RepulsionUpdate(target)
		case 1:
			f.OrientationUpdate(target)
		default:
			f.AttractionUpdate(target)
		}

		got, err := f.DecideDirection(maxTurn, 0.05)
		require.NoError(t, err)
		require.InDelta(t, 1, r3.Norm(got), 1e-9, "direction must stay unit length")
		assert.LessOrEqual(t, vecmath.Angle(got, f.Direction), maxTurn+1e-9)
	}
}

func TestDecideDirectionSmallTurnIsNotLimited(t *testing.T) {
	f := newTestFish(t, r3.Vec{Z: 1})
	target := r3.Unit(r3.Vec{X: 0.01, Z: 1})
	f.OrientationUpdate(target)

	got, err := f.DecideDirection(0.5, 0)
	require.NoError(t, err)
	assertVecInDelta(t, target, got, 1e-9)
}

func TestDecideDirectionKeepsHeadingWithoutNeighbours(t *testing.T) {
	dir := r3.Unit(r3.Vec{X: 1, Y: -2, Z: 0.5})
	f := newTestFish(t, dir)
	for step := 0; step < 100; step++ {
		got, err := f.DecideDirection(0.01, 0)
		require.NoError(t, err)
		f.Direction = got
	}
	assertVecInDelta(t, dir, f.Direction, 1e-9)
}

func TestDecideDirectionZeroDesired(t *testing.T) {
	f := newTestFish(t, r3.Vec{Z: 1})
	// Two opposite repulsion neighbours cancel exactly.
	f.RepulsionUpdate(r3.Vec{X: 1})
	f.RepulsionUpdate(r3.Vec{X: -1})

	_, err := f.DecideDirection(0.1, 0)
	assert.True(t, errors.Is(err, ErrZeroDirection))

	nR, _, _ := f.Counts()
	assert.Zero(t, nR, "accumulators are cleared on failure too")
}

func TestNoiseStreamIsSeededFromSource(t *testing.T) {
	decide := func() r3.Vec {
		dir := r3.Vec{X: 1}
		f, err := New(0, r3.Vec{}, &dir, rand.New(rand.NewSource(99)))
		require.NoError(t, err)
		got, err := f.DecideDirection(math.Pi, 0.2)
		require.NoError(t, err)
		return got
	}
	assert.Equal(t, decide(), decide())
}
