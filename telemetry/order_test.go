package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/benmaier/couzinswarm/swarm"
)

func TestComputeOrder(t *testing.T) {
	tests := []struct {
		name         string
		pos, dir     []r3.Vec
		polarization float64
		milling      float64
		meanRadius   float64
		nn           float64
	}{
		{
			name:         "parallel line",
			pos:          []r3.Vec{{X: 0}, {X: 2}, {X: 4}},
			dir:          []r3.Vec{{Y: 1}, {Y: 1}, {Y: 1}},
			polarization: 1,
			milling:      0,
			meanRadius:   4.0 / 3.0,
			nn:           2,
		},
		{
			name:         "mill",
			pos:          []r3.Vec{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}},
			dir:          []r3.Vec{{Y: 1}, {X: -1}, {Y: -1}, {X: 1}},
			polarization: 0,
			milling:      1,
			meanRadius:   1,
			nn:           math.Sqrt2,
		},
		{
			name:         "opposed pair",
			pos:          []r3.Vec{{Z: 1}, {Z: 3}},
			dir:          []r3.Vec{{Z: 1}, {Z: -1}},
			polarization: 0,
			milling:      0,
			meanRadius:   1,
			nn:           2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := ComputeOrder(5, tt.pos, tt.dir)
			assert.Equal(t, 5, o.Step)
			assert.InDelta(t, tt.polarization, o.Polarization, 1e-12)
			assert.InDelta(t, tt.milling, o.Milling, 1e-12)
			assert.InDelta(t, tt.meanRadius, o.MeanRadius, 1e-12)
			assert.InDelta(t, tt.nn, o.NNMean, 1e-12)
			assert.InDelta(t, tt.nn, o.NNP50, 1e-12)
		})
	}
}

func TestComputeOrderCentroid(t *testing.T) {
	o := ComputeOrder(0, []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 3, Y: 2, Z: 1}}, []r3.Vec{{X: 1}, {X: 1}})
	assert.Equal(t, []float64{2, 2, 2}, []float64{o.CentroidX, o.CentroidY, o.CentroidZ})
}

func TestComputeOrderDegenerate(t *testing.T) {
	assert.Equal(t, Order{Step: 3}, ComputeOrder(3, nil, nil))

	lone := ComputeOrder(0, []r3.Vec{{X: 5}}, []r3.Vec{{Z: 1}})
	assert.Equal(t, 1.0, lone.Polarization)
	assert.Zero(t, lone.Milling)
	assert.Zero(t, lone.NNMean)
}

func TestDistribution(t *testing.T) {
	values := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	mean, p10, p50, p90 := Distribution(values)
	assert.InDelta(t, 5.5, mean, 1e-12)
	assert.Equal(t, 1.0, p10)
	assert.Equal(t, 5.0, p50)
	assert.Equal(t, 9.0, p90)
	assert.Equal(t, 10.0, values[0], "input must not be reordered")

	mean, p10, p50, p90 = Distribution(nil)
	assert.Zero(t, mean+p10+p50+p90)
}

func TestNearestNeighbourDistances(t *testing.T) {
	nn := NearestNeighbourDistances([]r3.Vec{{}, {X: 1}, {X: 5}})
	assert.Equal(t, []float64{1, 1, 4}, nn)
}

func TestComputeSeries(t *testing.T) {
	pos := swarm.NewTrajectory(2, 11)
	dir := swarm.NewTrajectory(2, 11)
	for tt := 0; tt < 11; tt++ {
		pos.Set(0, tt, r3.Vec{X: float64(tt)})
		pos.Set(1, tt, r3.Vec{X: float64(tt), Y: 1})
		dir.Set(0, tt, r3.Vec{X: 1})
		dir.Set(1, tt, r3.Vec{X: 1})
	}

	series := ComputeSeries(pos, dir, 4)
	require.Len(t, series, 4)
	steps := make([]int, len(series))
	for i, o := range series {
		steps[i] = o.Step
		assert.InDelta(t, 1, o.Polarization, 1e-12)
	}
	assert.Equal(t, []int{0, 4, 8, 10}, steps)
	assert.Equal(t, 10.0, series[3].CentroidX)

	assert.Len(t, ComputeSeries(pos, dir, 0), 11)
	assert.Len(t, ComputeSeries(pos, dir, 5), 3)
}

func TestPairRunAligns(t *testing.T) {
	p := swarm.DefaultParams()
	p.NumberOfFish = 2
	p.AngleOfPerception = math.Pi
	p.Speed = 0.01
	p.NoiseSigma = 0
	s, err := swarm.New(p, swarm.Options{
		Positions:  []r3.Vec{{X: 47, Y: 50, Z: 50}, {X: 58, Y: 50, Z: 50}},
		Directions: []r3.Vec{{Z: 1}, {X: 1}},
	})
	require.NoError(t, err)
	pos, dir, err := s.Simulate(1000)
	require.NoError(t, err)

	series := ComputeSeries(pos, dir, 100)
	first, last := series[0], series[len(series)-1]
	assert.InDelta(t, math.Sqrt2/2, first.Polarization, 1e-12)
	assert.Greater(t, last.Polarization, 0.99)
}
