package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/benmaier/couzinswarm/swarm"
)

// Order holds the collective-state order parameters of one frame.
type Order struct {
	Step int `csv:"step"`

	// Polarization is |mean(v_i)|: 1 for a parallel group, ~0 when disordered.
	Polarization float64 `csv:"polarization"`
	// Milling is |mean(unit(c_i) x v_i)| with c_i the offset from the
	// centroid: 1 for a rigid torus, ~0 otherwise.
	Milling float64 `csv:"milling"`

	CentroidX  float64 `csv:"centroid_x"`
	CentroidY  float64 `csv:"centroid_y"`
	CentroidZ  float64 `csv:"centroid_z"`
	MeanRadius float64 `csv:"mean_radius"` // mean distance to the centroid

	// Nearest-neighbour distance distribution
	NNMean float64 `csv:"nn_mean"`
	NNP10  float64 `csv:"nn_p10"`
	NNP50  float64 `csv:"nn_p50"`
	NNP90  float64 `csv:"nn_p90"`
}

// ComputeOrder calculates the order parameters of one frame. Positions are
// taken as they are; no minimum-image correction is applied.
func ComputeOrder(step int, pos, dir []r3.Vec) Order {
	o := Order{Step: step}
	n := len(pos)
	if n == 0 {
		return o
	}
	inv := 1 / float64(n)

	var sumP, sumV r3.Vec
	for i := range pos {
		sumP = r3.Add(sumP, pos[i])
		sumV = r3.Add(sumV, dir[i])
	}
	c := r3.Scale(inv, sumP)
	o.CentroidX, o.CentroidY, o.CentroidZ = c.X, c.Y, c.Z
	o.Polarization = r3.Norm(r3.Scale(inv, sumV))

	radii := make([]float64, n)
	var sumM r3.Vec
	for i := range pos {
		ci := r3.Sub(pos[i], c)
		radii[i] = r3.Norm(ci)
		if radii[i] > 1e-12 {
			sumM = r3.Add(sumM, r3.Cross(r3.Scale(1/radii[i], ci), dir[i]))
		}
	}
	o.Milling = r3.Norm(r3.Scale(inv, sumM))
	o.MeanRadius = stat.Mean(radii, nil)

	if n > 1 {
		o.NNMean, o.NNP10, o.NNP50, o.NNP90 = Distribution(NearestNeighbourDistances(pos))
	}
	return o
}

// NearestNeighbourDistances returns, for every point, the distance to the
// closest other point.
func NearestNeighbourDistances(pos []r3.Vec) []float64 {
	n := len(pos)
	nn := make([]float64, n)
	row := make([]float64, n)
	for i := range pos {
		for j := range pos {
			row[j] = r3.Norm(r3.Sub(pos[j], pos[i]))
		}
		row[i] = math.Inf(1)
		nn[i] = floats.Min(row)
	}
	return nn
}

// Distribution calculates mean and empirical percentiles of values.
func Distribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// ComputeSeries samples the order parameters every interval steps, always
// including the first and last frame.
func ComputeSeries(pos, dir *swarm.Trajectory, interval int) []Order {
	if interval < 1 {
		interval = 1
	}
	_, steps, _ := pos.Shape()
	if steps == 0 {
		return nil
	}

	var series []Order
	var p, d []r3.Vec
	last := steps - 1
	for t := 0; t <= last; t += interval {
		p, d = pos.Frame(t, p), dir.Frame(t, d)
		series = append(series, ComputeOrder(t, p, d))
	}
	if last%interval != 0 {
		p, d = pos.Frame(last, p), dir.Frame(last, d)
		series = append(series, ComputeOrder(last, p, d))
	}
	return series
}

// LogValue implements slog.LogValuer for structured logging.
func (o Order) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", o.Step),
		slog.Float64("polarization", o.Polarization),
		slog.Float64("milling", o.Milling),
		slog.Float64("mean_radius", o.MeanRadius),
		slog.Float64("nn_mean", o.NNMean),
		slog.Float64("nn_p50", o.NNP50),
	)
}

// LogStats logs the order parameters using logger.
func (o Order) LogStats(logger *slog.Logger) {
	logger.Info("order",
		"step", o.Step,
		"polarization", o.Polarization,
		"milling", o.Milling,
		"mean_radius", o.MeanRadius,
		"nn_mean", o.NNMean,
	)
}
