package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/benmaier/couzinswarm/config"
	"github.com/benmaier/couzinswarm/swarm"
)

// TrajectoryRow is one fish at one time index in trajectory.csv.
type TrajectoryRow struct {
	Step int     `csv:"step"`
	Fish int     `csv:"fish"`
	X    float64 `csv:"x"`
	Y    float64 `csv:"y"`
	Z    float64 `csv:"z"`
	DX   float64 `csv:"dx"`
	DY   float64 `csv:"dy"`
	DZ   float64 `csv:"dz"`
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir            string
	trajectoryFile *os.File
	orderFile      *os.File
	perfFile       *os.File

	// Track if headers have been written
	trajectoryHeaderWritten bool
	orderHeaderWritten      bool
	perfHeaderWritten       bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. trajectory.csv is only created when trajectory is set.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, trajectory bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	var err error
	if trajectory {
		om.trajectoryFile, err = os.Create(filepath.Join(dir, "trajectory.csv"))
		if err != nil {
			return nil, fmt.Errorf("creating trajectory.csv: %w", err)
		}
	}

	om.orderFile, err = os.Create(filepath.Join(dir, "order.csv"))
	if err != nil {
		om.Close()
		return nil, fmt.Errorf("creating order.csv: %w", err)
	}

	om.perfFile, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTrajectory appends every frame of a simulated run to trajectory.csv,
// one row per fish and time index.
func (om *OutputManager) WriteTrajectory(pos, dir *swarm.Trajectory) error {
	if om == nil || om.trajectoryFile == nil {
		return nil
	}

	n, steps, _ := pos.Shape()
	rows := make([]TrajectoryRow, n)
	for t := 0; t < steps; t++ {
		for i := range rows {
			p, d := pos.At(i, t), dir.At(i, t)
			rows[i] = TrajectoryRow{Step: t, Fish: i, X: p.X, Y: p.Y, Z: p.Z, DX: d.X, DY: d.Y, DZ: d.Z}
		}
		if err := om.write(om.trajectoryFile, &om.trajectoryHeaderWritten, rows); err != nil {
			return fmt.Errorf("writing trajectory: %w", err)
		}
	}
	return nil
}

// WriteOrder writes an order-parameter record to order.csv.
func (om *OutputManager) WriteOrder(o Order) error {
	if om == nil {
		return nil
	}
	if err := om.write(om.orderFile, &om.orderHeaderWritten, []Order{o}); err != nil {
		return fmt.Errorf("writing order: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(windowEnd)}
	if err := om.write(om.perfFile, &om.perfHeaderWritten, records); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// write marshals records, including headers only on the first call per file.
func (om *OutputManager) write(f *os.File, headerWritten *bool, records any) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.trajectoryFile, om.orderFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReadTrajectory loads a trajectory.csv written by WriteTrajectory back
// into dense position and direction arrays.
func ReadTrajectory(path string) (pos, dir *swarm.Trajectory, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening trajectory: %w", err)
	}
	defer f.Close()

	var rows []TrajectoryRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, nil, fmt.Errorf("parsing trajectory: %w", err)
	}

	n, steps := 0, 0
	for _, r := range rows {
		if r.Fish < 0 || r.Step < 0 {
			return nil, nil, fmt.Errorf("parsing trajectory: negative index in row %+v", r)
		}
		n = max(n, r.Fish+1)
		steps = max(steps, r.Step+1)
	}
	if len(rows) != n*steps {
		return nil, nil, fmt.Errorf("parsing trajectory: %d rows do not fill %d fish x %d steps", len(rows), n, steps)
	}

	pos = swarm.NewTrajectory(n, steps)
	dir = swarm.NewTrajectory(n, steps)
	for _, r := range rows {
		pos.Set(r.Fish, r.Step, r3.Vec{X: r.X, Y: r.Y, Z: r.Z})
		dir.Set(r.Fish, r.Step, r3.Vec{X: r.DX, Y: r.DY, Z: r.DZ})
	}
	return pos, dir, nil
}
