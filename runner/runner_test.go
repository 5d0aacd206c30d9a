package runner

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmaier/couzinswarm/config"
	"github.com/benmaier/couzinswarm/swarm"
	"github.com/benmaier/couzinswarm/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRun_PairPreset(t *testing.T) {
	cfg, err := config.LoadWithPreset("pair", "")
	require.NoError(t, err)
	cfg.Output.Dir = t.TempDir()

	var logs bytes.Buffer
	res, err := Run(cfg, Options{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
		RunID:  "pair-test",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.Output.Dir, "pair-test"), res.OutputDir)
	assert.Greater(t, res.Final().Polarization, 0.99)
	assert.Equal(t, 1000, res.Final().Step)

	for _, name := range []string{"config.yaml", "trajectory.csv", "order.csv", "perf.csv"} {
		_, err := os.Stat(filepath.Join(res.OutputDir, name))
		assert.NoError(t, err, name)
	}

	pos, _, err := telemetry.ReadTrajectory(filepath.Join(res.OutputDir, "trajectory.csv"))
	require.NoError(t, err)
	assert.Equal(t, res.Positions.Raw(), pos.Raw())

	assert.Contains(t, logs.String(), "run complete")
	assert.Contains(t, logs.String(), "run_id=pair-test")
}

func TestRun_NoOutputDir(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Run.Steps = 5

	res, err := Run(cfg, Options{Logger: quietLogger()})
	require.NoError(t, err)

	assert.Empty(t, res.OutputDir)
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err, "generated run id is a UUID")

	n, steps, _ := res.Positions.Shape()
	assert.Equal(t, 20, n)
	assert.Equal(t, 6, steps)
}

func TestRun_Progress(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Run.Steps = 4
	cfg.Telemetry.ProgressInterval = 2

	var logs bytes.Buffer
	_, err = Run(cfg, Options{
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
		Progress: &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "msg=progress")
}

func TestRun_PlacementOutsideBox(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Initial = []config.Placement{{Fish: 0, Position: []float64{200, 1, 1}, Direction: []float64{1, 0, 0}}}

	_, err = Run(cfg, Options{Logger: quietLogger()})
	assert.ErrorIs(t, err, swarm.ErrConfiguration)
	assert.ErrorContains(t, err, "placing fish 0")
}

func TestRun_CoincidentPlacement(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Initial = []config.Placement{
		{Fish: 2, Position: []float64{10, 10, 10}, Direction: []float64{1, 0, 0}},
		{Fish: 5, Position: []float64{10, 10, 10}, Direction: []float64{0, 1, 0}},
	}

	_, err = Run(cfg, Options{Logger: quietLogger()})
	require.ErrorIs(t, err, swarm.ErrNumerical)

	var nerr *swarm.NumericalError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, 2, nerr.Fish)
	assert.Equal(t, 5, nerr.Other)
}
