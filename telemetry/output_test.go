package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmaier/couzinswarm/config"
	"github.com/benmaier/couzinswarm/swarm"
)

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("", true)
	require.NoError(t, err)
	assert.Nil(t, om)

	// All methods are no-ops on a nil manager.
	assert.NoError(t, om.WriteOrder(Order{}))
	assert.NoError(t, om.WritePerf(PerfStats{}, 0))
	assert.NoError(t, om.WriteTrajectory(nil, nil))
	assert.NoError(t, om.WriteConfig(nil))
	assert.Empty(t, om.Dir())
	assert.NoError(t, om.Close())
}

func TestOutputManager_TrajectoryRoundTrip(t *testing.T) {
	p := swarm.DefaultParams()
	p.NumberOfFish = 4
	s, err := swarm.New(p, swarm.Options{Seed: 9})
	require.NoError(t, err)
	pos, dir, err := s.Simulate(6)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(out, true)
	require.NoError(t, err)
	require.NoError(t, om.WriteTrajectory(pos, dir))
	require.NoError(t, om.Close())

	gotPos, gotDir, err := ReadTrajectory(filepath.Join(out, "trajectory.csv"))
	require.NoError(t, err)
	assert.Equal(t, pos.Raw(), gotPos.Raw())
	assert.Equal(t, dir.Raw(), gotDir.Raw())

	n, steps, _ := gotPos.Shape()
	assert.Equal(t, 4, n)
	assert.Equal(t, 7, steps)
}

func TestOutputManager_SingleHeader(t *testing.T) {
	out := t.TempDir()
	om, err := NewOutputManager(out, false)
	require.NoError(t, err)

	for step := 0; step < 3; step++ {
		require.NoError(t, om.WriteOrder(Order{Step: step, Polarization: 0.5}))
		require.NoError(t, om.WritePerf(PerfStats{AvgTickDuration: time.Millisecond}, step))
	}
	require.NoError(t, om.Close())

	for _, name := range []string{"order.csv", "perf.csv"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 4, name)
		assert.Equal(t, 1, strings.Count(string(data), "window_end")+strings.Count(string(data), "polarization"), name)
	}

	_, err = os.Stat(filepath.Join(out, "trajectory.csv"))
	assert.True(t, os.IsNotExist(err), "trajectory output was disabled")
}

func TestOutputManager_WriteConfig(t *testing.T) {
	cfg, err := config.LoadWithPreset("pair", "")
	require.NoError(t, err)

	out := t.TempDir()
	om, err := NewOutputManager(out, false)
	require.NoError(t, err)
	defer om.Close()
	require.NoError(t, om.WriteConfig(cfg))

	loaded, err := config.Load(filepath.Join(out, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg.Swarm, loaded.Swarm)
	assert.Equal(t, out, om.Dir())
}

func TestReadTrajectory_Errors(t *testing.T) {
	_, _, err := ReadTrajectory(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "opening trajectory")

	path := filepath.Join(t.TempDir(), "gappy.csv")
	content := "step,fish,x,y,z,dx,dy,dz\n0,0,1,1,1,1,0,0\n1,1,1,1,1,1,0,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	_, _, err = ReadTrajectory(path)
	assert.ErrorContains(t, err, "do not fill")
}
