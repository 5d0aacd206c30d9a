// Package config provides configuration loading and access for the swarm
// simulation.
package config

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/benmaier/couzinswarm/swarm"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed presets/*.yaml
var presetFS embed.FS

// Config holds all simulation configuration parameters.
type Config struct {
	Swarm     SwarmConfig     `yaml:"swarm"`
	Initial   []Placement     `yaml:"initial,omitempty"`
	Run       RunConfig       `yaml:"run"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SwarmConfig holds the model parameters.
type SwarmConfig struct {
	NumberOfFish      int       `yaml:"number_of_fish"`
	RepulsionRadius   float64   `yaml:"repulsion_radius"`    // fish lengths
	OrientationWidth  float64   `yaml:"orientation_width"`   // shell width beyond repulsion
	AttractionWidth   float64   `yaml:"attraction_width"`    // shell width beyond orientation
	AngleOfPerception float64   `yaml:"angle_of_perception"` // half-angle, radians
	TurningRate       float64   `yaml:"turning_rate"`        // radians per time unit
	Speed             float64   `yaml:"speed"`               // fish lengths per time unit
	NoiseSigma        float64   `yaml:"noise_sigma"`
	Dt                float64   `yaml:"dt"`
	BoxLengths        []float64 `yaml:"box_lengths,flow"`
	ReflectAtBoundary []bool    `yaml:"reflect_at_boundary,flow"`
}

// Placement pins one fish to a given state before the run starts.
type Placement struct {
	Fish      int       `yaml:"fish"`
	Position  []float64 `yaml:"position,flow"`
	Direction []float64 `yaml:"direction,flow"`
}

// RunConfig holds run control settings.
type RunConfig struct {
	Steps   int   `yaml:"steps"`
	Seed    int64 `yaml:"seed"`
	Workers int   `yaml:"workers"` // 0 = one per CPU
	Verbose bool  `yaml:"verbose"` // log every fish decision
}

// TelemetryConfig holds telemetry and progress settings.
type TelemetryConfig struct {
	StatsInterval    int `yaml:"stats_interval"`    // steps between order-parameter samples
	PerfWindow       int `yaml:"perf_window"`       // steps in the perf rolling window
	ProgressInterval int `yaml:"progress_interval"` // steps between progress log lines
}

// OutputConfig holds file output settings.
type OutputConfig struct {
	Dir        string `yaml:"dir"`        // empty disables file output
	Trajectory bool   `yaml:"trajectory"` // write trajectory.csv
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Params   swarm.Params
	LogLevel slog.Level
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the embedded defaults, the named preset (if
// any) and the file at path (if any), in that order. Must be called before
// Cfg().
func Init(preset, path string) error {
	cfg, err := LoadWithPreset(preset, path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(preset, path string) {
	if err := Init(preset, path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	return LoadWithPreset("", path)
}

// LoadWithPreset layers the embedded defaults, a named preset and a user
// file. Later layers only overwrite the fields they set.
func LoadWithPreset(preset, path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if preset != "" {
		data, err := presetFS.ReadFile("presets/" + preset + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("unknown preset %q (have %s)", preset, strings.Join(Presets(), ", "))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing preset %s: %w", preset, err)
		}
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Presets lists the embedded preset names in sorted order.
func Presets() []string {
	entries, err := fs.ReadDir(presetFS, "presets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Prepare validates the configuration and recomputes derived values. Call it
// again after changing fields by hand.
func (c *Config) Prepare() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	c.computeDerived()
	return nil
}

// Validate checks the configuration. Model parameters are checked by
// swarm.Params.Validate.
func (c *Config) Validate() error {
	if len(c.Swarm.BoxLengths) != 3 {
		return &swarm.ConfigurationError{Field: "box_lengths", Value: c.Swarm.BoxLengths, Reason: "need 3 entries"}
	}
	if len(c.Swarm.ReflectAtBoundary) != 3 {
		return &swarm.ConfigurationError{Field: "reflect_at_boundary", Value: c.Swarm.ReflectAtBoundary, Reason: "need 3 entries"}
	}
	if err := c.SwarmParams().Validate(); err != nil {
		return err
	}

	for i, pl := range c.Initial {
		if pl.Fish < 0 || pl.Fish >= c.Swarm.NumberOfFish {
			return fmt.Errorf("initial[%d]: fish %d out of range", i, pl.Fish)
		}
		if len(pl.Position) != 3 || len(pl.Direction) != 3 {
			return fmt.Errorf("initial[%d]: position and direction need 3 entries", i)
		}
	}

	if c.Run.Steps < 0 {
		return fmt.Errorf("run.steps must not be negative, got %d", c.Run.Steps)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must not be negative, got %d", c.Run.Workers)
	}
	if c.Telemetry.StatsInterval < 0 || c.Telemetry.PerfWindow < 0 || c.Telemetry.ProgressInterval < 0 {
		return fmt.Errorf("telemetry intervals must not be negative")
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Params = c.SwarmParams()
	c.Derived.LogLevel, _ = parseLevel(c.Logging.Level)
}

// SwarmParams converts the swarm section to engine parameters. Missing
// box entries are left zero and rejected by Validate.
func (c *Config) SwarmParams() swarm.Params {
	s := c.Swarm
	p := swarm.Params{
		NumberOfFish:      s.NumberOfFish,
		RepulsionRadius:   s.RepulsionRadius,
		OrientationWidth:  s.OrientationWidth,
		AttractionWidth:   s.AttractionWidth,
		AngleOfPerception: s.AngleOfPerception,
		TurningRate:       s.TurningRate,
		Speed:             s.Speed,
		NoiseSigma:        s.NoiseSigma,
		Dt:                s.Dt,
	}
	copy(p.BoxLengths[:], s.BoxLengths)
	copy(p.ReflectAtBoundary[:], s.ReflectAtBoundary)
	return p
}

// Vec converts a validated three-element slice to a vector.
func Vec(v []float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
