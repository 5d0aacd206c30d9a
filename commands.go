package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/benmaier/couzinswarm/config"
	"github.com/benmaier/couzinswarm/runner"
)

var noProgress bool

// rootCmd runs a simulation when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "couzinswarm",
	Short: "Couzin zonal-model fish school simulator",
	Long: `couzinswarm simulates fish schools with nested zones of repulsion,
orientation and attraction, a limited field of perception and a bounded
turning rate. Configuration is layered: embedded defaults, an optional
preset, an optional YAML file, then COUZIN_* environment variables and flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSimulation,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	RunE:  runSimulation,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List embedded presets",
	RunE:  listPresets,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE:  printConfig,
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"config":         "config",
	"preset":         "preset",
	"run.steps":      "steps",
	"run.seed":       "seed",
	"run.workers":    "workers",
	"run.verbose":    "verbose",
	"output.dir":     "output-dir",
	"logging.level":  "log-level",
	"logging.format": "log-format",
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (YAML) layered over defaults and preset")
	pf.String("preset", "", "embedded preset (see 'couzinswarm presets')")
	pf.Int("steps", 0, "number of simulation steps")
	pf.Int64("seed", 0, "random seed")
	pf.Int("workers", 0, "worker goroutines (0 = one per CPU)")
	pf.Bool("verbose", false, "log every fish decision at debug level")
	pf.String("output-dir", "", "directory for run outputs (empty = no files)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "json", "log format (json, text)")
	pf.BoolVar(&noProgress, "no-progress", false, "disable progress reporting")

	for key, name := range flagKeys {
		_ = viper.BindPFlag(key, pf.Lookup(name))
	}

	rootCmd.AddCommand(runCmd, presetsCmd, configCmd)
}

// initConfig enables COUZIN_* environment overrides, e.g. COUZIN_RUN_STEPS.
func initConfig() {
	viper.SetEnvPrefix("couzin")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// loadConfig builds the effective configuration. Flags and environment
// variables only override the file when they are set.
func loadConfig() (*config.Config, error) {
	if err := config.Init(viper.GetString("preset"), viper.GetString("config")); err != nil {
		return nil, err
	}
	cfg := config.Cfg()

	if viper.IsSet("run.steps") {
		cfg.Run.Steps = viper.GetInt("run.steps")
	}
	if viper.IsSet("run.seed") {
		cfg.Run.Seed = viper.GetInt64("run.seed")
	}
	if viper.IsSet("run.workers") {
		cfg.Run.Workers = viper.GetInt("run.workers")
	}
	if viper.IsSet("run.verbose") {
		cfg.Run.Verbose = viper.GetBool("run.verbose")
	}
	if viper.IsSet("output.dir") {
		cfg.Output.Dir = viper.GetString("output.dir")
	}
	if viper.IsSet("logging.level") {
		cfg.Logging.Level = viper.GetString("logging.level")
	}
	if viper.IsSet("logging.format") {
		cfg.Logging.Format = viper.GetString("logging.format")
	}

	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.Derived.LogLevel
	if cfg.Run.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	var progress io.Writer
	if !noProgress {
		progress = os.Stderr
	}

	res, err := runner.Run(cfg, runner.Options{Logger: logger, Progress: progress})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	final := res.Final()
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(os.Stderr, "done")
	fmt.Fprintf(os.Stderr, " %d steps in %s: polarization %.3f, milling %.3f\n",
		cfg.Run.Steps, res.Elapsed.Round(time.Millisecond), final.Polarization, final.Milling)
	if res.OutputDir != "" {
		fmt.Fprintf(os.Stderr, "output written to %s\n", color.CyanString(res.OutputDir))
	}
	return nil
}

func listPresets(cmd *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tFISH\tSTEPS\tBOUNDARY")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t--------")

	for _, name := range config.Presets() {
		cfg, err := config.LoadWithPreset(name, "")
		if err != nil {
			return fmt.Errorf("failed to load preset %s: %w", name, err)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
			name,
			cfg.Swarm.NumberOfFish,
			cfg.Run.Steps,
			boundaryLabel(cfg.Swarm.ReflectAtBoundary),
		)
	}
	return w.Flush()
}

func printConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// boundaryLabel summarises the per-axis boundary rules.
func boundaryLabel(reflect []bool) string {
	n := 0
	for _, r := range reflect {
		if r {
			n++
		}
	}
	switch n {
	case len(reflect):
		return "reflecting"
	case 0:
		return "periodic"
	default:
		return "mixed"
	}
}
