package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anggasct/pelican"
	"github.com/anggasct/pelican/pkg/observers"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pelican",
	Short: "Pedestrian crossing phase controller.",
	Long: `pelican sequences the traffic and pedestrian lights of a pelican ` +
		`crossing. It can drive real outputs over MQTT, simulate a scripted ` +
		`run on a virtual clock, and render the phase graph.`,
	SilenceUsage: true,
}

type durationFlag struct {
	name  string
	usage string
	set   func(cfg *pelican.Config, d time.Duration)
}

var durationFlags = []durationFlag{
	{"red-ms", "red phase duration", func(c *pelican.Config, d time.Duration) { c.RedDuration = d }},
	{"red-amber-ms", "red+amber phase duration", func(c *pelican.Config, d time.Duration) { c.RedAmberDuration = d }},
	{"green-ms", "green phase duration", func(c *pelican.Config, d time.Duration) { c.GreenDuration = d }},
	{"green-min-ms", "minimum green before a pedestrian interrupt", func(c *pelican.Config, d time.Duration) { c.GreenMinimumDuration = d }},
	{"amber-ms", "amber phase duration", func(c *pelican.Config, d time.Duration) { c.AmberDuration = d }},
	{"crossing-ms", "pedestrian crossing duration", func(c *pelican.Config, d time.Duration) { c.PedestrianCrossingDuration = d }},
	{"debounce-ms", "button debounce window", func(c *pelican.Config, d time.Duration) { c.DebounceWindow = d }},
	{"tick-ms", "controller tick period", func(c *pelican.Config, d time.Duration) { c.TickPeriod = d }},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("env-file", nil, "dotenv files to read PELICAN_* settings from")
	flags.String("log-level", "info", "event log level (error, warn, info, debug)")
	flags.String("log-format", "text", "event log format (text, json, compact)")
	for _, f := range durationFlags {
		flags.Int64(f.name, 0, f.usage+" in milliseconds (overrides the environment)")
	}
}

// loadConfig resolves defaults, env files, the environment and flags, in that order
func loadConfig(cmd *cobra.Command) (pelican.Config, error) {
	files, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := pelican.LoadConfig(files...)
	if err != nil && cfg == (pelican.Config{}) {
		// unreadable file or malformed value; a range problem may still be fixed by a flag
		return cfg, err
	}

	for _, f := range durationFlags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		ms, _ := cmd.Flags().GetInt64(f.name)
		f.set(&cfg, time.Duration(ms)*time.Millisecond)
	}
	return cfg, cfg.Validate()
}

func parseLogLevel(raw string) (observers.LogLevel, error) {
	switch strings.ToLower(raw) {
	case "error":
		return observers.LogError, nil
	case "warn", "warning":
		return observers.LogWarning, nil
	case "info":
		return observers.LogInfo, nil
	case "debug":
		return observers.LogDebug, nil
	default:
		return observers.LogInfo, fmt.Errorf("unknown log level '%s'", raw)
	}
}

func newLoggingObserver(cmd *cobra.Command, w io.Writer) (*observers.LoggingObserver, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := parseLogLevel(raw)
	if err != nil {
		return nil, err
	}
	logging := observers.NewLoggingObserver(level, "pelican", w)

	format, _ := cmd.Flags().GetString("log-format")
	switch strings.ToLower(format) {
	case "text":
	case "json":
		logging.SetLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
	case "compact":
		logging.SetFormatter(observers.CompactLogFormatter)
	default:
		return nil, fmt.Errorf("unknown log format '%s'", format)
	}
	return logging, nil
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}
