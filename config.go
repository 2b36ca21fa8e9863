package pelican

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the controller durations
type Config struct {
	RedDuration                time.Duration `json:"red_duration"`
	RedAmberDuration           time.Duration `json:"red_amber_duration"`
	GreenDuration              time.Duration `json:"green_duration"`
	GreenMinimumDuration       time.Duration `json:"green_minimum_duration"`
	AmberDuration              time.Duration `json:"amber_duration"`
	PedestrianCrossingDuration time.Duration `json:"pedestrian_crossing_duration"`
	DebounceWindow             time.Duration `json:"debounce_window"`
	TickPeriod                 time.Duration `json:"tick_period"`
}

// DefaultConfig returns the UK pelican crossing timings
func DefaultConfig() Config {
	return Config{
		RedDuration:                5000 * time.Millisecond,
		RedAmberDuration:           2000 * time.Millisecond,
		GreenDuration:              6000 * time.Millisecond,
		GreenMinimumDuration:       3000 * time.Millisecond,
		AmberDuration:              3000 * time.Millisecond,
		PedestrianCrossingDuration: 8000 * time.Millisecond,
		DebounceWindow:             DefaultDebounceWindow,
		TickPeriod:                 10 * time.Millisecond,
	}
}

// Timings extracts the durations Step needs
func (c Config) Timings() Timings {
	return Timings{
		Red:          c.RedDuration,
		RedAmber:     c.RedAmberDuration,
		Green:        c.GreenDuration,
		GreenMinimum: c.GreenMinimumDuration,
		Amber:        c.AmberDuration,
		Crossing:     c.PedestrianCrossingDuration,
	}
}

// Duration returns the configured length of a phase
func (c Config) Duration(phase Phase) time.Duration {
	switch phase {
	case Red:
		return c.RedDuration
	case RedAmber:
		return c.RedAmberDuration
	case Green:
		return c.GreenDuration
	case Amber:
		return c.AmberDuration
	case PedestrianCrossing:
		return c.PedestrianCrossingDuration
	default:
		return 0
	}
}

// Validate reports every invalid option at once
func (c Config) Validate() error {
	issues := newIssueCollector("Config")

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"red_duration", c.RedDuration},
		{"red_amber_duration", c.RedAmberDuration},
		{"green_duration", c.GreenDuration},
		{"green_minimum_duration", c.GreenMinimumDuration},
		{"amber_duration", c.AmberDuration},
		{"pedestrian_crossing_duration", c.PedestrianCrossingDuration},
		{"debounce_window", c.DebounceWindow},
		{"tick_period", c.TickPeriod},
	}
	for _, option := range positive {
		if option.value <= 0 {
			issues.addf("%s must be strictly positive, got %s", option.name, option.value)
		}
	}

	if c.GreenMinimumDuration > c.GreenDuration {
		issues.addf("green_minimum_duration (%s) must not exceed green_duration (%s)",
			c.GreenMinimumDuration, c.GreenDuration)
	}

	return issues.err()
}

// Environment keys understood by LoadConfig, all in milliseconds
const (
	EnvRedDuration      = "PELICAN_RED_MS"
	EnvRedAmberDuration = "PELICAN_RED_AMBER_MS"
	EnvGreenDuration    = "PELICAN_GREEN_MS"
	EnvGreenMinimum     = "PELICAN_GREEN_MIN_MS"
	EnvAmberDuration    = "PELICAN_AMBER_MS"
	EnvCrossingDuration = "PELICAN_CROSSING_MS"
	EnvDebounceWindow   = "PELICAN_DEBOUNCE_MS"
	EnvTickPeriod       = "PELICAN_TICK_MS"
)

// LoadConfig starts from DefaultConfig, applies the given dotenv files in order
// and finally the process environment. Missing files are an error; pass no
// files to read the environment only.
func LoadConfig(files ...string) (Config, error) {
	values := make(map[string]string)
	for _, file := range files {
		fileValues, err := godotenv.Read(file)
		if err != nil {
			return Config{}, fmt.Errorf("cannot read env file %s: %w", file, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, key := range envKeys() {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnv(values); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func envKeys() []string {
	return []string{
		EnvRedDuration, EnvRedAmberDuration, EnvGreenDuration, EnvGreenMinimum,
		EnvAmberDuration, EnvCrossingDuration, EnvDebounceWindow, EnvTickPeriod,
	}
}

func (c *Config) applyEnv(values map[string]string) error {
	targets := map[string]*time.Duration{
		EnvRedDuration:      &c.RedDuration,
		EnvRedAmberDuration: &c.RedAmberDuration,
		EnvGreenDuration:    &c.GreenDuration,
		EnvGreenMinimum:     &c.GreenMinimumDuration,
		EnvAmberDuration:    &c.AmberDuration,
		EnvCrossingDuration: &c.PedestrianCrossingDuration,
		EnvDebounceWindow:   &c.DebounceWindow,
		EnvTickPeriod:       &c.TickPeriod,
	}

	issues := newIssueCollector("environment")
	for _, key := range envKeys() {
		raw, ok := values[key]
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			issues.addf("%s: '%s' is not a whole number of milliseconds", key, raw)
			continue
		}
		*targets[key] = time.Duration(ms) * time.Millisecond
	}
	return issues.err()
}
