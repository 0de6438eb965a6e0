package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r2"

	"autonomous-car/internal/types"
)

// Environment variables supplying run defaults when flags are absent.
const (
	EnvStrategy = "STRATEGY_NAME"
	EnvTrial    = "TRIAL_NUMBER"
)

// Geofence is a horizontal line segment at YThreshold spanning the open
// interval (XMin, XMax).
type Geofence struct {
	XMin       float64 `json:"x_min"`
	XMax       float64 `json:"x_max"`
	YThreshold float64 `json:"y_threshold"`
}

// Contains reports whether x lies strictly inside the fence span.
func (g Geofence) Contains(x float64) bool {
	return x > g.XMin && x < g.XMax
}

// Crossed reports a rising edge across the fence between two positions:
// prev.Y <= threshold < cur.Y with cur.X inside the span.
func (g Geofence) Crossed(prev, cur r2.Point) bool {
	return prev.Y <= g.YThreshold && cur.Y > g.YThreshold && g.Contains(cur.X)
}

// Config is the immutable run configuration handed to the controller and
// strategies.
type Config struct {
	Mode            types.DrivingMode
	RunID           int
	InitialSpeedKmh float64
	Start           Geofence
	Goal            Geofence
	MinLap          time.Duration
	Timeout         time.Duration
	Tick            time.Duration

	InferenceInterval time.Duration
	InferenceTimeout  time.Duration
	Model             string
}

// Default returns the configuration used by the test circuit.
func Default() Config {
	return Config{
		Mode:              types.ModeLineFollow,
		RunID:             1,
		InitialSpeedKmh:   30,
		Start:             Geofence{XMin: 36, XMax: 54, YThreshold: -26},
		Goal:              Geofence{XMin: 36, XMax: 54, YThreshold: -34},
		MinLap:            30 * time.Second,
		Timeout:           120 * time.Second,
		Tick:              50 * time.Millisecond,
		InferenceInterval: 2 * time.Second,
		InferenceTimeout:  20 * time.Second,
		Model:             "gemini-2.5-flash",
	}
}

// fileConfig is the on-disk schema. Omitted fields keep their defaults.
type fileConfig struct {
	Mode              *string   `json:"mode,omitempty"`
	RunID             *int      `json:"run_id,omitempty"`
	InitialSpeedKmh   *float64  `json:"initial_speed_kmh,omitempty"`
	Start             *Geofence `json:"start,omitempty"`
	Goal              *Geofence `json:"goal,omitempty"`
	MinLap            *string   `json:"min_lap,omitempty"` // duration string like "30s"
	Timeout           *string   `json:"timeout,omitempty"`
	Tick              *string   `json:"tick,omitempty"`
	InferenceInterval *string   `json:"inference_interval,omitempty"`
	InferenceTimeout  *string   `json:"inference_timeout,omitempty"`
	Model             *string   `json:"model,omitempty"`
}

// Load reads a JSON config file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := fc.apply(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	if fc.Mode != nil {
		mode, err := ParseMode(*fc.Mode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if fc.RunID != nil {
		cfg.RunID = *fc.RunID
	}
	if fc.InitialSpeedKmh != nil {
		cfg.InitialSpeedKmh = *fc.InitialSpeedKmh
	}
	if fc.Start != nil {
		cfg.Start = *fc.Start
	}
	if fc.Goal != nil {
		cfg.Goal = *fc.Goal
	}
	if fc.Model != nil {
		cfg.Model = *fc.Model
	}

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"min_lap", fc.MinLap, &cfg.MinLap},
		{"timeout", fc.Timeout, &cfg.Timeout},
		{"tick", fc.Tick, &cfg.Tick},
		{"inference_interval", fc.InferenceInterval, &cfg.InferenceInterval},
		{"inference_timeout", fc.InferenceTimeout, &cfg.InferenceTimeout},
	}
	for _, d := range durations {
		if d.src == nil || *d.src == "" {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.src, err)
		}
		*d.dst = v
	}
	return nil
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.InitialSpeedKmh <= 0 || c.InitialSpeedKmh > types.MaxSpeedKmh {
		return fmt.Errorf("initial_speed_kmh must be in (0, %.0f], got %f", types.MaxSpeedKmh, c.InitialSpeedKmh)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MinLap < 0 || c.MinLap >= c.Timeout {
		return fmt.Errorf("min_lap must be in [0, timeout), got %s", c.MinLap)
	}
	if c.InferenceInterval <= 0 {
		return fmt.Errorf("inference_interval must be positive, got %s", c.InferenceInterval)
	}
	for name, g := range map[string]Geofence{"start": c.Start, "goal": c.Goal} {
		if g.XMin >= g.XMax {
			return fmt.Errorf("%s geofence has empty span (%f, %f)", name, g.XMin, g.XMax)
		}
	}
	return nil
}

// TickSeconds returns the tick duration in seconds.
func (c Config) TickSeconds() float64 {
	return c.Tick.Seconds()
}

// ParseMode maps a mode name to a DrivingMode. Matching is case-insensitive.
func ParseMode(s string) (types.DrivingMode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, m := range types.Modes {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown driving mode %q", s)
}

// FromEnv applies STRATEGY_NAME and TRIAL_NUMBER when set.
func (c *Config) FromEnv(getenv func(string) string) error {
	if v := getenv(EnvStrategy); v != "" {
		mode, err := ParseMode(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStrategy, err)
		}
		c.Mode = mode
	}
	if v := getenv(EnvTrial); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTrial, err)
		}
		c.RunID = n
	}
	return nil
}
