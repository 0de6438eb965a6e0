package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomous-car/internal/types"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()

	assert.Equal(t, types.ModeLineFollow, cfg.Mode)
	assert.Equal(t, 30.0, cfg.InitialSpeedKmh)
	assert.Equal(t, Geofence{XMin: 36, XMax: 54, YThreshold: -26}, cfg.Start)
	assert.Equal(t, Geofence{XMin: 36, XMax: 54, YThreshold: -34}, cfg.Goal)
	assert.Equal(t, 30*time.Second, cfg.MinLap)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick)
	assert.Equal(t, 2*time.Second, cfg.InferenceInterval)
	assert.InDelta(t, 0.05, cfg.TickSeconds(), 1e-12)
	require.NoError(t, cfg.Validate())
}

func TestGeofenceCrossed(t *testing.T) {
	t.Parallel()
	fence := Geofence{XMin: 36, XMax: 54, YThreshold: -26}

	tests := []struct {
		name      string
		prev, cur r2.Point
		want      bool
	}{
		{"rising edge inside span", r2.Point{X: 45, Y: -27}, r2.Point{X: 45, Y: -25}, true},
		{"rising edge outside span", r2.Point{X: 60, Y: -27}, r2.Point{X: 60, Y: -25}, false},
		{"prev exactly on threshold", r2.Point{X: 45, Y: -26}, r2.Point{X: 45, Y: -25.9}, true},
		{"cur exactly on threshold", r2.Point{X: 45, Y: -27}, r2.Point{X: 45, Y: -26}, false},
		{"falling edge", r2.Point{X: 45, Y: -25}, r2.Point{X: 45, Y: -27}, false},
		{"already past", r2.Point{X: 45, Y: -20}, r2.Point{X: 45, Y: -19}, false},
		{"on span boundary", r2.Point{X: 36, Y: -27}, r2.Point{X: 36, Y: -25}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fence.Crossed(tt.prev, tt.cur))
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "run.json")
	body := `{
  "mode": "cv_lane_follow",
  "run_id": 7,
  "initial_speed_kmh": 25,
  "timeout": "90s",
  "tick": "32ms",
  "goal": {"x_min": 10, "x_max": 20, "y_threshold": 5}
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.ModeCVLaneFollow, cfg.Mode)
	assert.Equal(t, 7, cfg.RunID)
	assert.Equal(t, 25.0, cfg.InitialSpeedKmh)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 32*time.Millisecond, cfg.Tick)
	assert.Equal(t, Geofence{XMin: 10, XMax: 20, YThreshold: 5}, cfg.Goal)
	// untouched fields keep defaults
	assert.Equal(t, Default().Start, cfg.Start)
	assert.Equal(t, 30*time.Second, cfg.MinLap)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"wrong extension", write("run.yaml", "{}")},
		{"missing file", filepath.Join(dir, "absent.json")},
		{"bad json", write("bad.json", "{")},
		{"bad duration", write("dur.json", `{"tick": "fast"}`)},
		{"bad mode", write("mode.json", `{"mode": "TELEPORT"}`)},
		{"min lap beyond timeout", write("lap.json", `{"min_lap": "200s"}`)},
		{"zero speed", write("speed.json", `{"initial_speed_kmh": 0}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	for _, m := range types.Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode(" gemini ")
	require.NoError(t, err)
	assert.Equal(t, types.ModeHybrid, got)

	_, err = ParseMode("")
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{EnvStrategy: "GEMINI", EnvTrial: "12"}
	cfg := Default()
	require.NoError(t, cfg.FromEnv(func(k string) string { return env[k] }))
	assert.Equal(t, types.ModeHybrid, cfg.Mode)
	assert.Equal(t, 12, cfg.RunID)

	env[EnvTrial] = "twelve"
	assert.Error(t, cfg.FromEnv(func(k string) string { return env[k] }))

	unset := Default()
	require.NoError(t, unset.FromEnv(func(string) string { return "" }))
	assert.Equal(t, Default(), unset)
}
