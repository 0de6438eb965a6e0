package main

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomous-car/internal/config"
	"autonomous-car/internal/inference"
	"autonomous-car/internal/logger"
	"autonomous-car/internal/types"
)

const testKeyEnv = "AUTONOMOUS_CAR_TEST_API_KEY"

type idleModel struct{}

func (idleModel) Generate(ctx context.Context, png []byte, prompt string) (string, error) {
	return `{"steering_angle": 0, "speed_kmh": 10}`, nil
}

func useModel(t *testing.T, m inference.VisionModel) {
	t.Helper()
	orig := newVisionModel
	newVisionModel = func(context.Context, string, string) (inference.VisionModel, error) {
		return m, nil
	}
	t.Cleanup(func() { newVisionModel = orig })
}

func TestRunEveryMode(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	for _, mode := range types.Modes {
		t.Run(string(mode), func(t *testing.T) {
			cfg := config.Default()
			cfg.Mode = mode
			opts := options{seed: 1, maxTicks: 200, apiKeyEnv: testKeyEnv}
			require.NoError(t, run(cfg, opts, logger.Discard()))
		})
	}
}

func TestRunWithVisionModel(t *testing.T) {
	t.Setenv(testKeyEnv, "key")
	useModel(t, idleModel{})

	cfg := config.Default()
	cfg.Mode = types.ModeHybrid
	cfg.InferenceInterval = 10 * time.Millisecond
	opts := options{seed: 1, maxTicks: 100, apiKeyEnv: testKeyEnv}
	require.NoError(t, run(cfg, opts, logger.Discard()))
}

func TestRunStopsWorkerOnSetupError(t *testing.T) {
	t.Setenv(testKeyEnv, "key")
	useModel(t, idleModel{})
	before := runtime.NumGoroutine()

	cfg := config.Default()
	cfg.Mode = types.ModeHybrid
	// too narrow for the lane detector: the strategy fails after the worker started
	opts := options{seed: 1, width: 1, apiKeyEnv: testKeyEnv}
	require.Error(t, run(cfg, opts, logger.Discard()))

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)
}

func TestLoadConfigFlags(t *testing.T) {
	t.Setenv(config.EnvStrategy, "")
	t.Setenv(config.EnvTrial, "")

	cfg, err := loadConfig(options{mode: "cv_lane_follow", runID: 7})
	require.NoError(t, err)
	assert.Equal(t, types.ModeCVLaneFollow, cfg.Mode)
	assert.Equal(t, 7, cfg.RunID)

	_, err = loadConfig(options{mode: "reverse"})
	assert.Error(t, err)
}
