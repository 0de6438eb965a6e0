package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomous-car/internal/config"
	"autonomous-car/internal/core"
	"autonomous-car/internal/inference"
	"autonomous-car/internal/logger"
	"autonomous-car/internal/strategy"
	"autonomous-car/internal/types"
	"autonomous-car/internal/vision"
)

func newHost(t *testing.T, mutate func(*Config)) *Host {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := New(cfg)
	require.NoError(t, err)
	return h
}

func frameOf(h *Host) *types.Frame {
	c := h.Camera()
	return &types.Frame{Width: c.Width(), Height: c.Height(), FOV: c.FOV(), Pix: c.Image()}
}

func TestMotionStep(t *testing.T) {
	t.Parallel()
	m := DefaultMotion()

	dist, v := m.Step(0, 10, 0, 1)
	assert.InDelta(t, 3, v, 1e-9)
	assert.InDelta(t, 1.5, dist, 1e-9)

	// reaches the target mid-step, then cruises
	dist, v = m.Step(9, 10, 0, 1)
	assert.InDelta(t, 10, v, 1e-9)
	assert.InDelta(t, 9*(1.0/3)+0.5*3*(1.0/9)+10*(2.0/3), dist, 1e-9)

	_, v = m.Step(10, 5, 0, 0.5)
	assert.InDelta(t, 8, v, 1e-9)

	_, v = m.Step(10, 10, 1, 0.5)
	assert.InDelta(t, 5.5, v, 1e-9)

	dist, v = m.Step(1, 10, 1, 1)
	assert.Zero(t, v)
	assert.InDelta(t, 1.0/18, dist, 1e-9)

	_, v = m.Step(20, 200, 0, 100)
	assert.InDelta(t, m.VMax, v, 1e-9)
}

func TestTrackWrap(t *testing.T) {
	t.Parallel()
	tr := DefaultTrack()
	assert.Equal(t, r2.Point{X: 45, Y: -40}, tr.Wrap(r2.Point{X: 45, Y: 360}))
	assert.Equal(t, r2.Point{X: 45, Y: -35}, tr.Wrap(r2.Point{X: 45, Y: 365}))
	assert.Equal(t, r2.Point{X: 45, Y: 350}, tr.Wrap(r2.Point{X: 45, Y: -50}))
	assert.Equal(t, r2.Point{X: 45, Y: 0}, tr.Wrap(r2.Point{X: 45, Y: 0}))
}

func TestTrackSurface(t *testing.T) {
	t.Parallel()
	tr := DefaultTrack()
	assert.Equal(t, surfaceGuide, tr.surfaceAt(r2.Point{X: 45.05}))
	assert.Equal(t, surfaceAsphalt, tr.surfaceAt(r2.Point{X: 46}))
	assert.Equal(t, surfaceBorder, tr.surfaceAt(r2.Point{X: 45 - 1.75}))
	assert.Equal(t, surfaceBorder, tr.surfaceAt(r2.Point{X: 45 + 1.8}))
	assert.Equal(t, surfaceAsphalt, tr.surfaceAt(r2.Point{X: 47.5}))
	assert.Equal(t, surfaceGrass, tr.surfaceAt(r2.Point{X: 49}))

	tr.GuideLine = false
	assert.Equal(t, surfaceAsphalt, tr.surfaceAt(r2.Point{X: 45}))
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Tick = 0
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Width = 0
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestHostDrivesStraight(t *testing.T) {
	t.Parallel()
	h := newHost(t, func(c *Config) { c.MaxTicks = 40 })
	h.SetCruisingSpeed(36)

	for h.Step() {
	}
	assert.Equal(t, 40, h.Ticks())
	assert.InDelta(t, 2.0, h.Time(), 1e-9)
	assert.InDelta(t, 21.6, h.CurrentSpeed(), 1e-6) // 3 m/s² for 2 s
	pos := h.GPS().Position()
	assert.InDelta(t, 45, pos.X, 1e-9)
	assert.InDelta(t, -34, pos.Y, 1e-6)
	assert.False(t, h.Step())
}

func TestHostSteersRight(t *testing.T) {
	t.Parallel()
	h := newHost(t, nil)
	h.SetCruisingSpeed(30)
	h.SetSteeringAngle(2) // clamped
	h.Step()
	assert.InDelta(t, 0.1, h.SteeringAngle(), 1e-9) // rate limited

	for i := 0; i < 40; i++ {
		h.Step()
	}
	assert.InDelta(t, types.MaxSteering, h.SteeringAngle(), 1e-9)
	assert.Greater(t, h.Heading(), 0.0)
	assert.Greater(t, h.GPS().Position().X, 45.0)
}

func TestHostBrakes(t *testing.T) {
	t.Parallel()
	h := newHost(t, nil)
	h.SetCruisingSpeed(30)
	for i := 0; i < 100; i++ {
		h.Step()
	}
	require.InDelta(t, 30, h.CurrentSpeed(), 1e-6)

	h.SetBrakeIntensity(1)
	for i := 0; i < 40; i++ {
		h.Step()
	}
	assert.Zero(t, h.CurrentSpeed())
}

func TestCameraFrame(t *testing.T) {
	t.Parallel()
	h := newHost(t, nil)
	f := frameOf(h)
	require.True(t, f.Valid())

	// cached within a tick, fresh after a step
	assert.Same(t, &f.Pix[0], &h.Camera().Image()[0])
	h.Step()
	assert.NotSame(t, &f.Pix[0], &h.Camera().Image()[0])

	c0, c1, c2 := f.At(0, 0)
	assert.Equal(t, [3]uint8{skyColor[0], skyColor[1], skyColor[2]}, [3]uint8{c0, c1, c2})
}

func TestCameraGuideLineBearing(t *testing.T) {
	t.Parallel()
	centred := newHost(t, nil)
	angle, ok := vision.GuideLineAngle(frameOf(centred))
	require.True(t, ok)
	assert.Less(t, math.Abs(angle), 0.01)

	left := newHost(t, func(c *Config) { c.Start.X = 44.5 })
	angle, ok = vision.GuideLineAngle(frameOf(left))
	require.True(t, ok)
	assert.Greater(t, angle, 0.03)

	right := newHost(t, func(c *Config) { c.Start.X = 45.5 })
	angle, ok = vision.GuideLineAngle(frameOf(right))
	require.True(t, ok)
	assert.Less(t, angle, -0.03)

	off := newHost(t, func(c *Config) { c.Track.GuideLine = false })
	_, ok = vision.GuideLineAngle(frameOf(off))
	assert.False(t, ok)
}

func TestCameraLaneDetection(t *testing.T) {
	t.Parallel()
	noGuide := func(x float64) func(*Config) {
		return func(c *Config) {
			c.Track.GuideLine = false
			c.Start.X = x
		}
	}

	h := newHost(t, noGuide(45))
	d, err := vision.NewLaneDetector(h.Camera().Width(), h.Camera().Height())
	require.NoError(t, err)
	det, err := d.Detect(frameOf(h))
	require.NoError(t, err)
	require.True(t, det.Detected)
	assert.Less(t, math.Abs(det.Offset), 20.0)

	h = newHost(t, noGuide(44.5))
	det, err = d.Detect(frameOf(h))
	require.NoError(t, err)
	require.True(t, det.Detected)
	assert.Greater(t, det.Offset, 25.0)
	assert.Greater(t, det.Steering, 0.0)
}

func TestLineFollowLap(t *testing.T) {
	t.Parallel()
	h := newHost(t, nil)
	cfg := config.Default()
	strat := strategy.NewLineFollow(cfg.InitialSpeedKmh, rand.New(rand.NewPCG(1, 2)))

	c := core.NewController(cfg, h, strat, core.Options{}, logger.Discard())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Close())

	lapTime, ok := c.Lap().LapTime()
	require.True(t, ok, "outcome %s", c.Lap().Outcome())
	assert.Equal(t, types.OutcomeSuccess, c.Lap().Outcome())
	assert.InDelta(t, 47, lapTime, 4)
	assert.InDelta(t, 45, h.GPS().Position().X, 0.5)
}

func TestEveryModeStaysOnRoad(t *testing.T) {
	t.Parallel()
	for _, mode := range types.Modes {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()
			h := newHost(t, func(c *Config) {
				c.Track.GuideLine = mode == types.ModeLineFollow
				c.MaxTicks = 300
			})
			cfg := config.Default()
			cfg.Mode = mode

			var mb *inference.Mailbox
			if mode == types.ModeHybrid {
				mb = inference.NewMailbox()
			}
			cam := h.Camera()
			strat, err := strategy.New(cfg, cam.Width(), cam.Height(), mb, rand.New(rand.NewPCG(1, 2)))
			require.NoError(t, err)

			ctx := context.Background()
			c := core.NewController(cfg, h, strat, core.Options{}, logger.Discard())
			require.NoError(t, c.Start(ctx))
			require.NoError(t, c.Run(ctx))
			require.NoError(t, c.Close())

			assert.Equal(t, 300, h.Ticks())
			pos := h.GPS().Position()
			track := DefaultTrack()
			assert.InDelta(t, track.CenterX, pos.X, track.RoadWidth/2, "left the road")
			assert.Greater(t, pos.Y, track.YMin+50)
			assert.Equal(t, types.LapActive, c.Lap().State())
		})
	}
}
