package core

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"autonomous-car/internal/config"
	"autonomous-car/internal/logger"
	"autonomous-car/internal/strategy"
	"autonomous-car/internal/types"
)

// Brake intensities applied to the host.
const (
	BrakeCommanded = 0.8
	BrakeFinished  = 1.0
)

// Options carries the optional collaborators of a Controller. Nil members
// are skipped.
type Options struct {
	Sinks     []RecordSink
	Publisher LapPublisher
	Registry  RunRegistry
	Workers   []Stopper
}

// Controller runs the per-tick loop: sensors, strategy, actuation,
// telemetry and lap timing.
type Controller struct {
	cfg      config.Config
	vehicle  Vehicle
	strategy strategy.Strategy
	lap      *LapTracker
	opts     Options
	logger   *logger.Logger

	target       types.Command // last command sent to the actuators
	lastSpeedKmh float64
	ticks        int
	finalLogged  bool
	session      string

	stopRequested atomic.Bool
	closed        atomic.Bool
}

// NewController wires the loop and applies the strategy's randomised launch
// speed to the vehicle.
func NewController(cfg config.Config, vehicle Vehicle, strat strategy.Strategy, opts Options, l *logger.Logger) *Controller {
	c := &Controller{
		cfg:      cfg,
		vehicle:  vehicle,
		strategy: strat,
		lap:      NewLapTracker(cfg, opts.Publisher, l),
		opts:     opts,
		logger:   l.WithTag("controller"),
	}
	c.setSpeed(strat.Launch().SpeedKmh)
	return c
}

// Start begins the lap state machine and registers the run.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.lap.Start(ctx); err != nil {
		return fmt.Errorf("failed to start lap tracker: %w", err)
	}

	launch := c.strategy.Launch()
	c.logger.Infof("Mode %s run %d: launch speed %.2f km/h, steering %.3f rad",
		c.cfg.Mode, c.cfg.RunID, launch.SpeedKmh, launch.Steering)

	if c.opts.Registry != nil {
		session, err := c.opts.Registry.BeginRun(types.RunInfo{
			StartedAt:       time.Now(),
			RunID:           c.cfg.RunID,
			Mode:            c.cfg.Mode,
			InitialSpeedKmh: c.cfg.InitialSpeedKmh,
			LaunchSpeedKmh:  launch.SpeedKmh,
			LaunchSteering:  launch.Steering,
		})
		if err != nil {
			c.logger.Warnf("Failed to register run: %v", err)
		} else {
			c.session = session
		}
	}
	return nil
}

// RequestStop ends the lap on the next tick. Safe to call from any goroutine.
func (c *Controller) RequestStop() error {
	c.stopRequested.Store(true)
	return nil
}

// Lap exposes the lap tracker.
func (c *Controller) Lap() *LapTracker {
	return c.lap
}

// Ticks returns the number of completed control ticks.
func (c *Controller) Ticks() int {
	return c.ticks
}

// Step runs one control tick. It returns false once the lap has finished
// and the final record has been written.
func (c *Controller) Step() (bool, error) {
	now := c.vehicle.Time()

	if c.stopRequested.Load() && c.lap.State() != types.LapFinished {
		c.logger.Infof("Stop requested")
		if err := c.lap.Abort(now); err != nil {
			return false, err
		}
	}

	if c.lap.State() == types.LapFinished {
		c.vehicle.SetBrakeIntensity(BrakeFinished)
		c.setSpeed(0)
		var err error
		if !c.finalLogged {
			err = c.record(now)
			c.finalLogged = true
		}
		return false, err
	}

	if _, err := c.lap.Update(now, c.vehicle.GPS().Position()); err != nil {
		return false, fmt.Errorf("lap update: %w", err)
	}

	cmd := c.strategy.Command(strategy.Sensors{
		Frame:    c.frame(),
		SpeedKmh: c.vehicle.CurrentSpeed(),
	}).Clamped()

	if cmd.Brake {
		c.vehicle.SetBrakeIntensity(BrakeCommanded)
	} else {
		c.vehicle.SetBrakeIntensity(0)
	}
	c.setSpeed(cmd.SpeedKmh)
	c.setSteering(cmd.Steering)
	c.target.Brake = cmd.Brake
	c.ticks++

	return true, c.record(now)
}

// Run steps the host and the controller until the lap finishes, the host
// terminates or ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !c.vehicle.Step() {
			c.logger.Infof("Host terminated after %d ticks", c.ticks)
			return nil
		}
		more, err := c.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Close stops background workers, records the outcome and stops the lap
// machine. Errors from every step are combined.
func (c *Controller) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	for _, w := range c.opts.Workers {
		w.Stop()
	}
	for _, w := range c.opts.Workers {
		w.Wait()
	}

	if c.opts.Registry != nil && c.session != "" {
		err = multierr.Append(err, c.opts.Registry.FinishRun(c.session, c.Result()))
	}

	c.lap.Stop()
	return err
}

// Result summarises the lap for the run registry.
func (c *Controller) Result() types.RunResult {
	lapTime, ok := c.lap.LapTime()
	return types.RunResult{
		Outcome:    c.lap.Outcome(),
		LapTime:    lapTime,
		HasLapTime: ok,
		Ticks:      c.ticks,
	}
}

func (c *Controller) frame() *types.Frame {
	cam := c.vehicle.Camera()
	if cam == nil {
		return nil
	}
	img := cam.Image()
	if img == nil {
		return nil
	}
	return &types.Frame{Width: cam.Width(), Height: cam.Height(), FOV: cam.FOV(), Pix: img}
}

func (c *Controller) setSpeed(kmh float64) {
	c.target.SpeedKmh = lo.Clamp(kmh, 0, types.MaxSpeedKmh)
	c.vehicle.SetCruisingSpeed(c.target.SpeedKmh)
}

func (c *Controller) setSteering(rad float64) {
	c.target.Steering = lo.Clamp(rad, -types.MaxSteering, types.MaxSteering)
	c.vehicle.SetSteeringAngle(c.target.Steering)
}

// record emits telemetry while a lap is running or just finished and
// always advances the speed history used for acceleration.
func (c *Controller) record(now float64) error {
	speed := c.vehicle.CurrentSpeed()
	defer func() { c.lastSpeedKmh = speed }()

	if !c.lap.Started() {
		return nil
	}
	state := c.lap.State()

	var accel float64
	if last := c.lastSpeedKmh / 3.6; last > 0 {
		accel = (speed/3.6 - last) / c.cfg.TickSeconds()
	}
	measured := c.vehicle.SteeringAngle()
	pos := c.vehicle.GPS().Position()
	lapTime := c.lap.Elapsed(now)

	rec := types.Record{
		Timestamp:      now,
		LapTime:        lapTime,
		PosX:           pos.X,
		PosY:           pos.Y,
		SpeedKmh:       speed,
		TargetSpeedKmh: c.target.SpeedKmh,
		Steering:       measured,
		TargetSteering: c.target.Steering,
		Acceleration:   accel,
		Mode:           string(c.cfg.Mode),
		RunID:          c.cfg.RunID,
		IsGoal:         state == types.LapFinished,
		Active:         true,
		ErrorAngle:     measured - c.target.Steering,
	}

	var err error
	for _, s := range c.opts.Sinks {
		if werr := s.WriteRecord(rec); werr != nil {
			err = multierr.Append(err, werr)
		}
	}
	if err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return nil
}
