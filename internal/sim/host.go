// Package sim is a kinematic stand-in for the vehicle simulator: a bicycle
// model on a wrap-around straight with a rendered forward camera and GPS.
package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"

	"autonomous-car/internal/core"
	"autonomous-car/internal/types"
)

type Config struct {
	Width     int
	Height    int
	FOV       float64 // radians
	ViewNear  float64 // metres from the camera to the bottom image row
	ViewDepth float64 // metres covered by the rectified view
	Tick      time.Duration
	MaxTicks  int // 0 runs until stopped

	Track     Track
	Motion    Motion
	Wheelbase float64 // metres
	SteerRate float64 // rad/s

	Start   r2.Point
	Heading float64 // radians from +y, positive towards +x
}

func DefaultConfig() Config {
	return Config{
		Width:     512,
		Height:    256,
		FOV:       1.0,
		ViewNear:  2,
		ViewDepth: 15,
		Tick:      50 * time.Millisecond,
		Track:     DefaultTrack(),
		Motion:    DefaultMotion(),
		Wheelbase: 2.9,
		SteerRate: 2,
		Start:     r2.Point{X: 45, Y: -40},
	}
}

// Host implements core.Vehicle. It is driven from a single goroutine.
type Host struct {
	cfg    Config
	camera *Camera
	gps    gps

	time     float64
	ticks    int
	pos      r2.Point
	heading  float64
	speed    float64 // m/s
	steering float64

	cruiseKmh      float64
	targetSteering float64
	brake          float64
}

var _ core.Vehicle = (*Host)(nil)

func New(cfg Config) (*Host, error) {
	if cfg.Tick <= 0 {
		return nil, fmt.Errorf("tick must be positive")
	}
	if cfg.Wheelbase <= 0 {
		return nil, fmt.Errorf("wheelbase must be positive")
	}
	if cfg.Track.LaneWidth <= 0 || cfg.ViewDepth <= 0 {
		return nil, fmt.Errorf("invalid track geometry")
	}
	h := &Host{
		cfg:     cfg,
		pos:     cfg.Track.Wrap(cfg.Start),
		heading: cfg.Heading,
	}
	cam, err := newCamera(h, cfg)
	if err != nil {
		return nil, err
	}
	h.camera = cam
	h.gps.host = h
	return h, nil
}

// Step advances the simulation by one tick.
func (h *Host) Step() bool {
	if h.cfg.MaxTicks > 0 && h.ticks >= h.cfg.MaxTicks {
		return false
	}
	dt := h.cfg.Tick.Seconds()

	maxDelta := h.cfg.SteerRate * dt
	h.steering += lo.Clamp(h.targetSteering-h.steering, -maxDelta, maxDelta)

	dist, v := h.cfg.Motion.Step(h.speed, h.cruiseKmh/3.6, h.brake, dt)
	h.speed = v

	// integrate along the mid-step heading
	turn := dist / h.cfg.Wheelbase * math.Tan(h.steering)
	mid := h.heading + turn/2
	h.pos = h.cfg.Track.Wrap(h.pos.Add(r2.Point{X: math.Sin(mid), Y: math.Cos(mid)}.Mul(dist)))
	h.heading = math.Remainder(h.heading+turn, 2*math.Pi)

	h.time += dt
	h.ticks++
	return true
}

func (h *Host) Time() float64          { return h.time }
func (h *Host) CurrentSpeed() float64  { return h.speed * 3.6 }
func (h *Host) SteeringAngle() float64 { return h.steering }

func (h *Host) SetCruisingSpeed(kmh float64) {
	h.cruiseKmh = lo.Clamp(kmh, 0, types.MaxSpeedKmh)
}

func (h *Host) SetSteeringAngle(rad float64) {
	h.targetSteering = lo.Clamp(rad, -types.MaxSteering, types.MaxSteering)
}

func (h *Host) SetBrakeIntensity(v float64) {
	h.brake = lo.Clamp(v, 0, 1)
}

func (h *Host) Camera() core.Camera { return h.camera }
func (h *Host) GPS() core.GPS       { return &h.gps }

// Heading returns the yaw in radians from +y.
func (h *Host) Heading() float64 { return h.heading }

// Ticks returns the number of completed steps.
func (h *Host) Ticks() int { return h.ticks }

type gps struct{ host *Host }

func (g *gps) Position() r2.Point { return g.host.pos }
