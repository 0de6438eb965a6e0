// Package strategy turns sensor readings into one actuation command per tick.
package strategy

import (
	"fmt"
	"math/rand/v2"

	"autonomous-car/internal/config"
	"autonomous-car/internal/inference"
	"autonomous-car/internal/types"
)

// Sensors is what a strategy sees on one tick.
type Sensors struct {
	Frame    *types.Frame
	SpeedKmh float64
}

// Strategy produces a command per control tick. Implementations keep state
// between calls and are driven from a single goroutine.
type Strategy interface {
	Mode() types.DrivingMode
	// Launch returns the randomised command issued on the first tick.
	Launch() Launch
	Command(s Sensors) types.Command
}

// Launch is the randomised starting command.
type Launch struct {
	SpeedKmh float64
	Steering float64
}

// Launch perturbation ranges.
const (
	LaunchSpeedJitter    = 2.0
	LaunchSteeringJitter = 0.03
)

// starter emits the launch command exactly once.
type starter struct {
	launch Launch
	done   bool
}

func newStarter(initialSpeed float64, rng *rand.Rand) starter {
	return starter{launch: Launch{
		SpeedKmh: initialSpeed + uniform(rng, LaunchSpeedJitter),
		Steering: uniform(rng, LaunchSteeringJitter),
	}}
}

func uniform(rng *rand.Rand, v float64) float64 {
	return -v + 2*v*rng.Float64()
}

func (s *starter) Launch() Launch {
	return s.launch
}

func (s *starter) first() (types.Command, bool) {
	if s.done {
		return types.Command{}, false
	}
	s.done = true
	return types.Command{Steering: s.launch.Steering, SpeedKmh: s.launch.SpeedKmh}, true
}

// New builds the strategy selected by cfg.Mode for frames of the given size.
// The hybrid mode requires a mailbox shared with an inference worker.
func New(cfg config.Config, width, height int, mailbox *inference.Mailbox, rng *rand.Rand) (Strategy, error) {
	switch cfg.Mode {
	case types.ModeLineFollow:
		return NewLineFollow(cfg.InitialSpeedKmh, rng), nil
	case types.ModeCVLaneFollow:
		return NewCVLane(cfg.InitialSpeedKmh, width, height, rng)
	case types.ModeHybrid:
		if mailbox == nil {
			return nil, fmt.Errorf("%s mode needs an inference mailbox", cfg.Mode)
		}
		return NewHybrid(cfg.InitialSpeedKmh, width, height, mailbox, rng)
	}
	return nil, fmt.Errorf("unknown driving mode %q", cfg.Mode)
}
