package types

import "github.com/samber/lo"

// Actuation limits applied to every command before it reaches the vehicle.
const (
	MaxSteering = 0.6
	MaxSpeedKmh = 100.0
)

// Command is one tick's actuation request.
type Command struct {
	Steering float64 // radians, positive turns right
	SpeedKmh float64
	Brake    bool
}

// Stop is the hard-fault command: no motion, brake asserted.
func Stop() Command {
	return Command{Steering: 0, SpeedKmh: 0, Brake: true}
}

// Clamped returns the command limited to the actuator ranges.
func (c Command) Clamped() Command {
	return Command{
		Steering: lo.Clamp(c.Steering, -MaxSteering, MaxSteering),
		SpeedKmh: lo.Clamp(c.SpeedKmh, 0, MaxSpeedKmh),
		Brake:    c.Brake,
	}
}
