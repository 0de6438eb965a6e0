package strategy

import (
	"math"
	"math/rand/v2"

	"autonomous-car/internal/control"
	"autonomous-car/internal/types"
	"autonomous-car/internal/vision"
)

const filterSize = 3

// LineFollow steers along the painted guide line with a filtered PID loop and
// sweeps to reacquire it when lost.
type LineFollow struct {
	starter
	speed        float64
	filter       *control.LowPass
	pid          *control.PID
	lost         int
	lastSteering float64
}

func NewLineFollow(initialSpeed float64, rng *rand.Rand) *LineFollow {
	return &LineFollow{
		starter: newStarter(initialSpeed, rng),
		speed:   initialSpeed,
		filter:  control.NewLowPass(filterSize),
		pid:     control.NewPID(control.DefaultPIDConfig()),
	}
}

func (l *LineFollow) Mode() types.DrivingMode { return types.ModeLineFollow }

// Lost returns the current run of frames without the guide line.
func (l *LineFollow) Lost() int { return l.lost }

func (l *LineFollow) Command(s Sensors) types.Command {
	if cmd, ok := l.first(); ok {
		return cmd
	}
	if !s.Frame.Valid() {
		return types.Stop()
	}

	sample := control.Unknown
	if angle, ok := vision.GuideLineAngle(s.Frame); ok {
		sample = control.Known(angle)
	}

	if filtered := l.filter.Filter(sample); filtered.Known {
		steering := l.pid.Update(filtered.Value)
		l.lastSteering = steering
		l.lost = 0
		return types.Command{Steering: steering, SpeedKmh: l.speed}
	}

	l.pid.Reset()
	l.lost++
	switch {
	case l.lost < 4:
		return types.Command{Steering: l.lastSteering, SpeedKmh: l.speed * 0.3}
	case l.lost < 10:
		return types.Command{Steering: math.Sin(float64(l.lost)*0.5) * 0.3, SpeedKmh: l.speed * 0.2}
	default:
		return types.Command{Steering: l.lastSteering, SpeedKmh: l.speed * 0.3}
	}
}
