package core

import (
	"github.com/golang/geo/r2"

	"autonomous-car/internal/types"
)

// Vehicle is the simulation host: stepped time, actuators and sensors.
type Vehicle interface {
	// Step advances the host by one tick. It returns false when the host
	// has terminated.
	Step() bool
	Time() float64

	// Measured state
	CurrentSpeed() float64 // km/h
	SteeringAngle() float64

	// Actuators
	SetCruisingSpeed(kmh float64)
	SetSteeringAngle(rad float64)
	SetBrakeIntensity(v float64)

	Camera() Camera
	GPS() GPS
}

// Camera yields one BGRA frame per tick. Image returns nil when no frame is
// available. The returned slice must not be modified by the host afterwards.
type Camera interface {
	Image() []byte
	Width() int
	Height() int
	FOV() float64
}

// GPS reports the planar position of the vehicle.
type GPS interface {
	Position() r2.Point
}

// RecordSink receives one telemetry record per logged tick.
type RecordSink interface {
	WriteRecord(rec types.Record) error
}

// LapPublisher is notified on every lap state change.
type LapPublisher interface {
	PublishLapState(state types.LapState, outcome types.LapOutcome, lapTime float64) error
}

// RunRegistry persists one row per run.
type RunRegistry interface {
	BeginRun(info types.RunInfo) (string, error)
	FinishRun(session string, result types.RunResult) error
}

// Stopper is a background component shut down with the controller.
type Stopper interface {
	Stop()
	Wait()
}
