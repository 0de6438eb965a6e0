package types

import "time"

// RunInfo describes one experiment run at launch.
type RunInfo struct {
	StartedAt       time.Time
	RunID           int
	Mode            DrivingMode
	InitialSpeedKmh float64
	LaunchSpeedKmh  float64 // randomised base speed actually applied
	LaunchSteering  float64
}

// RunResult is the lap outcome recorded when a run closes.
type RunResult struct {
	Outcome    LapOutcome
	LapTime    float64
	HasLapTime bool
	Ticks      int
}
