package types

// Record is the per-tick telemetry row emitted while a lap is active.
type Record struct {
	Timestamp      float64 `json:"timestamp"`
	LapTime        float64 `json:"lap_time"`
	PosX           float64 `json:"pos_x"`
	PosY           float64 `json:"pos_y"`
	SpeedKmh       float64 `json:"speed_kmh"`
	TargetSpeedKmh float64 `json:"target_speed_kmh"`
	Steering       float64 `json:"steering_angle"`
	TargetSteering float64 `json:"target_steering_angle"`
	Acceleration   float64 `json:"acceleration"`
	Mode           string  `json:"mode_name"`
	RunID          int     `json:"run_id"`
	IsGoal         bool    `json:"is_goal"`
	Active         bool    `json:"is_logging_active"`
	ErrorAngle     float64 `json:"error_angle"`
}
