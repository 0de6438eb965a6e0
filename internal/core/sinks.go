package core

import (
	"autonomous-car/internal/logger"
	"autonomous-car/internal/types"
)

// LogSink writes telemetry records to the debug log.
type LogSink struct {
	logger *logger.Logger
}

func NewLogSink(l *logger.Logger) *LogSink {
	return &LogSink{logger: l.WithTag("telemetry")}
}

func (s *LogSink) WriteRecord(rec types.Record) error {
	s.logger.Debugf("t=%.2f lap=%.2f pos=(%.2f,%.2f) v=%.1f/%.1f steer=%.3f/%.3f a=%.2f goal=%v",
		rec.Timestamp, rec.LapTime, rec.PosX, rec.PosY, rec.SpeedKmh, rec.TargetSpeedKmh,
		rec.Steering, rec.TargetSteering, rec.Acceleration, rec.IsGoal)
	return nil
}
