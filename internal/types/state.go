package types

type LapState string

const (
	LapIdle     LapState = "idle"
	LapActive   LapState = "active"
	LapFinished LapState = "finished"
)

// LapOutcome is the result recorded when a lap reaches LapFinished.
type LapOutcome string

const (
	OutcomeNone    LapOutcome = ""
	OutcomeSuccess LapOutcome = "success"
	OutcomeTimeout LapOutcome = "timeout"
	OutcomeAborted LapOutcome = "aborted"
)

// DrivingMode selects the driving strategy.
type DrivingMode string

const (
	ModeLineFollow   DrivingMode = "LINE_FOLLOW"
	ModeCVLaneFollow DrivingMode = "CV_LANE_FOLLOW"
	ModeHybrid       DrivingMode = "GEMINI"
)

// Modes lists every accepted mode, in flag help order.
var Modes = []DrivingMode{ModeLineFollow, ModeCVLaneFollow, ModeHybrid}
