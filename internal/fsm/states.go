package fsm

import "github.com/librescoot/librefsm"

// Lap states
const (
	StateIdle     librefsm.StateID = "idle"
	StateActive   librefsm.StateID = "active"
	StateFinished librefsm.StateID = "finished"
)

// Lap events
const (
	// Geofence crossings, detected by the controller each tick
	EvStartCrossed librefsm.EventID = "start-crossed"
	EvGoalCrossed  librefsm.EventID = "goal-crossed"

	// Sent every active tick; the guard decides whether time is up
	EvTimeout librefsm.EventID = "timeout"

	// External stop request (Redis)
	EvAbort librefsm.EventID = "abort"
)

// Tick is the payload carried by every lap event.
type Tick struct {
	// Time is the simulation time in seconds.
	Time float64
}

// TickTime extracts the simulation time from an event context.
func TickTime(c *librefsm.Context) (float64, bool) {
	if c == nil || c.Event == nil {
		return 0, false
	}
	t, ok := c.Event.Payload.(Tick)
	return t.Time, ok
}
