package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for lap state machine actions.
// LapTracker implements this interface to record lap timing and
// provide guards for the finishing transitions.
type Actions interface {
	// State entry actions
	EnterActive(c *librefsm.Context) error
	EnterFinished(c *librefsm.Context) error

	// Guards for conditional transitions
	HasTimedOut(c *librefsm.Context) bool      // elapsed >= timeout
	HasMinLapElapsed(c *librefsm.Context) bool // elapsed > minimum lap duration

	// Transition actions
	OnTimeout(c *librefsm.Context) error
	OnGoal(c *librefsm.Context) error
	OnAbort(c *librefsm.Context) error
}
