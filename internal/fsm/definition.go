package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the lap FSM definition.
// The actions parameter provides the implementation for state entry
// and guards.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateIdle).
		State(StateActive,
			librefsm.WithOnEnter(actions.EnterActive),
		).
		FinalState(StateFinished,
			librefsm.WithOnEnter(actions.EnterFinished),
		).

		// Idle
		Transition(StateIdle, EvStartCrossed, StateActive).
		Transition(StateIdle, EvAbort, StateFinished,
			librefsm.WithAction(actions.OnAbort),
		).

		// Active. Timeout is listed first and the controller sends it
		// before any goal crossing of the same tick.
		Transition(StateActive, EvTimeout, StateFinished,
			librefsm.WithGuard(actions.HasTimedOut),
			librefsm.WithAction(actions.OnTimeout),
		).
		Transition(StateActive, EvGoalCrossed, StateFinished,
			librefsm.WithGuard(actions.HasMinLapElapsed),
			librefsm.WithAction(actions.OnGoal),
		).
		Transition(StateActive, EvAbort, StateFinished,
			librefsm.WithAction(actions.OnAbort),
		).
		Initial(StateIdle)
}
