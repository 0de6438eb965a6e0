package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/librescoot/librefsm"

	"autonomous-car/internal/config"
	"autonomous-car/internal/fsm"
	"autonomous-car/internal/logger"
	"autonomous-car/internal/types"
)

// Ensure LapTracker implements fsm.Actions
var _ fsm.Actions = (*LapTracker)(nil)

// noPosition seeds the previous position so that the first sample north of
// the start line counts as a crossing.
const noPosition = -9999.0

// LapTracker times one lap between the start and goal geofences.
type LapTracker struct {
	cfg       config.Config
	logger    *logger.Logger
	machine   *librefsm.Machine
	publisher LapPublisher

	mu        sync.RWMutex
	state     types.LapState
	started   bool
	startTime float64
	lapTime   float64
	outcome   types.LapOutcome

	// only touched by the control goroutine
	last r2.Point
}

// NewLapTracker creates an idle tracker. publisher may be nil.
func NewLapTracker(cfg config.Config, publisher LapPublisher, l *logger.Logger) *LapTracker {
	return &LapTracker{
		cfg:       cfg,
		logger:    l.WithTag("lap"),
		publisher: publisher,
		state:     types.LapIdle,
		last:      r2.Point{X: 0, Y: noPosition},
	}
}

func stateIDToLapState(id librefsm.StateID) types.LapState {
	switch id {
	case fsm.StateIdle:
		return types.LapIdle
	case fsm.StateActive:
		return types.LapActive
	case fsm.StateFinished:
		return types.LapFinished
	default:
		return types.LapState(string(id))
	}
}

// Start builds and starts the librefsm machine.
func (l *LapTracker) Start(ctx context.Context) error {
	machine, err := fsm.NewDefinition(l).Build()
	if err != nil {
		return fmt.Errorf("build lap fsm: %w", err)
	}
	l.machine = machine

	l.machine.OnStateChange(func(from, to librefsm.StateID) {
		newState := stateIDToLapState(to)

		l.mu.Lock()
		l.state = newState
		outcome, lapTime := l.outcome, l.lapTime
		l.mu.Unlock()

		l.logger.Infof("Lap transition: %s -> %s", stateIDToLapState(from), newState)

		if l.publisher != nil {
			if err := l.publisher.PublishLapState(newState, outcome, lapTime); err != nil {
				l.logger.Warnf("Failed to publish lap state: %v", err)
			}
		}
	})

	if err := l.machine.Start(ctx); err != nil {
		return err
	}
	return nil
}

// Stop halts the machine's event loop.
func (l *LapTracker) Stop() {
	if l.machine != nil {
		l.machine.Stop()
	}
}

func (l *LapTracker) sendEvent(event librefsm.EventID, now float64) error {
	return l.machine.SendSync(librefsm.Event{ID: event, Payload: fsm.Tick{Time: now}})
}

// Update feeds the position sampled at simulation time now. Timeout is
// evaluated before the goal so it wins when both hold on the same tick.
func (l *LapTracker) Update(now float64, pos r2.Point) (types.LapState, error) {
	prev := l.last
	l.last = pos

	switch l.State() {
	case types.LapIdle:
		if l.cfg.Start.Crossed(prev, pos) {
			if err := l.sendEvent(fsm.EvStartCrossed, now); err != nil {
				return l.State(), err
			}
		}
	case types.LapActive:
		if err := l.sendEvent(fsm.EvTimeout, now); err != nil {
			return l.State(), err
		}
		if l.State() == types.LapActive && l.cfg.Goal.Crossed(prev, pos) {
			if err := l.sendEvent(fsm.EvGoalCrossed, now); err != nil {
				return l.State(), err
			}
		}
	}
	return l.State(), nil
}

// Abort ends the lap without a lap time.
func (l *LapTracker) Abort(now float64) error {
	return l.sendEvent(fsm.EvAbort, now)
}

func (l *LapTracker) State() types.LapState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Outcome returns how the lap ended, or OutcomeNone while it runs.
func (l *LapTracker) Outcome() types.LapOutcome {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.outcome
}

// LapTime returns the recorded lap time; ok is false unless the goal was
// reached.
func (l *LapTracker) LapTime() (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lapTime, l.outcome == types.OutcomeSuccess
}

// Started reports whether the start line has been crossed.
func (l *LapTracker) Started() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

// Elapsed returns the time since the start line was crossed.
func (l *LapTracker) Elapsed(now float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.started {
		return 0
	}
	return now - l.startTime
}

func (l *LapTracker) elapsed(c *librefsm.Context) (float64, bool) {
	now, ok := fsm.TickTime(c)
	if !ok {
		return 0, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return now - l.startTime, true
}

// === State Entry Actions ===

func (l *LapTracker) EnterActive(c *librefsm.Context) error {
	now, ok := fsm.TickTime(c)
	if !ok {
		return fmt.Errorf("start crossing without tick time")
	}
	l.mu.Lock()
	l.started = true
	l.startTime = now
	l.mu.Unlock()
	l.logger.Infof("Start line crossed at t=%.2fs", now)
	return nil
}

func (l *LapTracker) EnterFinished(c *librefsm.Context) error {
	l.mu.RLock()
	outcome, lapTime := l.outcome, l.lapTime
	l.mu.RUnlock()

	if outcome == types.OutcomeSuccess {
		l.logger.Infof("Lap finished: %s, lap time %.2fs", outcome, lapTime)
	} else {
		l.logger.Infof("Lap finished: %s", outcome)
	}
	return nil
}

// === Guards ===

func (l *LapTracker) HasTimedOut(c *librefsm.Context) bool {
	e, ok := l.elapsed(c)
	return ok && e >= l.cfg.Timeout.Seconds()
}

func (l *LapTracker) HasMinLapElapsed(c *librefsm.Context) bool {
	e, ok := l.elapsed(c)
	return ok && e > l.cfg.MinLap.Seconds()
}

// === Transition Actions ===

func (l *LapTracker) OnTimeout(c *librefsm.Context) error {
	l.finish(types.OutcomeTimeout, 0)
	return nil
}

func (l *LapTracker) OnGoal(c *librefsm.Context) error {
	e, _ := l.elapsed(c)
	l.finish(types.OutcomeSuccess, e)
	return nil
}

func (l *LapTracker) OnAbort(c *librefsm.Context) error {
	l.finish(types.OutcomeAborted, 0)
	return nil
}

func (l *LapTracker) finish(outcome types.LapOutcome, lapTime float64) {
	l.mu.Lock()
	l.outcome = outcome
	l.lapTime = lapTime
	l.mu.Unlock()
}
