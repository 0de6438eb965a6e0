package fsm

import (
	"context"
	"testing"

	"github.com/librescoot/librefsm"
)

type recordingActions struct {
	entered  []librefsm.StateID
	timedOut bool
	minLap   bool
	results  []string
}

func (r *recordingActions) EnterActive(c *librefsm.Context) error {
	r.entered = append(r.entered, StateActive)
	return nil
}

func (r *recordingActions) EnterFinished(c *librefsm.Context) error {
	r.entered = append(r.entered, StateFinished)
	return nil
}

func (r *recordingActions) HasTimedOut(c *librefsm.Context) bool      { return r.timedOut }
func (r *recordingActions) HasMinLapElapsed(c *librefsm.Context) bool { return r.minLap }

func (r *recordingActions) OnTimeout(c *librefsm.Context) error {
	r.results = append(r.results, "timeout")
	return nil
}

func (r *recordingActions) OnGoal(c *librefsm.Context) error {
	r.results = append(r.results, "goal")
	return nil
}

func (r *recordingActions) OnAbort(c *librefsm.Context) error {
	r.results = append(r.results, "abort")
	return nil
}

func startMachine(t *testing.T, a Actions) *librefsm.Machine {
	t.Helper()
	m, err := NewDefinition(a).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { m.Stop() })
	return m
}

func send(t *testing.T, m *librefsm.Machine, ev librefsm.EventID, at float64) {
	t.Helper()
	if err := m.SendSync(librefsm.Event{ID: ev, Payload: Tick{Time: at}}); err != nil {
		t.Fatalf("SendSync(%s) failed: %v", ev, err)
	}
}

func TestLapMachineStartsIdle(t *testing.T) {
	m := startMachine(t, &recordingActions{})
	if got := m.CurrentState(); got != StateIdle {
		t.Errorf("Expected %s, got %s", StateIdle, got)
	}

	// goal and timeout mean nothing before the start line
	send(t, m, EvGoalCrossed, 1)
	send(t, m, EvTimeout, 1)
	if got := m.CurrentState(); got != StateIdle {
		t.Errorf("Expected %s, got %s", StateIdle, got)
	}
}

func TestLapMachineGuards(t *testing.T) {
	a := &recordingActions{}
	m := startMachine(t, a)

	send(t, m, EvStartCrossed, 0)
	if got := m.CurrentState(); got != StateActive {
		t.Fatalf("Expected %s, got %s", StateActive, got)
	}

	send(t, m, EvTimeout, 1)
	send(t, m, EvGoalCrossed, 1)
	if got := m.CurrentState(); got != StateActive {
		t.Fatalf("Guards should hold the lap active, got %s", got)
	}

	a.minLap = true
	send(t, m, EvGoalCrossed, 40)
	if got := m.CurrentState(); got != StateFinished {
		t.Fatalf("Expected %s, got %s", StateFinished, got)
	}
	if len(a.results) != 1 || a.results[0] != "goal" {
		t.Errorf("Expected goal action, got %v", a.results)
	}

	// finished is terminal
	send(t, m, EvStartCrossed, 50)
	send(t, m, EvAbort, 50)
	if got := m.CurrentState(); got != StateFinished {
		t.Errorf("Expected %s, got %s", StateFinished, got)
	}
	want := []librefsm.StateID{StateActive, StateFinished}
	if len(a.entered) != len(want) || a.entered[0] != want[0] || a.entered[1] != want[1] {
		t.Errorf("Expected entries %v, got %v", want, a.entered)
	}
}

func TestLapMachineTimeout(t *testing.T) {
	a := &recordingActions{timedOut: true}
	m := startMachine(t, a)
	send(t, m, EvStartCrossed, 0)
	send(t, m, EvTimeout, 120)

	if got := m.CurrentState(); got != StateFinished {
		t.Fatalf("Expected %s, got %s", StateFinished, got)
	}
	if len(a.results) != 1 || a.results[0] != "timeout" {
		t.Errorf("Expected timeout action, got %v", a.results)
	}
}

func TestLapMachineAbortFromIdle(t *testing.T) {
	a := &recordingActions{}
	m := startMachine(t, a)
	send(t, m, EvAbort, 3)

	if got := m.CurrentState(); got != StateFinished {
		t.Fatalf("Expected %s, got %s", StateFinished, got)
	}
	if len(a.results) != 1 || a.results[0] != "abort" {
		t.Errorf("Expected abort action, got %v", a.results)
	}
}

func TestTickTime(t *testing.T) {
	if _, ok := TickTime(nil); ok {
		t.Error("Expected no time from nil context")
	}
	c := &librefsm.Context{Event: &librefsm.Event{ID: EvTimeout, Payload: Tick{Time: 12.5}}}
	if got, ok := TickTime(c); !ok || got != 12.5 {
		t.Errorf("Expected 12.5, got %v (ok=%v)", got, ok)
	}
	c.Event.Payload = "bogus"
	if _, ok := TickTime(c); ok {
		t.Error("Expected no time from foreign payload")
	}
}
