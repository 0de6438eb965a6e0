package inference

import (
	"go.uber.org/atomic"

	"autonomous-car/internal/types"
)

// Result is a command proposed by the vision model.
type Result struct {
	Steering float64
	SpeedKmh float64
}

// Snapshot is the newest frame handed from the control loop to the worker.
type Snapshot struct {
	Frame    *types.Frame
	SpeedKmh float64
}

// Mailbox is the lock-free boundary between the control loop and the worker.
// Both slots are last-write-wins. A result is taken at most once.
type Mailbox struct {
	snapshot atomic.Pointer[Snapshot]
	result   atomic.Pointer[Result]
	urgent   atomic.Bool
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// PublishFrame replaces the pending frame. The frame must not be modified
// afterwards.
func (m *Mailbox) PublishFrame(f *types.Frame, speedKmh float64) {
	m.snapshot.Store(&Snapshot{Frame: f, SpeedKmh: speedKmh})
}

// Latest returns the newest frame without consuming it, or nil.
func (m *Mailbox) Latest() *Snapshot {
	return m.snapshot.Load()
}

// PublishResult replaces any unconsumed result.
func (m *Mailbox) PublishResult(r Result) {
	m.result.Store(&r)
}

// TakeResult removes and returns the pending result.
func (m *Mailbox) TakeResult() (Result, bool) {
	r := m.result.Swap(nil)
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// SetUrgent tells the worker whether the control loop is waiting on it.
func (m *Mailbox) SetUrgent(v bool) {
	m.urgent.Store(v)
}

func (m *Mailbox) Urgent() bool {
	return m.urgent.Load()
}
