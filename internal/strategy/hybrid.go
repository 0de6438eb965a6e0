package strategy

import (
	"math/rand/v2"

	"autonomous-car/internal/inference"
	"autonomous-car/internal/types"
)

// Hybrid follows lanes like CVLane and falls back to the vision model after a
// sustained loss of both borders.
type Hybrid struct {
	laneFollower
	mailbox *inference.Mailbox
}

func NewHybrid(initialSpeed float64, width, height int, mailbox *inference.Mailbox, rng *rand.Rand) (*Hybrid, error) {
	f, err := newLaneFollower(initialSpeed, width, height, rng)
	if err != nil {
		return nil, err
	}
	return &Hybrid{laneFollower: f, mailbox: mailbox}, nil
}

func (h *Hybrid) Mode() types.DrivingMode { return types.ModeHybrid }

func (h *Hybrid) Command(s Sensors) types.Command {
	if cmd, ok := h.first(); ok {
		return cmd
	}
	if !s.Frame.Valid() {
		return types.Stop()
	}
	// the worker reads the frame after this tick has ended
	h.mailbox.PublishFrame(s.Frame.Clone(), s.SpeedKmh)

	cmd, det, ok := h.follow(s.Frame)
	if !ok {
		return cmd
	}
	h.mailbox.SetUrgent(!det.Detected)
	if det.Detected || det.Lost < HybridHandoverTicks {
		return cmd
	}

	if r, ok := h.mailbox.TakeResult(); ok {
		return types.Command{Steering: r.Steering, SpeedKmh: r.SpeedKmh, Brake: r.SpeedKmh <= 0}
	}
	cmd.Brake = true
	return cmd
}
