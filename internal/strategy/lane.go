package strategy

import (
	"math/rand/v2"

	"autonomous-car/internal/types"
	"autonomous-car/internal/vision"
)

// Lost-streak limits. Lane following creeps straight for a long time before
// stopping; the hybrid hands over to the model much sooner.
const (
	LaneGiveUpTicks     = 500
	HybridHandoverTicks = 50
	creepFactor         = 0.6
)

// laneFollower is the detector-driven core shared by the CV strategies.
type laneFollower struct {
	starter
	speed    float64
	detector *vision.LaneDetector
}

func newLaneFollower(initialSpeed float64, width, height int, rng *rand.Rand) (laneFollower, error) {
	d, err := vision.NewLaneDetector(width, height)
	if err != nil {
		return laneFollower{}, err
	}
	return laneFollower{
		starter:  newStarter(initialSpeed, rng),
		speed:    initialSpeed,
		detector: d,
	}, nil
}

// Detector exposes the lane detector for inspection.
func (f *laneFollower) Detector() *vision.LaneDetector {
	return f.detector
}

// Close releases the detector's image buffers.
func (f *laneFollower) Close() error {
	return f.detector.Close()
}

// follow runs the detector. ok is false when the frame was unusable.
func (f *laneFollower) follow(frame *types.Frame) (types.Command, vision.Detection, bool) {
	det, err := f.detector.Detect(frame)
	if err != nil {
		return types.Stop(), det, false
	}
	if det.Detected {
		return types.Command{Steering: det.Steering, SpeedKmh: f.speed}, det, true
	}
	return f.creep(), det, true
}

func (f *laneFollower) creep() types.Command {
	return types.Command{SpeedKmh: f.speed * creepFactor}
}

// CVLane follows the lane borders found by the edge pipeline.
type CVLane struct {
	laneFollower
}

func NewCVLane(initialSpeed float64, width, height int, rng *rand.Rand) (*CVLane, error) {
	f, err := newLaneFollower(initialSpeed, width, height, rng)
	if err != nil {
		return nil, err
	}
	return &CVLane{laneFollower: f}, nil
}

func (c *CVLane) Mode() types.DrivingMode { return types.ModeCVLaneFollow }

func (c *CVLane) Command(s Sensors) types.Command {
	if cmd, ok := c.first(); ok {
		return cmd
	}
	if !s.Frame.Valid() {
		return types.Stop()
	}
	cmd, det, ok := c.follow(s.Frame)
	if !ok || det.Detected {
		return cmd
	}
	if det.Lost < LaneGiveUpTicks {
		return cmd
	}
	return types.Stop()
}
