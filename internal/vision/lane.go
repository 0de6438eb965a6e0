package vision

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"autonomous-car/internal/types"
)

// Lane detector tuning.
const (
	LaneWidthPixels = 350
	BaseThreshold   = 300.0
	SteeringGain    = 0.006
)

// Detection is the result of one Detect call.
type Detection struct {
	Detected bool
	Center   float64 // lane centre column in the warped image
	Offset   float64 // Center minus the image midpoint, pixels
	Steering float64 // Offset * SteeringGain, radians
	Lost     int     // consecutive non-detections including this one
}

// Hysteresis is the state a detector carries between frames.
type Hysteresis struct {
	LeftBase  int
	RightBase int
	HasLeft   bool
	HasRight  bool
	Lost      int
}

// LaneDetector estimates the lateral lane offset from camera frames. It keeps
// the last accepted lane bases so that a single visible border can still be
// used. Not safe for concurrent use.
type LaneDetector struct {
	width, height int
	warper        *Warper
	state         Hysteresis
	hist          []float64
}

// NewLaneDetector prepares a detector for frames of the given size.
func NewLaneDetector(width, height int) (*LaneDetector, error) {
	if width < 2 {
		return nil, fmt.Errorf("lane detector: width %d too small", width)
	}
	warper, err := NewWarper(width, height)
	if err != nil {
		return nil, fmt.Errorf("lane detector: %w", err)
	}
	return &LaneDetector{
		width:  width,
		height: height,
		warper: warper,
		hist:   make([]float64, width),
	}, nil
}

// State returns a copy of the hysteresis state.
func (d *LaneDetector) State() Hysteresis {
	return d.state
}

// BirdsEye runs the edge pipeline and returns the warped edge image.
func (d *LaneDetector) BirdsEye(f *types.Frame) (*Plane, error) {
	if !f.Valid() {
		return nil, errors.New("no usable frame")
	}
	if f.Width != d.width || f.Height != d.height {
		return nil, fmt.Errorf("frame %dx%d does not match detector %dx%d", f.Width, f.Height, d.width, d.height)
	}
	edges, err := EdgeMap(f)
	if err != nil {
		return nil, err
	}
	defer edges.Close()

	warped := d.warper.Warp(edges)
	defer warped.Close()
	return PlaneFromMat(warped)
}

// Close releases the warp transform.
func (d *LaneDetector) Close() error {
	return d.warper.Close()
}

// Detect processes one frame.
func (d *LaneDetector) Detect(f *types.Frame) (Detection, error) {
	warped, err := d.BirdsEye(f)
	if err != nil {
		return Detection{}, err
	}
	return d.detectWarped(warped), nil
}

func (d *LaneDetector) detectWarped(warped *Plane) Detection {
	hist := columnHistogram(warped, d.hist)
	mid := d.width / 2

	left := floats.MaxIdx(hist[:mid])
	right := floats.MaxIdx(hist[mid:]) + mid
	leftOK := hist[left] > BaseThreshold
	rightOK := hist[right] > BaseThreshold

	var center float64
	switch {
	case leftOK && rightOK:
		d.state.LeftBase, d.state.HasLeft = left, true
		d.state.RightBase, d.state.HasRight = right, true
		center = float64(left+right) / 2
	case leftOK && d.state.HasRight:
		d.state.LeftBase, d.state.HasLeft = left, true
		center = float64(left) + LaneWidthPixels/2
	case rightOK && d.state.HasLeft:
		d.state.RightBase, d.state.HasRight = right, true
		center = float64(right) - LaneWidthPixels/2
	default:
		d.state.Lost++
		return Detection{Lost: d.state.Lost}
	}

	d.state.Lost = 0
	offset := center - float64(mid)
	return Detection{
		Detected: true,
		Center:   center,
		Offset:   offset,
		Steering: offset * SteeringGain,
	}
}

// columnHistogram sums each column over the lower half of p into dst.
func columnHistogram(p *Plane, dst []float64) []float64 {
	for i := range dst {
		dst[i] = 0
	}
	row := make([]float64, p.Width)
	for y := p.Height / 2; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			row[x] = float64(p.At(x, y))
		}
		floats.Add(dst, row)
	}
	return dst
}
