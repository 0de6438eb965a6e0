package vision

import "autonomous-car/internal/types"

// GuideColor is the reference colour of the painted guide line in buffer
// channel order.
var GuideColor = [3]int{95, 187, 203}

// GuideTolerance is the maximum summed channel distance for a matching pixel.
const GuideTolerance = 30

// GuideLineAngle returns the bearing of the guide line in the lower 40% of
// the frame, in radians relative to the optical axis (positive to the right).
// ok is false when no pixel matches.
func GuideLineAngle(f *types.Frame) (angle float64, ok bool) {
	var sumX, count int
	for y := int(float64(f.Height) * 0.6); y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c0, c1, c2 := f.At(x, y)
			diff := abs(int(c0)-GuideColor[0]) + abs(int(c1)-GuideColor[1]) + abs(int(c2)-GuideColor[2])
			if diff < GuideTolerance {
				sumX += x
				count++
			}
		}
	}
	if count == 0 {
		return 0, false
	}
	return (float64(sumX)/float64(count)/float64(f.Width) - 0.5) * f.FOV, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
