package control

// Sample is a filter input or output. Known is false for a missing measurement.
type Sample struct {
	Value float64
	Known bool
}

// Unknown is the missing-measurement sample.
var Unknown = Sample{}

// Known wraps a measured value.
func Known(v float64) Sample {
	return Sample{Value: v, Known: true}
}

// LowPass averages the non-zero entries of a sliding window. An unknown
// input clears the window and is propagated unchanged. A window holding only
// zeros yields Unknown.
type LowPass struct {
	window []float64
}

// NewLowPass creates a filter over the last size samples.
func NewLowPass(size int) *LowPass {
	if size < 1 {
		size = 1
	}
	return &LowPass{window: make([]float64, size)}
}

// Filter pushes s and returns the filtered value.
func (f *LowPass) Filter(s Sample) Sample {
	if !s.Known {
		f.clear()
		return Unknown
	}
	copy(f.window, f.window[1:])
	f.window[len(f.window)-1] = s.Value

	var sum float64
	var n int
	for _, v := range f.window {
		if v != 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return Unknown
	}
	return Known(sum / float64(n))
}

func (f *LowPass) clear() {
	for i := range f.window {
		f.window[i] = 0
	}
}
