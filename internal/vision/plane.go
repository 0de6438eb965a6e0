package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"autonomous-car/internal/types"
)

// Plane is a single-channel 8-bit image stored row-major.
type Plane struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPlane allocates a zeroed plane.
func NewPlane(w, h int) *Plane {
	return &Plane{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// At returns the value at (x, y). Callers keep coordinates in range.
func (p *Plane) At(x, y int) uint8 {
	return p.Pix[y*p.Width+x]
}

// Set stores v at (x, y).
func (p *Plane) Set(x, y int, v uint8) {
	p.Pix[y*p.Width+x] = v
}

// Mat copies the plane into a new single-channel Mat. The caller closes it.
func (p *Plane) Mat() (gocv.Mat, error) {
	return gocv.NewMatFromBytes(p.Height, p.Width, gocv.MatTypeCV8UC1, p.Pix)
}

// PlaneFromMat copies a single-channel 8-bit Mat.
func PlaneFromMat(m gocv.Mat) (*Plane, error) {
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected 8-bit single channel mat, got type %v", m.Type())
	}
	return &Plane{Width: m.Cols(), Height: m.Rows(), Pix: m.ToBytes()}, nil
}

// frameMat copies a BGRA frame into a four-channel Mat.
func frameMat(f *types.Frame) (gocv.Mat, error) {
	if !f.Valid() {
		return gocv.Mat{}, fmt.Errorf("invalid frame")
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
}
