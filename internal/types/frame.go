package types

// BytesPerPixel is the stride of the camera buffer (B, G, R, A).
const BytesPerPixel = 4

// Frame is an immutable camera snapshot. Pix holds Width*Height BGRA pixels.
type Frame struct {
	Width  int
	Height int
	FOV    float64 // horizontal field of view, radians
	Pix    []byte
}

// Valid reports whether the buffer is non-empty and matches the dimensions.
func (f *Frame) Valid() bool {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return false
	}
	return len(f.Pix) == f.Width*f.Height*BytesPerPixel
}

// At returns the first three channels of the pixel at (x, y) in buffer order.
func (f *Frame) At(x, y int) (c0, c1, c2 uint8) {
	i := (y*f.Width + x) * BytesPerPixel
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Clone copies the pixel buffer so the frame can outlive the tick that captured it.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, FOV: f.FOV, Pix: pix}
}
