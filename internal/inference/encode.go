package inference

import (
	"bytes"
	"fmt"

	"gocv.io/x/gocv"

	"autonomous-car/internal/types"
)

// EncodePNG converts a BGRA frame to an opaque three-channel PNG.
func EncodePNG(f *types.Frame) ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid frame")
	}
	bgra, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer bgra.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(bgra, &bgr, gocv.ColorBGRAToBGR)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, bgr)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}
