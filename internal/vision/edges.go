package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"autonomous-car/internal/types"
)

// Canny hysteresis thresholds used by the lane detector.
const (
	CannyLow  = 50
	CannyHigh = 150
)

// Grayscale converts a BGRA frame to luma. The caller closes the result.
func Grayscale(f *types.Frame) (gocv.Mat, error) {
	src, err := frameMat(f)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("grayscale: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	return gray, nil
}

// GaussianBlur5 smooths with a 5x5 kernel, sigma derived from the size.
func GaussianBlur5(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.GaussianBlur(src, &dst, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)
	return dst
}

// Canny returns the edge map of src. Edge pixels are 255.
func Canny(src gocv.Mat, low, high float32) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Canny(src, &dst, low, high)
	return dst
}

// EdgeMap runs grayscale, blur and Canny on a frame.
func EdgeMap(f *types.Frame) (gocv.Mat, error) {
	gray, err := Grayscale(f)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer gray.Close()

	blurred := GaussianBlur5(gray)
	defer blurred.Close()

	return Canny(blurred, CannyLow, CannyHigh), nil
}
