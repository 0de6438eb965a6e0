package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform in row-major order. It is defined
// up to scale; the bottom-right entry may be zero when the origin lies on the
// vanishing line.
type Homography [9]float64

// Apply maps p through the transform.
func (m Homography) Apply(p r2.Point) r2.Point {
	d := m[6]*p.X + m[7]*p.Y + m[8]
	return r2.Point{
		X: (m[0]*p.X + m[1]*p.Y + m[2]) / d,
		Y: (m[3]*p.X + m[4]*p.Y + m[5]) / d,
	}
}

var errDegenerate = errors.New("degenerate point configuration")

// SolveHomography finds the transform taking each src[i] to dst[i]. Points
// are normalised before the null space of the DLT system is taken, so
// transforms that send the origin to infinity are solvable.
func SolveHomography(src, dst [4]r2.Point) (Homography, error) {
	ts, ns, err := normalise(src)
	if err != nil {
		return Homography{}, fmt.Errorf("solve homography: %w", err)
	}
	td, nd, err := normalise(dst)
	if err != nil {
		return Homography{}, fmt.Errorf("solve homography: %w", err)
	}

	// 9x9 with a zero last row so the SVD yields all nine right vectors.
	a := mat.NewDense(9, 9, nil)
	for i := 0; i < 4; i++ {
		x, y := ns[i].X, ns[i].Y
		u, v := nd[i].X, nd[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u, -u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v, -v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return Homography{}, errors.New("solve homography: svd failed")
	}
	sv := svd.Values(nil)
	if sv[7] <= sv[0]*1e-10 {
		return Homography{}, fmt.Errorf("solve homography: %w", errDegenerate)
	}
	var v mat.Dense
	svd.VTo(&v)
	hn := mat.NewDense(3, 3, mat.Col(nil, 8, &v))

	var left, h mat.Dense
	left.Mul(invertSimilarity(td), hn)
	h.Mul(&left, ts)

	var m Homography
	var largest float64
	for i := 0; i < 9; i++ {
		m[i] = h.At(i/3, i%3)
		if math.Abs(m[i]) > math.Abs(largest) {
			largest = m[i]
		}
	}
	for i := range m {
		m[i] /= largest
	}
	return m, nil
}

// normalise translates pts to their centroid and scales them to a mean
// distance of sqrt(2). It returns the similarity applied and the new points.
func normalise(pts [4]r2.Point) (*mat.Dense, [4]r2.Point, error) {
	var c r2.Point
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.Mul(0.25)

	var dist float64
	for _, p := range pts {
		dist += p.Sub(c).Norm()
	}
	dist /= 4
	if dist == 0 {
		return nil, pts, errDegenerate
	}

	s := math.Sqrt2 / dist
	var out [4]r2.Point
	for i, p := range pts {
		out[i] = p.Sub(c).Mul(s)
	}
	t := mat.NewDense(3, 3, []float64{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	})
	return t, out, nil
}

func invertSimilarity(t *mat.Dense) *mat.Dense {
	s := t.At(0, 0)
	return mat.NewDense(3, 3, []float64{
		1 / s, 0, -t.At(0, 2) / s,
		0, 1 / s, -t.At(1, 2) / s,
		0, 0, 1,
	})
}

// LaneTrapezoid returns the road region mapped onto the full image:
// (0.15w, 0.7h), (0.85w, 0.7h), (w, h), (0, h).
func LaneTrapezoid(w, h int) [4]r2.Point {
	fw, fh := float64(w), float64(h)
	return [4]r2.Point{
		{X: fw * 0.15, Y: fh * 0.7},
		{X: fw * 0.85, Y: fh * 0.7},
		{X: fw, Y: fh},
		{X: 0, Y: fh},
	}
}

// Warper applies the bird's-eye transform for one image size. Close releases
// the transform matrix.
type Warper struct {
	size image.Point
	// forward maps source pixel coordinates to output coordinates
	forward gocv.Mat
}

// NewWarper builds the transform for a w x h image.
func NewWarper(w, h int) (*Warper, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid warp size %dx%d", w, h)
	}
	fw, fh := float64(w), float64(h)
	rect := [4]r2.Point{{X: 0, Y: 0}, {X: fw, Y: 0}, {X: fw, Y: fh}, {X: 0, Y: fh}}
	m, err := SolveHomography(LaneTrapezoid(w, h), rect)
	if err != nil {
		return nil, err
	}

	fwd := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i, v := range m {
		fwd.SetDoubleAt(i/3, i%3, v)
	}
	return &Warper{size: image.Point{X: w, Y: h}, forward: fwd}, nil
}

// Warp resamples src bilinearly. Samples outside src read as zero. The caller
// closes the result.
func (wp *Warper) Warp(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.WarpPerspectiveWithParams(src, &dst, wp.forward, wp.size,
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return dst
}

func (wp *Warper) Close() error {
	return wp.forward.Close()
}
