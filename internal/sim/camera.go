package sim

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"autonomous-car/internal/types"
	"autonomous-car/internal/vision"
)

// Camera renders the road ahead of the car. The lower part of the image is
// the perspective view of a flat ground patch: the trapezoid the lane
// detector rectifies covers ViewNear to ViewNear+ViewDepth metres ahead and
// the full image width covers LaneWidthPixels per lane width.
type Camera struct {
	host   *Host
	width  int
	height int
	fov    float64
	top    int        // first ground row
	ground []r2.Point // per ground pixel: X lateral (right), Y ahead, metres

	tick  int
	image []byte
}

func newCamera(h *Host, cfg Config) (*Camera, error) {
	w, ht := cfg.Width, cfg.Height
	if w <= 0 || ht <= 0 {
		return nil, fmt.Errorf("invalid camera size %dx%d", w, ht)
	}
	rect := [4]r2.Point{{X: 0, Y: 0}, {X: float64(w), Y: 0}, {X: float64(w), Y: float64(ht)}, {X: 0, Y: float64(ht)}}
	forward, err := vision.SolveHomography(vision.LaneTrapezoid(w, ht), rect)
	if err != nil {
		return nil, fmt.Errorf("camera projection: %w", err)
	}

	pxPerMetre := vision.LaneWidthPixels / cfg.Track.LaneWidth
	pxPerMetreAhead := float64(ht) / cfg.ViewDepth

	c := &Camera{
		host:   h,
		width:  w,
		height: ht,
		fov:    cfg.FOV,
		top:    int(0.7 * float64(ht)),
		tick:   -1,
	}
	c.ground = make([]r2.Point, 0, w*(ht-c.top))
	for y := c.top; y < ht; y++ {
		for x := 0; x < w; x++ {
			q := forward.Apply(r2.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			c.ground = append(c.ground, r2.Point{
				X: (q.X - float64(w)/2) / pxPerMetre,
				Y: cfg.ViewNear + (float64(ht)-q.Y)/pxPerMetreAhead,
			})
		}
	}
	return c, nil
}

func (c *Camera) Width() int   { return c.width }
func (c *Camera) Height() int  { return c.height }
func (c *Camera) FOV() float64 { return c.fov }

// Image renders the current pose. The buffer is fresh for every tick and
// never written again.
func (c *Camera) Image() []byte {
	if c.tick == c.host.ticks && c.image != nil {
		return c.image
	}
	c.tick = c.host.ticks
	c.image = c.render(c.host.pos, c.host.heading)
	return c.image
}

func (c *Camera) render(pos r2.Point, heading float64) []byte {
	img := make([]byte, c.width*c.height*types.BytesPerPixel)
	for i := 0; i < c.width*c.top; i++ {
		copy(img[i*types.BytesPerPixel:], skyColor[:])
	}

	sin, cos := math.Sincos(heading)
	ahead := r2.Point{X: sin, Y: cos}
	right := r2.Point{X: cos, Y: -sin}
	track := c.host.cfg.Track

	base := c.width * c.top
	for i, g := range c.ground {
		p := pos.Add(ahead.Mul(g.Y)).Add(right.Mul(g.X))
		col := surfaceColors[track.surfaceAt(p)]
		copy(img[(base+i)*types.BytesPerPixel:], col[:])
	}
	return img
}
