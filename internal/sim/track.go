package sim

import (
	"math"

	"github.com/golang/geo/r2"
)

// Track is a straight road along +y that wraps around after Length metres,
// so a car driving forward crosses the same lines again on every lap.
type Track struct {
	CenterX     float64 // x of the road axis and guide line
	YMin        float64 // y where a lap segment begins
	Length      float64
	RoadWidth   float64
	LaneWidth   float64 // distance between the border stripe centres
	BorderWidth float64
	GuideWidth  float64
	GuideLine   bool // paint the yellow guide line on the axis
}

// DefaultTrack spans the start and goal lines of the default geofences.
func DefaultTrack() Track {
	return Track{
		CenterX:     45,
		YMin:        -40,
		Length:      400,
		RoadWidth:   6,
		LaneWidth:   3.5,
		BorderWidth: 0.15,
		GuideWidth:  0.2,
		GuideLine:   true,
	}
}

// Wrap maps p back onto the lap segment.
func (t Track) Wrap(p r2.Point) r2.Point {
	if t.Length <= 0 {
		return p
	}
	for p.Y >= t.YMin+t.Length {
		p.Y -= t.Length
	}
	for p.Y < t.YMin {
		p.Y += t.Length
	}
	return p
}

type surface uint8

const (
	surfaceGrass surface = iota
	surfaceAsphalt
	surfaceBorder
	surfaceGuide
)

// Buffer colours, B G R A.
var surfaceColors = [...][4]byte{
	surfaceGrass:   {40, 110, 50, 255},
	surfaceAsphalt: {60, 60, 60, 255},
	surfaceBorder:  {230, 230, 230, 255},
	surfaceGuide:   {95, 187, 203, 255},
}

// skyColor fills the rows above the road view.
var skyColor = [4]byte{200, 170, 120, 255}

func (t Track) surfaceAt(p r2.Point) surface {
	d := math.Abs(p.X - t.CenterX)
	switch {
	case t.GuideLine && d <= t.GuideWidth/2:
		return surfaceGuide
	case math.Abs(d-t.LaneWidth/2) <= t.BorderWidth/2:
		return surfaceBorder
	case d <= t.RoadWidth/2:
		return surfaceAsphalt
	}
	return surfaceGrass
}
