// Package geom maps between screen space and world space.
//
// Screen points are pixels relative to the window. The canvas origin is the
// screen position of the canvas' top-left corner (the editor keeps a left
// panel, so this is rarely zero). World points are stage units.
package geom

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/stagecraft/common"
)

const (
	MinZoom = 0.3
	MaxZoom = 3.5
	// WheelStep is the zoom change applied per wheel event.
	WheelStep = 0.12
)

// Camera is the pan/zoom transform of the canvas. X and Y are the pan offset
// in screen pixels.
type Camera struct {
	X    float64
	Y    float64
	Zoom float64
}

// NewCamera returns an unpanned camera at zoom 1.
func NewCamera() Camera {
	return Camera{Zoom: 1}
}

// Pan returns the camera shifted by a screen-space delta.
func (c Camera) Pan(d cp.Vector) Camera {
	c.X += d.X
	c.Y += d.Y
	return c
}

// WithZoom returns the camera with zoom set to z, clamped to [MinZoom, MaxZoom].
func (c Camera) WithZoom(z float64) Camera {
	c.Zoom = ClampZoom(z)
	return c
}

func (c Camera) zoom() float64 {
	if c.Zoom == 0 {
		return 1
	}
	return c.Zoom
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return common.Clamp(z, MinZoom, MaxZoom)
}

// ScreenToWorld maps a screen point into world space:
// world = (screen - origin - pan) / zoom.
func ScreenToWorld(p, origin cp.Vector, c Camera) cp.Vector {
	z := c.zoom()
	return cp.Vector{
		X: (p.X - origin.X - c.X) / z,
		Y: (p.Y - origin.Y - c.Y) / z,
	}
}

// WorldToScreen is the paint transform: scale by zoom, then translate by pan
// and origin. It is the inverse of ScreenToWorld.
func WorldToScreen(p, origin cp.Vector, c Camera) cp.Vector {
	z := c.zoom()
	return cp.Vector{
		X: p.X*z + c.X + origin.X,
		Y: p.Y*z + c.Y + origin.Y,
	}
}

// Snap rounds v to the nearest multiple of size. A size of zero or less
// disables snapping.
func Snap(v, size float64) float64 {
	if size <= 0 {
		return v
	}
	return math.Round(v/size) * size
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b cp.Vector) cp.Vector {
	return cp.Vector{X: common.Lerp(a.X, b.X, 0.5), Y: common.Lerp(a.Y, b.Y, 0.5)}
}
