// Package hand describes the per-frame hand landmarks produced by a detector.
package hand

import (
	"errors"
	"fmt"
	"math"
)

// Landmark indices following the MediaPipe hand model.
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a normalized image-space point; Z is relative depth and may be zero.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks holds the 21 points of one detected hand.
type Landmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness,omitempty"`
	Score      float64               `json:"score,omitempty"`
}

// ErrTooFewPoints is returned when a decoded hand lacks the full landmark set.
var ErrTooFewPoints = errors.New("too few landmarks")

// FromPoints builds Landmarks from a decoded point list. Points beyond
// NumLandmarks are ignored.
func FromPoints(points []Point3D, handedness string, score float64) (Landmarks, error) {
	var h Landmarks
	if len(points) < NumLandmarks {
		return h, fmt.Errorf("%w: got %d, want %d", ErrTooFewPoints, len(points), NumLandmarks)
	}
	copy(h.Points[:], points)
	h.Handedness = handedness
	h.Score = score
	return h, nil
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point3D) Point3D {
	return Point3D{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
		Z: (a.Z + b.Z) / 2,
	}
}

// Center is the midpoint of the wrist and the middle finger base.
func (h *Landmarks) Center() Point3D {
	return Midpoint(h.Points[Wrist], h.Points[MiddleMCP])
}

// Translate returns a copy of h moved by (dx, dy, dz).
func (h Landmarks) Translate(dx, dy, dz float64) Landmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
		h.Points[i].Z += dz
	}
	return h
}

// Blend interpolates every point from a (t=0) to b (t=1). Handedness and score
// come from a.
func Blend(a, b Landmarks, t float64) Landmarks {
	out := a
	for i := range out.Points {
		p, q := a.Points[i], b.Points[i]
		out.Points[i] = Point3D{
			X: p.X + (q.X-p.X)*t,
			Y: p.Y + (q.Y-p.Y)*t,
			Z: p.Z + (q.Z-p.Z)*t,
		}
	}
	return out
}
