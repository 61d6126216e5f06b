// Package gesture turns raw hand landmarks into a flat vector of control features.
package gesture

import (
	"math"

	"github.com/guidoenr/handsynth/internal/hand"
)

// State is the per-frame gesture feature vector. Every field except HandCount is
// normalized to [0,1].
type State struct {
	HandCount        int     `json:"handCount"`
	HandHeight       float64 `json:"handHeight"`
	PinchDistance    float64 `json:"pinchDistance"`
	Rotation         float64 `json:"rotation"`
	PalmOpenness     float64 `json:"palmOpenness"`
	TwoHandsDistance float64 `json:"twoHandsDistance"`
	MovementSpeed    float64 `json:"movementSpeed"`
}

// fingertip / second joint pairs used to estimate how open the palm is.
var extensionPairs = [5][2]int{
	{hand.ThumbTip, hand.ThumbMCP},
	{hand.IndexTip, hand.IndexPIP},
	{hand.MiddleTip, hand.MiddlePIP},
	{hand.RingTip, hand.RingPIP},
	{hand.PinkyTip, hand.PinkyPIP},
}

// Extractor computes State from consecutive detector frames.
//
// Only the first hand of each frame is the primary hand. There is no identity
// tracking, so if the detector swaps hand order between frames the primary hand
// (and every per-hand feature) jumps with it.
type Extractor struct {
	state     State
	prevWrist hand.Point3D
	hasPrev   bool
}

// NewExtractor returns an Extractor with a zeroed state.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Update folds one detector frame into the state and returns a copy of it.
// With no hands only HandCount changes; the other features keep their last values.
func (e *Extractor) Update(hands []hand.Landmarks) State {
	e.state.HandCount = len(hands)
	if len(hands) == 0 {
		e.hasPrev = false
		return e.state
	}

	primary := &hands[0]
	wrist := primary.Points[hand.Wrist]

	e.state.HandHeight = 1 - wrist.Y
	e.state.PinchDistance = clamp01(1 - hand.Distance(primary.Points[hand.ThumbTip], primary.Points[hand.IndexTip])*5)
	e.state.Rotation = Rotation(primary)
	e.state.PalmOpenness = PalmOpenness(primary)

	if len(hands) == 2 {
		e.state.TwoHandsDistance = clamp01(hand.Distance(hands[0].Center(), hands[1].Center()) * 2)
	} else {
		e.state.TwoHandsDistance = 0
	}

	if e.hasPrev {
		e.state.MovementSpeed = clamp01(hand.Distance(wrist, e.prevWrist) * 20)
	} else {
		e.state.MovementSpeed = 0
	}
	e.prevWrist = wrist
	e.hasPrev = true

	return e.state
}

// State returns the most recent feature vector.
func (e *Extractor) State() State {
	return e.state
}

// Reset forgets the previous frame and zeroes the state.
func (e *Extractor) Reset() {
	*e = Extractor{}
}

// Rotation maps the roll of the knuckle line (index base to pinky base) onto [0,1).
func Rotation(h *hand.Landmarks) float64 {
	index := h.Points[hand.IndexMCP]
	pinky := h.Points[hand.PinkyMCP]
	angle := math.Atan2(index.Y-pinky.Y, index.X-pinky.X)
	r := (angle + math.Pi) / (2 * math.Pi)
	if r >= 1 {
		r = 0
	}
	return r
}

// PalmOpenness scales the mean fingertip extension into [0,1].
func PalmOpenness(h *hand.Landmarks) float64 {
	sum := 0.0
	for _, pair := range extensionPairs {
		sum += hand.Distance(h.Points[pair[0]], h.Points[pair[1]])
	}
	return clamp01(sum / float64(len(extensionPairs)) * 3)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
