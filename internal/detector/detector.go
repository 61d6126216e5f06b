// Package detector produces hand landmark frames from a camera, a synthetic
// generator or any other collaborator, and hands them to a callback once per
// detector cycle.
package detector

import (
	"context"

	"github.com/guidoenr/handsynth/internal/hand"
	"gocv.io/x/gocv"
)

// Detector finds hands in one video frame.
type Detector interface {
	// Detect returns zero, one or two hands. An empty result is not an error.
	Detect(frame *gocv.Mat) ([]hand.Landmarks, error)
	Close() error
}

// Source runs a detector cycle until ctx is done, invoking fn once per cycle.
type Source interface {
	Run(ctx context.Context, fn func([]hand.Landmarks)) error
	Close() error
}

// Config holds detection options forwarded to the MediaPipe service.
type Config struct {
	MaxHands        int
	MinConfidence   float64
	MinTrackingConf float64
	// Script overrides the mediapipe_service.py lookup.
	Script string
	// Python overrides the interpreter lookup.
	Python string
}

// DefaultConfig returns two-hand tracking at 0.5 confidence.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
