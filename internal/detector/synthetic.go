package detector

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/guidoenr/handsynth/internal/hand"
)

// Synthetic sweeps canned hand poses through slow periodic motion so the
// synthesizer can be played without a camera.
type Synthetic struct {
	rng *rand.Rand
	fps int

	phaseHeight float64
	phasePinch  float64
	phaseRoll   float64
	phaseSpread float64
}

// NewSynthetic returns a generator ticking at fps. A zero seed uses the clock.
func NewSynthetic(fps int, seed int64) *Synthetic {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthetic{rng: rand.New(rand.NewSource(seed)), fps: fps}
}

// Next advances the motion by delta seconds and returns the visible hands.
func (s *Synthetic) Next(delta float64) []hand.Landmarks {
	s.phaseHeight += delta * 0.7
	s.phasePinch += delta * 1.1
	s.phaseRoll += delta * 0.5
	s.phaseSpread += delta * 0.2

	jitter := func() float64 { return (s.rng.Float64() - 0.5) * 0.01 }

	pinch := 0.5 + 0.5*math.Sin(s.phasePinch)
	primary := hand.Blend(hand.OpenPalm(), hand.Pinch(), pinch)
	primary = roll(primary, 0.4*math.Sin(s.phaseRoll))
	primary = primary.Translate(0.15+jitter(), 0.25*math.Sin(s.phaseHeight)+jitter(), 0)

	if math.Sin(s.phaseSpread) <= 0 {
		return []hand.Landmarks{primary}
	}

	spread := 0.1 + 0.3*math.Sin(s.phaseSpread)
	second := mirror(hand.OpenPalm())
	second = second.Translate(-spread+jitter(), 0.1*math.Sin(s.phaseHeight*1.3)+jitter(), 0)
	return []hand.Landmarks{primary, second}
}

// Run emits one frame per tick until ctx is done.
func (s *Synthetic) Run(ctx context.Context, fn func([]hand.Landmarks)) error {
	interval := time.Second / time.Duration(s.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			delta := now.Sub(last).Seconds()
			last = now
			fn(s.Next(delta))
		}
	}
}

// Close is a no-op.
func (s *Synthetic) Close() error {
	return nil
}

// roll rotates h about its wrist in the image plane.
func roll(h hand.Landmarks, angle float64) hand.Landmarks {
	pivot := h.Points[hand.Wrist]
	sin, cos := math.Sincos(angle)
	for i, p := range h.Points {
		dx, dy := p.X-pivot.X, p.Y-pivot.Y
		h.Points[i].X = pivot.X + dx*cos - dy*sin
		h.Points[i].Y = pivot.Y + dx*sin + dy*cos
	}
	return h
}

// mirror reflects h across its wrist's vertical axis and flips handedness.
func mirror(h hand.Landmarks) hand.Landmarks {
	pivot := h.Points[hand.Wrist].X
	for i := range h.Points {
		h.Points[i].X = 2*pivot - h.Points[i].X
	}
	h.Handedness = "Left"
	return h
}
