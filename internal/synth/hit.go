package synth

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

const (
	hitSweepSeconds = 0.1
	hitNoiseSeconds = 0.1
	hitDecaySeconds = 0.3
	hitPeakGain     = 0.8
	hitFloorGain    = 0.01
	hitNoiseCutoff  = 2000
)

// hit is a one-shot percussion transient: a sine sweeping down from four times
// the base frequency plus a high-passed noise burst, under a decaying envelope.
type hit struct {
	start float64
	osc   *Oscillator
	gain  *Param

	noise       []float64
	noiseFilter *biquad.Section
	noisePos    int
}

func newHit(base, now, sampleRate float64, rng *rand.Rand) *hit {
	osc := NewOscillator(Sine, base*4, sampleRate)
	osc.Frequency.ExponentialRampTo(base, now, now+hitSweepSeconds)
	osc.Start()

	gain := NewParam(hitPeakGain)
	gain.ExponentialRampTo(hitFloorGain, now, now+hitDecaySeconds)

	noise := make([]float64, int(sampleRate*hitNoiseSeconds))
	for i := range noise {
		noise[i] = rng.Float64()*2 - 1
	}

	return &hit{
		start:       now,
		osc:         osc,
		gain:        gain,
		noise:       noise,
		noiseFilter: biquad.NewSection(design.Highpass(hitNoiseCutoff, 1/math.Sqrt2, sampleRate)),
	}
}

// done reports whether the hit has finished at time t.
func (h *hit) done(t float64) bool {
	return t >= h.start+hitDecaySeconds
}

func (h *hit) next(t float64) float64 {
	if t < h.start || h.done(t) {
		return 0
	}
	s := h.osc.Next(h.osc.Frequency.ValueAt(t))
	if h.noisePos < len(h.noise) {
		s += h.noiseFilter.ProcessSample(h.noise[h.noisePos])
		h.noisePos++
	}
	return s * h.gain.ValueAt(t)
}
