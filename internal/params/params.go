// Package params holds the smoothed gesture-driven control values and the
// user-adjustable synthesis knobs.
package params

import "github.com/guidoenr/handsynth/internal/gesture"

// Values are the four gesture-driven controls, each in [0,1].
type Values struct {
	Volume    float64 `json:"volume"`
	Pitch     float64 `json:"pitch"`
	Filter    float64 `json:"filter"`
	EffectMix float64 `json:"effectMix"`
}

// Factors are the per-control exponential smoothing weights.
type Factors struct {
	Volume    float64
	Pitch     float64
	Filter    float64
	EffectMix float64
}

// DefaultFactors returns the weights tuned for a ~30 Hz detector.
func DefaultFactors() Factors {
	return Factors{
		Volume:    0.15,
		Pitch:     0.2,
		Filter:    0.15,
		EffectMix: 0.1,
	}
}

// Smoother low-pass filters gesture features into stable control values.
type Smoother struct {
	factors Factors
	current Values
}

// NewSmoother creates a Smoother starting from zero.
func NewSmoother(f Factors) *Smoother {
	return &Smoother{factors: f}
}

// Apply advances every control one frame toward the target derived from state.
//
// Without hands the volume fades toward silence and everything else holds.
// The effect mix only tracks when both hands are visible.
func (s *Smoother) Apply(state gesture.State) Values {
	if state.HandCount == 0 {
		s.current.Volume = Smooth(s.current.Volume, 0, s.factors.Volume)
		return s.current
	}

	s.current.Volume = Smooth(s.current.Volume, clamp(state.HandHeight, 0, 1), s.factors.Volume)
	s.current.Pitch = Smooth(s.current.Pitch, clamp(state.PinchDistance, 0, 1), s.factors.Pitch)
	s.current.Filter = Smooth(s.current.Filter, clamp(state.Rotation, 0, 1), s.factors.Filter)

	if state.HandCount >= 2 {
		s.current.EffectMix = Smooth(s.current.EffectMix, clamp(state.TwoHandsDistance, 0, 1), s.factors.EffectMix)
	}
	return s.current
}

// Current returns the latest smoothed values.
func (s *Smoother) Current() Values {
	return s.current
}

// Reset zeroes every control.
func (s *Smoother) Reset() {
	s.current = Values{}
}

// Smooth moves current toward target by factor (first-order IIR).
func Smooth(current, target, factor float64) float64 {
	return current + (target-current)*factor
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
