package synth

import "math"

// CurveSize is the number of points in a distortion transfer curve.
const CurveSize = 44100

// DistortionCurve builds the waveshaper transfer curve for amount in [0,100].
// Zero yields the identity; larger amounts saturate harder.
func DistortionCurve(amount float64) []float64 {
	curve := make([]float64, CurveSize)
	intensity := amount / 100
	deg := math.Pi / 180

	for i := range curve {
		x := float64(i*2)/CurveSize - 1
		if intensity == 0 {
			curve[i] = x
			continue
		}
		curve[i] = ((3 + intensity) * x * 20 * deg) / (math.Pi + intensity*math.Abs(x))
	}
	return curve
}

// Shaper maps samples through a transfer curve with linear interpolation.
type Shaper struct {
	curve []float64
}

// NewShaper returns a shaper for the given distortion amount.
func NewShaper(amount float64) *Shaper {
	return &Shaper{curve: DistortionCurve(amount)}
}

// SetCurve replaces the transfer curve.
func (s *Shaper) SetCurve(curve []float64) {
	s.curve = curve
}

// Apply shapes x; inputs outside [-1,1] take the curve's end values.
func (s *Shaper) Apply(x float64) float64 {
	n := len(s.curve)
	if n == 0 {
		return x
	}
	pos := (x + 1) * float64(n-1) / 2
	if pos <= 0 {
		return s.curve[0]
	}
	if pos >= float64(n-1) {
		return s.curve[n-1]
	}
	i := int(pos)
	frac := pos - float64(i)
	return s.curve[i] + (s.curve[i+1]-s.curve[i])*frac
}
