package synth

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// FilterType selects the biquad response.
type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
)

func (f FilterType) String() string {
	switch f {
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	default:
		return "lowpass"
	}
}

// ParseFilterType maps a name onto a FilterType.
func ParseFilterType(name string) (FilterType, error) {
	switch strings.ToLower(name) {
	case "lowpass":
		return Lowpass, nil
	case "highpass":
		return Highpass, nil
	case "bandpass":
		return Bandpass, nil
	}
	return Lowpass, fmt.Errorf("unknown filter type %q", name)
}

// Biquad runs one second-order section whose coefficients follow the ramped
// Frequency and Q. Coefficients are redesigned only when type, frequency or Q
// change.
type Biquad struct {
	Type      FilterType
	Frequency *Param
	Q         *Param

	sampleRate float64
	section    *biquad.Section

	lastType FilterType
	lastFreq float64
	lastQ    float64
	primed   bool
}

// NewBiquad returns a filter with the given response.
func NewBiquad(kind FilterType, freq, q, sampleRate float64) *Biquad {
	return &Biquad{
		Type:       kind,
		Frequency:  NewParam(freq),
		Q:          NewParam(q),
		sampleRate: sampleRate,
		section:    biquad.NewSection(biquad.Coefficients{B0: 1}),
	}
}

// Process filters one sample at time t.
func (b *Biquad) Process(x, t float64) float64 {
	f := b.Frequency.ValueAt(t)
	q := b.Q.ValueAt(t)
	if !b.primed || f != b.lastFreq || q != b.lastQ || b.Type != b.lastType {
		b.lastType, b.lastFreq, b.lastQ, b.primed = b.Type, f, q, true
		b.section.Coefficients = sectionCoefficients(b.Type, f, q, b.sampleRate)
	}
	return b.section.ProcessSample(x)
}

// Reset clears the section state; the coefficients are kept.
func (b *Biquad) Reset() {
	b.section.Reset()
}

// sectionCoefficients designs the section for kind at freq Hz. freq is kept inside
// (0, nyquist) and q above zero. The bandpass is scaled to a 0 dB peak.
func sectionCoefficients(kind FilterType, freq, q, sampleRate float64) biquad.Coefficients {
	nyquist := sampleRate / 2
	f := math.Min(math.Max(freq, 1), nyquist*0.999)
	if q <= 0 {
		q = 1e-4
	}

	switch kind {
	case Highpass:
		return design.Highpass(f, q, sampleRate)
	case Bandpass:
		c := design.Bandpass(f, q, sampleRate)
		c.B0 /= q
		c.B2 /= q
		return c
	default:
		return design.Lowpass(f, q, sampleRate)
	}
}
