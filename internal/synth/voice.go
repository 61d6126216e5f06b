package synth

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// SoundMode selects which oscillator bank drives the effects chain.
type SoundMode string

const (
	ModeSynth      SoundMode = "synth"
	ModeAmbient    SoundMode = "ambient"
	ModeTheremin   SoundMode = "theremin"
	ModeChoir      SoundMode = "choir"
	ModePercussion SoundMode = "percussion"
)

// ErrUnknownMode is returned for sound mode names outside ModeNames.
var ErrUnknownMode = errors.New("unknown sound mode")

var modeNames = []SoundMode{ModeSynth, ModeAmbient, ModeTheremin, ModeChoir, ModePercussion}

// ModeNames returns the supported sound modes in selector order.
func ModeNames() []SoundMode {
	out := make([]SoundMode, len(modeNames))
	copy(out, modeNames)
	return out
}

// ParseSoundMode maps a name onto a SoundMode.
func ParseSoundMode(name string) (SoundMode, error) {
	mode := SoundMode(strings.ToLower(strings.TrimSpace(name)))
	for _, m := range modeNames {
		if m == mode {
			return m, nil
		}
	}
	return ModeSynth, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// FrequencyRange returns the pitch range in Hz a fully closed/open pinch maps to.
func FrequencyRange(mode SoundMode) (float64, float64) {
	if mode == ModePercussion {
		return 60, 400
	}
	return 220, 880
}

var ambientRatios = [6]float64{1, 1.5, 2, 2.5, 3, 4}

const (
	synthLevel      = 0.3
	ambientLevel    = 0.1
	ambientLFOBase  = 0.1
	ambientLFOStep  = 0.05
	ambientLFODepth = 15 // Hz
	choirVoices     = 8
	choirLevel      = 0.1
	choirDetune     = 20 // cents, peak to peak
	choirLFODepth   = 0.05
)

// voice is one oscillator of a sound mode plus its private modulators.
type voice struct {
	osc        *Oscillator
	level      float64
	multiplier float64
	vibrato    bool

	freqLFO   *Oscillator
	freqDepth float64
	ampLFO    *Oscillator
	ampDepth  float64
}

func (v *voice) start() {
	v.osc.Start()
	if v.freqLFO != nil {
		v.freqLFO.Start()
	}
	if v.ampLFO != nil {
		v.ampLFO.Start()
	}
}

func (v *voice) stop() {
	v.osc.Stop()
	if v.freqLFO != nil {
		v.freqLFO.Stop()
	}
	if v.ampLFO != nil {
		v.ampLFO.Stop()
	}
}

func (v *voice) next(t, vibrato float64) float64 {
	f := v.osc.Frequency.ValueAt(t)
	if v.vibrato {
		f += vibrato
	}
	if v.freqLFO != nil {
		f += v.freqLFO.Next(v.freqLFO.Frequency.ValueAt(t)) * v.freqDepth
	}
	level := v.level
	if v.ampLFO != nil {
		level += v.ampLFO.Next(v.ampLFO.Frequency.ValueAt(t)) * v.ampDepth
	}
	return v.osc.Next(f) * level
}

// buildVoices creates (but does not start) the oscillator bank for mode.
func buildVoices(mode SoundMode, harmonics int, freq, sampleRate float64, rng *rand.Rand) []*voice {
	switch mode {
	case ModeSynth:
		if harmonics < 1 {
			harmonics = 1
		}
		voices := make([]*voice, 0, harmonics)
		for i := 0; i < harmonics; i++ {
			wave := Sine
			if i == 0 {
				wave = Sawtooth
			}
			mult := float64(i + 1)
			voices = append(voices, &voice{
				osc:        NewOscillator(wave, freq*mult, sampleRate),
				level:      synthLevel / mult,
				multiplier: mult,
				vibrato:    true,
			})
		}
		return voices

	case ModeAmbient:
		voices := make([]*voice, 0, len(ambientRatios))
		for i, ratio := range ambientRatios {
			wave := Sine
			if i%2 == 1 {
				wave = Triangle
			}
			voices = append(voices, &voice{
				osc:        NewOscillator(wave, freq*ratio, sampleRate),
				level:      ambientLevel / float64(i+1),
				multiplier: ratio,
				freqLFO:    NewOscillator(Sine, ambientLFOBase+float64(i)*ambientLFOStep, sampleRate),
				freqDepth:  ambientLFODepth,
			})
		}
		return voices

	case ModeTheremin:
		return []*voice{{
			osc:        NewOscillator(Sine, freq, sampleRate),
			level:      1,
			multiplier: 1,
			vibrato:    true,
		}}

	case ModeChoir:
		voices := make([]*voice, 0, choirVoices)
		for i := 0; i < choirVoices; i++ {
			osc := NewOscillator(Sine, freq, sampleRate)
			osc.SetDetune((rng.Float64() - 0.5) * choirDetune)
			voices = append(voices, &voice{
				osc:        osc,
				level:      choirLevel,
				multiplier: 1,
				ampLFO:     NewOscillator(Sine, 0.5+rng.Float64()*0.5, sampleRate),
				ampDepth:   choirLFODepth,
			})
		}
		return voices
	}

	// percussion has no sustained voices
	return nil
}
