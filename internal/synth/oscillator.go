package synth

import "math"

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Sawtooth
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	default:
		return "sine"
	}
}

// Oscillator is a phase-accumulating periodic source.
type Oscillator struct {
	Wave      Waveform
	Frequency *Param

	detuneRatio float64
	sampleRate  float64
	phase       float64
	running     bool
}

// NewOscillator returns a stopped oscillator at freq Hz.
func NewOscillator(wave Waveform, freq, sampleRate float64) *Oscillator {
	return &Oscillator{
		Wave:        wave,
		Frequency:   NewParam(freq),
		detuneRatio: 1,
		sampleRate:  sampleRate,
	}
}

// SetDetune offsets the pitch by cents.
func (o *Oscillator) SetDetune(cents float64) {
	o.detuneRatio = math.Pow(2, cents/1200)
}

// Start begins producing samples.
func (o *Oscillator) Start() {
	o.running = true
}

// Stop silences the oscillator. Stopping a stopped oscillator is a no-op.
func (o *Oscillator) Stop() {
	o.running = false
}

// Running reports whether the oscillator is producing samples.
func (o *Oscillator) Running() bool {
	return o.running
}

// Next renders one sample at freq Hz (before detune) and advances the phase.
func (o *Oscillator) Next(freq float64) float64 {
	if !o.running {
		return 0
	}
	s := shape(o.Wave, o.phase)
	o.phase += freq * o.detuneRatio / o.sampleRate
	o.phase -= math.Floor(o.phase)
	return s
}

func shape(w Waveform, phase float64) float64 {
	switch w {
	case Sawtooth:
		return 2*phase - 1
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
