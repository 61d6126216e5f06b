// Package analyzer taps the rendered output and exposes waveform and spectrum
// views of it, the way an analyser node feeds a visualizer.
package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	DefaultFFTSize = 2048

	minDecibels     = -100.0
	maxDecibels     = -30.0
	smoothingFactor = 0.8
)

// Config controls Tap behavior.
type Config struct {
	SampleRate float64
	FFTSize    int
}

// Snapshot is one analysis of the most recent FFTSize samples.
type Snapshot struct {
	Waveform []byte   `json:"waveform"`
	Spectrum []byte   `json:"spectrum"`
	Features Features `json:"features"`
}

// Tap keeps a ring of the latest output samples. It is not safe for concurrent
// use; the owner serializes Write and Analyse.
type Tap struct {
	sampleRate float64
	size       int

	ring  []float64
	index int

	window    []float64
	scratch   []float64
	smoothed  []float64
	levelPeak float64
}

// New creates a Tap. FFTSize is rounded up to a power of two.
func New(cfg Config) *Tap {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = DefaultFFTSize
	}
	size := nextPow2(cfg.FFTSize)
	if size < 32 {
		size = 32
	}
	return &Tap{
		sampleRate: cfg.SampleRate,
		size:       size,
		ring:       make([]float64, size),
		window:     window.Hann(size),
		scratch:    make([]float64, size),
		smoothed:   make([]float64, size/2),
	}
}

// Size returns the analysis window length in samples.
func (t *Tap) Size() int {
	return t.size
}

// Write appends samples to the ring, overwriting the oldest.
func (t *Tap) Write(samples []float64) {
	if len(samples) >= t.size {
		copy(t.ring, samples[len(samples)-t.size:])
		t.index = 0
		return
	}
	for _, s := range samples {
		t.ring[t.index] = s
		t.index++
		if t.index == t.size {
			t.index = 0
		}
	}
}

// Reset clears the ring and the spectral smoothing history.
func (t *Tap) Reset() {
	for i := range t.ring {
		t.ring[i] = 0
	}
	for i := range t.smoothed {
		t.smoothed[i] = 0
	}
	t.index = 0
	t.levelPeak = 0
}

// TimeDomain writes the ring, oldest first, as unsigned bytes centred on 128.
func (t *Tap) TimeDomain(dst []byte) []byte {
	if cap(dst) < t.size {
		dst = make([]byte, t.size)
	}
	dst = dst[:t.size]
	t.ordered(t.scratch)
	for i, s := range t.scratch {
		dst[i] = byte(clamp(128*(1+s), 0, 255))
	}
	return dst
}

// Analyse computes waveform, smoothed spectrum and display features.
func (t *Tap) Analyse() Snapshot {
	snap := Snapshot{Waveform: t.TimeDomain(nil)}

	t.ordered(t.scratch)
	windowed := make([]float64, t.size)
	sumSq := 0.0
	for i, s := range t.scratch {
		sumSq += s * s
		windowed[i] = s * t.window[i]
	}
	spectrum := fft.FFTReal(windowed)

	bins := t.size / 2
	snap.Spectrum = make([]byte, bins)
	mags := make([]float64, bins)
	for k := 0; k < bins; k++ {
		mags[k] = cmag(spectrum[k]) / float64(t.size)
		t.smoothed[k] = smoothingFactor*t.smoothed[k] + (1-smoothingFactor)*mags[k]
		snap.Spectrum[k] = decibelByte(t.smoothed[k])
	}

	rms := math.Sqrt(sumSq / float64(t.size))
	t.levelPeak = envelope(t.levelPeak, math.Min(1, rms*math.Sqrt2), 0.6, 0.9)

	resolution := t.sampleRate / float64(t.size)
	snap.Features = Features{
		Level:  t.levelPeak,
		Bass:   bandEnergy(mags, resolution, 20, 250),
		Mid:    bandEnergy(mags, resolution, 250, 2000),
		Treble: bandEnergy(mags, resolution, 2000, 8000),
	}
	return snap
}

func (t *Tap) ordered(dst []float64) {
	n := copy(dst, t.ring[t.index:])
	copy(dst[n:], t.ring[:t.index])
}

// bandEnergy returns the loudest normalized bin between minHz and maxHz. A full
// scale sine inside the band reads close to 1.
func bandEnergy(mags []float64, resolution float64, minHz, maxHz float64) float64 {
	if minHz >= maxHz {
		return 0
	}
	lo := int(math.Floor(minHz / resolution))
	hi := int(math.Ceil(maxHz/resolution)) + 1
	if hi > len(mags) {
		hi = len(mags)
	}
	if lo >= hi {
		return 0
	}
	peak := 0.0
	for _, m := range mags[lo:hi] {
		peak = math.Max(peak, m)
	}
	// Hann coherent gain is 0.5 and a real sine splits between +f and -f.
	return clamp(peak*4, 0, 1)
}

func decibelByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
	return byte(clamp(scaled, 0, 255))
}

func envelope(current, input, attack, release float64) float64 {
	if input > current {
		return current*attack + input*(1-attack)
	}
	return current * release
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
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
