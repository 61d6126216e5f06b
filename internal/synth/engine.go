// Package synth implements the audio signal graph: oscillator banks per sound
// mode feeding a shared effects chain (distortion, filter, vibrato, delay with
// feedback, convolution reverb, dry/wet mix) and an analyser tap.
package synth

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/guidoenr/handsynth/internal/analyzer"
)

const (
	// RenderQuantum is the number of frames rendered between parameter,
	// reverb and analyser updates.
	RenderQuantum = 128

	defaultSampleRate = 44_100
	defaultFrequency  = 440
	percussionBase    = 100

	defaultFilterFreq = 2000
	defaultFilterQ    = 1
	defaultDelay      = 0.3
	defaultFeedback   = 0.4
	defaultVibrato    = 5
	defaultReverbSize = 50
)

// Config controls Engine construction.
type Config struct {
	SampleRate     float64
	ConvolverBlock int
	ReverbSize     float64
	FFTSize        int
	Seed           int64
}

// Engine owns every node of the signal graph. Control methods and Render may
// be called from different goroutines; a single mutex serializes them.
type Engine struct {
	mu sync.Mutex

	sampleRate float64
	frames     uint64
	rng        *rand.Rand
	convBlock  int

	mode      SoundMode
	harmonics int
	frequency float64
	voices    []*voice
	hits      []*hit

	input    InputSource
	inputBuf []float32

	inputGain    *Param
	master       *Param
	shaper       *Shaper
	filter       *Biquad
	vibrato      *Oscillator
	vibratoDepth *Param
	delay        *DelayLine
	reverb       *Convolver
	reverbSize   float64
	dry          *Param
	wet          *Param
	tap          *analyzer.Tap

	dryBuf []float64
	wetIn  []float64
	wetL   []float64
	wetR   []float64
	mix    []float64
}

// New builds the effects chain. No oscillators run until Rebuild is called.
func New(cfg Config) (*Engine, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.ConvolverBlock <= 0 {
		cfg.ConvolverBlock = DefaultConvolverBlock
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	sr := cfg.SampleRate
	rng := rand.New(rand.NewSource(cfg.Seed))

	vibrato := NewOscillator(Sine, defaultVibrato, sr)
	vibrato.Start()

	delayLine, err := NewDelayLine(defaultDelay, defaultFeedback, sr)
	if err != nil {
		return nil, fmt.Errorf("delay line: %w", err)
	}
	reverb, err := NewConvolver(GenerateImpulse(sr, cfg.ReverbSize, rng), cfg.ConvolverBlock)
	if err != nil {
		return nil, fmt.Errorf("reverb: %w", err)
	}

	e := &Engine{
		sampleRate:   sr,
		rng:          rng,
		convBlock:    cfg.ConvolverBlock,
		mode:         ModeSynth,
		harmonics:    2,
		frequency:    defaultFrequency,
		inputBuf:     make([]float32, RenderQuantum),
		inputGain:    NewParam(0),
		master:       NewParam(0),
		shaper:       NewShaper(0),
		filter:       NewBiquad(Lowpass, defaultFilterFreq, defaultFilterQ, sr),
		vibrato:      vibrato,
		vibratoDepth: NewParam(0),
		delay:        delayLine,
		reverb:       reverb,
		reverbSize:   cfg.ReverbSize,
		dry:          NewParam(1),
		wet:          NewParam(0),
		tap:          analyzer.New(analyzer.Config{SampleRate: sr, FFTSize: cfg.FFTSize}),
		dryBuf:       make([]float64, RenderQuantum),
		wetIn:        make([]float64, RenderQuantum),
		wetL:         make([]float64, RenderQuantum),
		wetR:         make([]float64, RenderQuantum),
		mix:          make([]float64, RenderQuantum),
	}
	return e, nil
}

// SampleRate returns the rendering sample rate.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// Now returns the audio clock in seconds: frames rendered so far.
func (e *Engine) Now() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nowLocked()
}

func (e *Engine) nowLocked() float64 {
	return float64(e.frames) / e.sampleRate
}

// Rebuild tears down the running oscillator bank and builds the one for mode.
// Teardown finishes before any new node exists, and the filter and delay
// forget the old bank's tail. With an input source attached the mode is
// recorded but no oscillators are built.
func (e *Engine) Rebuild(mode SoundMode, harmonics int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardownLocked()
	e.filter.Reset()
	e.delay.Clear()

	e.mode = mode
	e.harmonics = harmonics
	if mode == ModePercussion {
		e.frequency = percussionBase
	}
	if e.input != nil {
		return
	}
	e.voices = buildVoices(mode, harmonics, e.frequency, e.sampleRate, e.rng)
	for _, v := range e.voices {
		v.start()
	}
}

func (e *Engine) teardownLocked() {
	for _, v := range e.voices {
		v.stop()
	}
	e.voices = nil
}

// Mode returns the active sound mode.
func (e *Engine) Mode() SoundMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Stop halts every oscillator and pending hit, releases the input source and
// fades the output to silence over 100 ms on the audio clock.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardownLocked()
	e.hits = nil

	now := e.nowLocked()
	e.inputGain.LinearRampTo(0, now, now+0.1)
	e.master.LinearRampTo(0, now, now+0.1)

	return e.detachInputLocked()
}

// SetGain ramps the input stage and master output gains.
func (e *Engine) SetGain(gain, master float64, ramp time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowLocked()
	e.inputGain.LinearRampTo(gain, now, now+ramp.Seconds())
	e.master.LinearRampTo(master, now, now+ramp.Seconds())
}

// Gain returns the target input and master gains.
func (e *Engine) Gain() (float64, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inputGain.Target(), e.master.Target()
}

// SetFrequency sets the base frequency and ramps each sustained oscillator to
// it, scaled by the oscillator's harmonic multiplier.
func (e *Engine) SetFrequency(freq float64, ramp time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.frequency = freq
	if e.mode == ModePercussion || e.input != nil {
		return
	}
	now := e.nowLocked()
	for _, v := range e.voices {
		v.osc.Frequency.LinearRampTo(freq*v.multiplier, now, now+ramp.Seconds())
	}
}

// Frequency returns the base frequency.
func (e *Engine) Frequency() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frequency
}

// VoiceFrequencies returns the target frequency of every running oscillator.
func (e *Engine) VoiceFrequencies() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]float64, len(e.voices))
	for i, v := range e.voices {
		out[i] = v.osc.Frequency.Target()
	}
	return out
}

// VoiceCount returns the number of running oscillators.
func (e *Engine) VoiceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// RampFilter ramps the filter cutoff and sets Q immediately.
func (e *Engine) RampFilter(freq, q float64, ramp time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowLocked()
	e.filter.Frequency.LinearRampTo(freq, now, now+ramp.Seconds())
	e.filter.Q.SetValue(q)
}

// SetFilterType switches the filter response.
func (e *Engine) SetFilterType(kind FilterType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter.Type = kind
}

// SetFilterFrequency jumps the cutoff.
func (e *Engine) SetFilterFrequency(freq float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter.Frequency.SetValue(freq)
}

// SetFilterQ jumps the resonance.
func (e *Engine) SetFilterQ(q float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter.Q.SetValue(q)
}

// Filter returns the filter type and target cutoff and Q.
func (e *Engine) Filter() (FilterType, float64, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter.Type, e.filter.Frequency.Target(), e.filter.Q.Target()
}

// RampDryWet crossfades the dry and wet gains.
func (e *Engine) RampDryWet(dry, wet float64, ramp time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowLocked()
	e.dry.LinearRampTo(dry, now, now+ramp.Seconds())
	e.wet.LinearRampTo(wet, now, now+ramp.Seconds())
}

// SetDryWet jumps the dry and wet gains.
func (e *Engine) SetDryWet(dry, wet float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dry.SetValue(dry)
	e.wet.SetValue(wet)
}

// DryWet returns the target dry and wet gains.
func (e *Engine) DryWet() (float64, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dry.Target(), e.wet.Target()
}

// SetDelay jumps the delay time (seconds) and feedback gain.
func (e *Engine) SetDelay(seconds, feedback float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay.Time.SetValue(seconds)
	e.delay.Feedback.SetValue(feedback)
}

// Delay returns the target delay time and feedback gain.
func (e *Engine) Delay() (float64, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delay.Time.Target(), e.delay.Feedback.Target()
}

// SetDistortion recomputes the waveshaper curve for amount in [0,100].
func (e *Engine) SetDistortion(amount float64) {
	curve := DistortionCurve(amount)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shaper.SetCurve(curve)
}

// Shape runs x through the current distortion curve.
func (e *Engine) Shape(x float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shaper.Apply(x)
}

// SetVibrato sets the vibrato rate in Hz and its depth in [0,100]; depth maps
// to a frequency deviation of depth/10 Hz.
func (e *Engine) SetVibrato(speed, depth float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vibrato.Frequency.SetValue(speed)
	e.vibratoDepth.SetValue(depth / 10)
}

// Vibrato returns the vibrato rate and frequency deviation.
func (e *Engine) Vibrato() (float64, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vibrato.Frequency.Target(), e.vibratoDepth.Target()
}

// SetReverbSize regenerates the impulse response for size in [0,100] and swaps
// the convolver. The old convolver is detached before the new one is wired.
// On error the current convolver stays in place.
func (e *Engine) SetReverbSize(size float64) error {
	e.mu.Lock()
	seed := e.rng.Int63()
	e.mu.Unlock()

	ir := GenerateImpulse(e.sampleRate, size, rand.New(rand.NewSource(seed)))
	conv, err := NewConvolver(ir, e.convBlock)
	if err != nil {
		return fmt.Errorf("reverb size %.0f: %w", size, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.reverb.Disconnect()
	e.reverb = conv
	e.reverbSize = size
	return nil
}

// ReverbLength returns the active impulse length in samples.
func (e *Engine) ReverbLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reverb.Length()
}

// TriggerHit schedules a percussion transient at the current base frequency.
// It returns false outside percussion mode.
func (e *Engine) TriggerHit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModePercussion {
		return false
	}
	e.hits = append(e.hits, newHit(e.frequency, e.nowLocked(), e.sampleRate, e.rng))
	return true
}

// ActiveHits returns the number of percussion transients still sounding.
func (e *Engine) ActiveHits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.hits)
}

// AttachInput replaces the oscillator bank with src.
func (e *Engine) AttachInput(src InputSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
	e.input = src
}

// DetachInput disconnects and closes the input source, if any.
func (e *Engine) DetachInput() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detachInputLocked()
}

func (e *Engine) detachInputLocked() error {
	if e.input == nil {
		return nil
	}
	src := e.input
	e.input = nil
	return src.Close()
}

// HasInput reports whether an input source is attached.
func (e *Engine) HasInput() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input != nil
}

// Analyse returns the analyser view of the most recent output.
func (e *Engine) Analyse() analyzer.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tap.Analyse()
}

// Render fills out with interleaved stereo frames and advances the clock.
func (e *Engine) Render(out []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	frames := len(out) / 2
	for done := 0; done < frames; {
		n := frames - done
		if n > RenderQuantum {
			n = RenderQuantum
		}
		e.renderQuantum(out[done*2 : (done+n)*2])
		done += n
	}
}

func (e *Engine) renderQuantum(out []float32) {
	n := len(out) / 2

	if e.input != nil {
		got := e.input.Read(e.inputBuf[:n])
		for i := got; i < n; i++ {
			e.inputBuf[i] = 0
		}
	}

	for i := 0; i < n; i++ {
		t := float64(e.frames+uint64(i)) / e.sampleRate

		vib := e.vibrato.Next(e.vibrato.Frequency.ValueAt(t)) * e.vibratoDepth.ValueAt(t)

		src := 0.0
		for _, v := range e.voices {
			src += v.next(t, vib)
		}
		for _, h := range e.hits {
			src += h.next(t)
		}
		if e.input != nil {
			src += float64(e.inputBuf[i])
		}

		x := src * e.inputGain.ValueAt(t)
		x = e.shaper.Apply(x)
		x = e.filter.Process(x, t)

		e.dryBuf[i] = x * e.dry.ValueAt(t)
		e.wetIn[i] = e.delay.Process(x, t)
	}

	if err := e.reverb.Process(e.wetIn[:n], e.wetL[:n], e.wetR[:n]); err != nil {
		// A failed convolver leaves the wet path silent.
		e.reverb.Disconnect()
		clear(e.wetL[:n])
		clear(e.wetR[:n])
	}

	for i := 0; i < n; i++ {
		t := float64(e.frames+uint64(i)) / e.sampleRate
		w := e.wet.ValueAt(t)
		l := e.dryBuf[i] + e.wetL[i]*w
		r := e.dryBuf[i] + e.wetR[i]*w
		e.mix[i] = (l + r) / 2

		g := e.master.ValueAt(t)
		out[2*i] = float32(l * g)
		out[2*i+1] = float32(r * g)
	}
	e.tap.Write(e.mix[:n])

	e.frames += uint64(n)

	end := e.nowLocked()
	live := e.hits[:0]
	for _, h := range e.hits {
		if !h.done(end) {
			live = append(live, h)
		}
	}
	e.hits = live
}
