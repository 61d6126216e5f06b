// Package control maps smoothed gesture values and knob settings onto the
// signal graph.
package control

import (
	"log"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/guidoenr/handsynth/internal/gesture"
	"github.com/guidoenr/handsynth/internal/hand"
	"github.com/guidoenr/handsynth/internal/params"
	"github.com/guidoenr/handsynth/internal/preset"
	"github.com/guidoenr/handsynth/internal/synth"
)

const (
	gainRamp   = 50 * time.Millisecond
	pitchRamp  = 50 * time.Millisecond
	filterRamp = 50 * time.Millisecond
	mixRamp    = 100 * time.Millisecond

	masterFraction = 0.6

	filterMinHz = 200
	filterMaxHz = 8000

	// DefaultCooldown is the minimum gap between percussion hits.
	DefaultCooldown = 200 * time.Millisecond
	// HitOpenness is the palm openness above which a single hand strikes.
	HitOpenness = 0.7
)

// InputOpener acquires the microphone for voice mode.
type InputOpener func() (synth.InputSource, error)

// Config configures a Controller.
type Config struct {
	Mode      synth.SoundMode
	Knobs     params.Adjustable
	Factors   params.Factors
	Cooldown  time.Duration
	OpenInput InputOpener
	Log       *log.Logger
	// Now is the wall clock used for the percussion cooldown.
	Now func() time.Time
	// Mark, when set, is called after each stage of a detector tick.
	Mark func(section string)
}

// Controller is the single owner of gesture, smoothing and knob state. It is
// not safe for concurrent use; the app loop serializes every call.
type Controller struct {
	engine    *synth.Engine
	log       *log.Logger
	extractor *gesture.Extractor
	smoother  *params.Smoother
	presets   *preset.Machine

	knobs  params.Adjustable
	values params.Values
	mode   synth.SoundMode

	playing   bool
	voiceMode bool
	session   string

	openInput InputOpener
	cooldown  time.Duration
	lastHit   time.Time
	hits      int
	now       func() time.Time
	mark      func(string)
}

// New returns a stopped controller driving engine.
func New(engine *synth.Engine, cfg Config) *Controller {
	if cfg.Mode == "" {
		cfg.Mode = synth.ModeSynth
	}
	if cfg.Knobs == (params.Adjustable{}) {
		cfg.Knobs = params.DefaultAdjustable()
	}
	if cfg.Factors == (params.Factors{}) {
		cfg.Factors = params.DefaultFactors()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stdout, "", log.LstdFlags)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Mark == nil {
		cfg.Mark = func(string) {}
	}

	return &Controller{
		engine:    engine,
		log:       cfg.Log,
		extractor: gesture.NewExtractor(),
		smoother:  params.NewSmoother(cfg.Factors),
		presets:   preset.NewMachine(),
		knobs:     cfg.Knobs,
		mode:      cfg.Mode,
		openInput: cfg.OpenInput,
		cooldown:  cfg.Cooldown,
		now:       cfg.Now,
		mark:      cfg.Mark,
	}
}

// TargetFrequency maps a pitch value in [0,1] onto the mode's frequency range
// and applies the pitch shift in semitones.
func TargetFrequency(mode synth.SoundMode, pitch, shift float64) float64 {
	lo, hi := synth.FrequencyRange(mode)
	return (lo + pitch*(hi-lo)) * math.Pow(2, shift/12)
}

// Start builds the oscillator bank for mode and begins a new session.
func (c *Controller) Start(mode synth.SoundMode) {
	c.mode = mode
	c.playing = true
	c.session = uuid.NewString()
	c.rebuild()
	c.log.Printf("session %s started in %s mode", c.session, mode)
}

func (c *Controller) rebuild() {
	c.engine.Rebuild(c.mode, c.knobs.Harmonics)
	if c.mode == synth.ModePercussion {
		c.UpdatePitch(c.values.Pitch)
	}
}

// Stop silences the graph, releases the microphone and forgets all gesture
// history, including the percussion cooldown.
func (c *Controller) Stop() {
	if err := c.engine.Stop(); err != nil {
		c.log.Printf("release input: %v", err)
	}
	if c.playing {
		c.log.Printf("session %s stopped", c.session)
	}
	c.playing = false
	c.voiceMode = false
	c.lastHit = time.Time{}
	c.extractor.Reset()
	c.smoother.Reset()
	c.values = params.Values{}
}

// SetSoundMode switches the oscillator bank while playing. In voice mode the
// engine records the mode, so hits and the pitch range follow it, but no
// oscillators are built until the microphone is released.
func (c *Controller) SetSoundMode(mode synth.SoundMode) {
	c.mode = mode
	if c.playing {
		c.rebuild()
		c.log.Printf("sound mode %s", mode)
	}
}

// StartVoiceMode routes the microphone through the effects chain in place of
// the oscillators. It reports false, leaving the graph untouched, when the
// input cannot be opened.
func (c *Controller) StartVoiceMode(open InputOpener) bool {
	if c.voiceMode {
		return true
	}
	if open == nil {
		c.log.Println("voice mode: no microphone available")
		return false
	}
	src, err := open()
	if err != nil {
		c.log.Printf("voice mode: %v", err)
		return false
	}
	c.engine.AttachInput(src)
	c.voiceMode = true
	if !c.playing {
		c.playing = true
		c.session = uuid.NewString()
	}
	c.log.Println("voice mode active")
	return true
}

// StopVoiceMode releases the microphone and restores the oscillator bank.
func (c *Controller) StopVoiceMode() {
	if !c.voiceMode {
		return
	}
	if err := c.engine.DetachInput(); err != nil {
		c.log.Printf("release input: %v", err)
	}
	c.voiceMode = false
	if c.playing {
		c.rebuild()
	}
}

// HandleLandmarks runs one detector tick: extraction, smoothing and control,
// synchronously.
func (c *Controller) HandleLandmarks(hands []hand.Landmarks) gesture.State {
	if !c.playing {
		return c.extractor.State()
	}
	state := c.extractor.Update(hands)
	c.mark("extract")
	c.HandleGesture(state)
	return state
}

// HandleGesture smooths state and pushes the result into the graph. Pitch and
// filter follow any visible hand; the effect mix needs two.
func (c *Controller) HandleGesture(state gesture.State) params.Values {
	if !c.playing {
		return c.values
	}
	v := c.smoother.Apply(state)
	c.mark("smooth")

	c.UpdateVolume(v.Volume)
	if state.HandCount >= 1 {
		c.UpdatePitch(v.Pitch)
		c.UpdateFilter(v.Filter)
	}
	if state.HandCount >= 2 {
		c.UpdateEffectMix(v.EffectMix)
	}
	if state.HandCount == 1 && c.mode == synth.ModePercussion && state.PalmOpenness > HitOpenness {
		c.TriggerPercussionHit()
	}
	c.mark("control")
	return c.values
}

// UpdateVolume applies the square-law gain curve; master follows at 0.6.
func (c *Controller) UpdateVolume(value float64) {
	c.values.Volume = value
	gain := value * value
	c.engine.SetGain(gain, gain*masterFraction, gainRamp)
}

// UpdatePitch retunes the oscillators for a pitch value in [0,1].
func (c *Controller) UpdatePitch(value float64) {
	c.values.Pitch = value
	c.engine.SetFrequency(TargetFrequency(c.mode, value, c.knobs.PitchShift), pitchRamp)
}

// UpdateFilter sweeps cutoff and resonance. Presets other than normal own the
// filter, so the gesture is recorded but not applied.
func (c *Controller) UpdateFilter(value float64) {
	c.values.Filter = value
	if !c.presets.IsNormal() {
		return
	}
	freq := filterMinHz + value*(filterMaxHz-filterMinHz)
	c.engine.RampFilter(freq, 1+value*10, filterRamp)
}

// UpdateEffectMix crossfades dry and wet and deepens the echo with the mix.
func (c *Controller) UpdateEffectMix(value float64) {
	c.values.EffectMix = value
	c.engine.RampDryWet(1-value, value, mixRamp)
	c.engine.SetDelay(0.1+value*0.4, 0.2+value*0.5)
}

// UpdatePitchShift sets the shift in semitones and retunes immediately.
func (c *Controller) UpdatePitchShift(semitones float64) {
	c.knobs.PitchShift = semitones
	c.UpdatePitch(c.values.Pitch)
}

// UpdateDistortionAmount rebuilds the waveshaper curve for amount in [0,100].
func (c *Controller) UpdateDistortionAmount(amount float64) {
	c.knobs.Distortion = amount
	c.engine.SetDistortion(amount)
}

// UpdateReverbSize regenerates the impulse response for size in [0,100]. On
// error the previous size stays in effect.
func (c *Controller) UpdateReverbSize(size float64) error {
	if err := c.engine.SetReverbSize(size); err != nil {
		return err
	}
	c.knobs.ReverbSize = size
	return nil
}

// UpdateVibratoSpeed sets the vibrato rate in Hz.
func (c *Controller) UpdateVibratoSpeed(speed float64) {
	c.knobs.VibratoSpeed = speed
	c.engine.SetVibrato(c.knobs.VibratoSpeed, c.knobs.VibratoDepth)
}

// UpdateVibratoDepth sets the vibrato depth in [0,100].
func (c *Controller) UpdateVibratoDepth(depth float64) {
	c.knobs.VibratoDepth = depth
	c.engine.SetVibrato(c.knobs.VibratoSpeed, c.knobs.VibratoDepth)
}

// UpdateHarmonics changes the synth partial count, rebuilding the bank when
// synth mode is sounding.
func (c *Controller) UpdateHarmonics(n int) {
	c.knobs.Harmonics = n
	if c.playing && !c.voiceMode && c.mode == synth.ModeSynth {
		c.engine.Rebuild(synth.ModeSynth, n)
		c.UpdatePitch(c.values.Pitch)
	}
}

// ApplyVoiceEffect selects a preset, then reapplies distortion and vibrato so
// its amounts are heard at once.
func (c *Controller) ApplyVoiceEffect(name string) error {
	if _, err := c.presets.Select(name, &c.knobs, c.engine); err != nil {
		return err
	}
	c.engine.SetDistortion(c.knobs.Distortion)
	c.engine.SetVibrato(c.knobs.VibratoSpeed, c.knobs.VibratoDepth)
	c.log.Printf("voice effect %s", c.presets.Current())
	return nil
}

// TriggerPercussionHit fires one hit unless outside percussion mode or within
// the cooldown of the previous hit.
func (c *Controller) TriggerPercussionHit() bool {
	if !c.playing || c.mode != synth.ModePercussion {
		return false
	}
	now := c.now()
	if !c.lastHit.IsZero() && now.Sub(c.lastHit) <= c.cooldown {
		return false
	}
	if !c.engine.TriggerHit() {
		return false
	}
	c.lastHit = now
	c.hits++
	return true
}

// Parameters returns the values most recently pushed into the graph.
func (c *Controller) Parameters() params.Values {
	return c.values
}

// Knobs returns the adjustable parameters.
func (c *Controller) Knobs() params.Adjustable {
	return c.knobs
}

// Mode returns the selected sound mode.
func (c *Controller) Mode() synth.SoundMode {
	return c.mode
}

// Playing reports whether a session is running.
func (c *Controller) Playing() bool {
	return c.playing
}

// VoiceMode reports whether the microphone replaces the oscillators.
func (c *Controller) VoiceMode() bool {
	return c.voiceMode
}
