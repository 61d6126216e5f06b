package control

import (
	"errors"
	"fmt"

	"github.com/guidoenr/handsynth/internal/gesture"
	"github.com/guidoenr/handsynth/internal/params"
	"github.com/guidoenr/handsynth/internal/synth"
)

// Actions accepted by Execute.
const (
	ActionStart  = "start"
	ActionStop   = "stop"
	ActionMode   = "mode"
	ActionEffect = "effect"
	ActionVoice  = "voice"
	ActionKnob   = "knob"
	ActionHit    = "hit"
)

// Knob names accepted by ActionKnob.
const (
	KnobPitchShift   = "pitchShift"
	KnobDistortion   = "distortion"
	KnobReverbSize   = "reverbSize"
	KnobVibratoSpeed = "vibratoSpeed"
	KnobVibratoDepth = "vibratoDepth"
	KnobHarmonics    = "harmonics"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownKnob   = errors.New("unknown knob")
	ErrVoiceMode     = errors.New("voice mode unavailable")
)

// KnobNames lists the adjustable knobs in panel order.
func KnobNames() []string {
	return []string{KnobPitchShift, KnobDistortion, KnobReverbSize, KnobVibratoSpeed, KnobVibratoDepth, KnobHarmonics}
}

// Command is one control-surface request, from the keyboard or HTTP.
type Command struct {
	Action string  `json:"action"`
	Mode   string  `json:"mode,omitempty"`
	Effect string  `json:"effect,omitempty"`
	Knob   string  `json:"knob,omitempty"`
	Value  float64 `json:"value,omitempty"`
	// Relative adds Value to the knob instead of replacing it.
	Relative bool `json:"relative,omitempty"`
	// On selects the voice mode state; nil toggles it.
	On *bool `json:"on,omitempty"`
}

// Status is a read-only view of the controller for display.
type Status struct {
	Session   string            `json:"session"`
	Playing   bool              `json:"playing"`
	VoiceMode bool              `json:"voiceMode"`
	Mode      synth.SoundMode   `json:"mode"`
	Effect    string            `json:"effect"`
	Gesture   gesture.State     `json:"gesture"`
	Params    params.Values     `json:"params"`
	Knobs     params.Adjustable `json:"knobs"`
	Frequency float64           `json:"frequency"`
	Voices    int               `json:"voices"`
	Hits      int               `json:"hits"`
}

// Execute applies cmd.
func (c *Controller) Execute(cmd Command) error {
	switch cmd.Action {
	case ActionStart:
		mode := c.mode
		if cmd.Mode != "" {
			m, err := synth.ParseSoundMode(cmd.Mode)
			if err != nil {
				return err
			}
			mode = m
		}
		c.Start(mode)
	case ActionStop:
		c.Stop()
	case ActionMode:
		mode, err := synth.ParseSoundMode(cmd.Mode)
		if err != nil {
			return err
		}
		c.SetSoundMode(mode)
	case ActionEffect:
		return c.ApplyVoiceEffect(cmd.Effect)
	case ActionVoice:
		on := !c.voiceMode
		if cmd.On != nil {
			on = *cmd.On
		}
		if !on {
			c.StopVoiceMode()
			return nil
		}
		if !c.StartVoiceMode(c.openInput) {
			return ErrVoiceMode
		}
	case ActionKnob:
		return c.setKnob(cmd.Knob, cmd.Value, cmd.Relative)
	case ActionHit:
		c.TriggerPercussionHit()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return nil
}

func (c *Controller) setKnob(name string, value float64, relative bool) error {
	k := c.knobs
	switch name {
	case KnobPitchShift:
		if relative {
			value += k.PitchShift
		}
		c.UpdatePitchShift(value)
	case KnobDistortion:
		if relative {
			value += k.Distortion
		}
		c.UpdateDistortionAmount(value)
	case KnobReverbSize:
		if relative {
			value += k.ReverbSize
		}
		return c.UpdateReverbSize(value)
	case KnobVibratoSpeed:
		if relative {
			value += k.VibratoSpeed
		}
		c.UpdateVibratoSpeed(value)
	case KnobVibratoDepth:
		if relative {
			value += k.VibratoDepth
		}
		c.UpdateVibratoDepth(value)
	case KnobHarmonics:
		if relative {
			value += float64(k.Harmonics)
		}
		c.UpdateHarmonics(int(value))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKnob, name)
	}
	return nil
}

// Status snapshots the controller.
func (c *Controller) Status() Status {
	return Status{
		Session:   c.session,
		Playing:   c.playing,
		VoiceMode: c.voiceMode,
		Mode:      c.mode,
		Effect:    c.presets.Current(),
		Gesture:   c.extractor.State(),
		Params:    c.values,
		Knobs:     c.knobs,
		Frequency: c.engine.Frequency(),
		Voices:    c.engine.VoiceCount(),
		Hits:      c.hits,
	}
}
