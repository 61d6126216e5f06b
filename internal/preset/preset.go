// Package preset holds the named voice effects and applies them to the
// adjustable knobs and the signal graph.
package preset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guidoenr/handsynth/internal/params"
	"github.com/guidoenr/handsynth/internal/synth"
)

// ErrUnknownPreset is returned by Select for names outside Names.
var ErrUnknownPreset = errors.New("unknown voice effect")

// Normal is the preset selected at startup.
const Normal = "normal"

// Preset is a partial overwrite of the knobs and graph. Nil fields are left
// alone. Reset restores the normal baseline before anything else is applied.
type Preset struct {
	Name  string
	Reset bool

	PitchShift   *float64
	Distortion   *float64
	VibratoSpeed *float64
	VibratoDepth *float64
	ReverbSize   *float64

	FilterType      *synth.FilterType
	FilterFrequency *float64
	FilterQ         *float64

	DelayTime *float64
	Feedback  *float64
	Wet       *float64
	Dry       *float64
}

// Graph is the part of the signal graph a preset writes to.
type Graph interface {
	SetFilterType(kind synth.FilterType)
	SetFilterFrequency(freq float64)
	SetFilterQ(q float64)
	SetDelay(seconds, feedback float64)
	Delay() (float64, float64)
	SetDryWet(dry, wet float64)
	DryWet() (float64, float64)
	SetReverbSize(size float64) error
}

func num(v float64) *float64 { return &v }

func filter(kind synth.FilterType) *synth.FilterType { return &kind }

var table = []Preset{
	{Name: Normal, Reset: true},
	{
		Name:            "robot",
		PitchShift:      num(-2),
		Distortion:      num(40),
		VibratoSpeed:    num(0),
		FilterType:      filter(synth.Bandpass),
		FilterFrequency: num(800),
		FilterQ:         num(10),
	},
	{
		Name:            "chipmunk",
		PitchShift:      num(12),
		Distortion:      num(0),
		FilterType:      filter(synth.Highpass),
		FilterFrequency: num(500),
	},
	{
		Name:            "monster",
		PitchShift:      num(-12),
		Distortion:      num(60),
		VibratoSpeed:    num(3),
		VibratoDepth:    num(50),
		FilterType:      filter(synth.Lowpass),
		FilterFrequency: num(300),
	},
	{
		Name:            "alien",
		PitchShift:      num(7),
		Distortion:      num(30),
		VibratoSpeed:    num(15),
		VibratoDepth:    num(80),
		FilterType:      filter(synth.Bandpass),
		FilterFrequency: num(1500),
	},
	{
		Name:      "echo",
		DelayTime: num(0.5),
		Feedback:  num(0.7),
		Wet:       num(0.8),
		Dry:       num(0.5),
	},
	{
		Name:            "underwater",
		FilterType:      filter(synth.Lowpass),
		FilterFrequency: num(400),
		FilterQ:         num(5),
		ReverbSize:      num(80),
		Wet:             num(0.7),
	},
	{
		Name:            "telephone",
		FilterType:      filter(synth.Bandpass),
		FilterFrequency: num(1000),
		FilterQ:         num(2),
		Distortion:      num(20),
	},
}

// Names lists the presets in selector order.
func Names() []string {
	out := make([]string, len(table))
	for i, p := range table {
		out[i] = p.Name
	}
	return out
}

// Lookup returns the preset called name.
func Lookup(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range table {
		if p.Name == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Machine tracks the selected preset.
type Machine struct {
	current string
}

// NewMachine starts on the normal preset.
func NewMachine() *Machine {
	return &Machine{current: Normal}
}

// Current returns the name of the selected preset.
func (m *Machine) Current() string {
	return m.current
}

// Select applies the named preset to knobs and g and makes it current. On an
// unknown name nothing changes.
func (m *Machine) Select(name string, knobs *params.Adjustable, g Graph) (Preset, error) {
	p, err := Lookup(name)
	if err != nil {
		return Preset{}, err
	}
	if err := p.Apply(knobs, g); err != nil {
		return Preset{}, err
	}
	m.current = p.Name
	return p, nil
}

// IsNormal reports whether the normal preset is selected. Gesture filter
// control is only active under it.
func (m *Machine) IsNormal() bool {
	return m.current == Normal
}

// Apply writes the preset's fields into knobs and g. Only a failed reverb
// rebuild is reported; every other field is already written by then.
func (p Preset) Apply(knobs *params.Adjustable, g Graph) error {
	if p.Reset {
		g.SetFilterType(synth.Lowpass)
		g.SetFilterFrequency(2000)
		g.SetFilterQ(1)
		knobs.PitchShift = 0
		knobs.Distortion = 0
		knobs.VibratoSpeed = 5
		knobs.VibratoDepth = 0
	}

	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&knobs.PitchShift, p.PitchShift)
	set(&knobs.Distortion, p.Distortion)
	set(&knobs.VibratoSpeed, p.VibratoSpeed)
	set(&knobs.VibratoDepth, p.VibratoDepth)

	if p.FilterType != nil {
		g.SetFilterType(*p.FilterType)
	}
	if p.FilterFrequency != nil {
		g.SetFilterFrequency(*p.FilterFrequency)
	}
	if p.FilterQ != nil {
		g.SetFilterQ(*p.FilterQ)
	}

	if p.DelayTime != nil || p.Feedback != nil {
		delay, feedback := g.Delay()
		set(&delay, p.DelayTime)
		set(&feedback, p.Feedback)
		g.SetDelay(delay, feedback)
	}
	if p.Dry != nil || p.Wet != nil {
		dry, wet := g.DryWet()
		set(&dry, p.Dry)
		set(&wet, p.Wet)
		g.SetDryWet(dry, wet)
	}

	if p.ReverbSize != nil {
		if err := g.SetReverbSize(*p.ReverbSize); err != nil {
			return fmt.Errorf("preset %s: %w", p.Name, err)
		}
		knobs.ReverbSize = *p.ReverbSize
	}
	return nil
}
