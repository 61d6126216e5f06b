package app

import (
	"github.com/eiannone/keyboard"
	"github.com/guidoenr/handsynth/internal/control"
	"github.com/guidoenr/handsynth/internal/preset"
	"github.com/guidoenr/handsynth/internal/synth"
)

// actionQuit never reaches the controller; the app loop exits on it.
const actionQuit = "quit"

var effectKeys = map[rune]string{
	'n': preset.Normal,
	'r': "robot",
	'c': "chipmunk",
	'm': "monster",
	'a': "alien",
	'e': "echo",
	'u': "underwater",
	't': "telephone",
}

type knobStep struct {
	knob  string
	delta float64
}

var knobKeys = map[rune]knobStep{
	'[':  {control.KnobPitchShift, -1},
	']':  {control.KnobPitchShift, 1},
	'-':  {control.KnobDistortion, -10},
	'=':  {control.KnobDistortion, 10},
	',':  {control.KnobReverbSize, -10},
	'.':  {control.KnobReverbSize, 10},
	'9':  {control.KnobVibratoSpeed, -1},
	'0':  {control.KnobVibratoSpeed, 1},
	';':  {control.KnobVibratoDepth, -10},
	'\'': {control.KnobVibratoDepth, 10},
	'g':  {control.KnobHarmonics, -1},
	'h':  {control.KnobHarmonics, 1},
}

// keyCommand maps one key press onto a control command.
func keyCommand(char rune, key keyboard.Key) (control.Command, bool) {
	switch key {
	case keyboard.KeyEsc, keyboard.KeyCtrlC:
		return control.Command{Action: actionQuit}, true
	case keyboard.KeySpace:
		return control.Command{Action: control.ActionHit}, true
	case keyboard.KeyEnter:
		return control.Command{Action: control.ActionStart}, true
	}

	switch char {
	case 'q', 'Q':
		return control.Command{Action: actionQuit}, true
	case 's':
		return control.Command{Action: control.ActionStart}, true
	case 'x':
		return control.Command{Action: control.ActionStop}, true
	case 'v':
		return control.Command{Action: control.ActionVoice}, true
	case ' ':
		return control.Command{Action: control.ActionHit}, true
	}

	if char >= '1' && char <= '5' {
		modes := synth.ModeNames()
		idx := int(char - '1')
		if idx < len(modes) {
			return control.Command{Action: control.ActionMode, Mode: string(modes[idx])}, true
		}
	}
	if name, ok := effectKeys[char]; ok {
		return control.Command{Action: control.ActionEffect, Effect: name}, true
	}
	if step, ok := knobKeys[char]; ok {
		return control.Command{Action: control.ActionKnob, Knob: step.knob, Value: step.delta, Relative: true}, true
	}
	return control.Command{}, false
}
