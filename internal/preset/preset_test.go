package preset

import (
	"errors"
	"testing"

	"github.com/guidoenr/handsynth/internal/params"
	"github.com/guidoenr/handsynth/internal/synth"
)

type fakeGraph struct {
	kind      synth.FilterType
	freq, q   float64
	delay, fb float64
	dry, wet  float64
	reverb    float64
	reverbErr error
	calls     int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{kind: synth.Lowpass, freq: 2000, q: 1, delay: 0.3, fb: 0.4, dry: 1, reverb: 50}
}

func (g *fakeGraph) SetFilterType(kind synth.FilterType) {
	g.kind = kind
	g.calls++
}

func (g *fakeGraph) SetFilterFrequency(freq float64) {
	g.freq = freq
	g.calls++
}

func (g *fakeGraph) SetFilterQ(q float64) {
	g.q = q
	g.calls++
}

func (g *fakeGraph) SetDelay(d, fb float64) {
	g.delay, g.fb = d, fb
	g.calls++
}

func (g *fakeGraph) Delay() (float64, float64) {
	return g.delay, g.fb
}

func (g *fakeGraph) SetDryWet(dry, wet float64) {
	g.dry, g.wet = dry, wet
	g.calls++
}

func (g *fakeGraph) DryWet() (float64, float64) {
	return g.dry, g.wet
}

func (g *fakeGraph) SetReverbSize(size float64) error {
	if g.reverbErr != nil {
		return g.reverbErr
	}
	g.reverb = size
	g.calls++
	return nil
}

func TestRobotOverwritesOnlyItsFields(t *testing.T) {
	knobs := params.DefaultAdjustable()
	knobs.VibratoDepth = 33
	g := newFakeGraph()

	m := NewMachine()
	if _, err := m.Select("robot", &knobs, g); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if knobs.PitchShift != -2 || knobs.Distortion != 40 || knobs.VibratoSpeed != 0 {
		t.Fatalf("robot knobs=%+v", knobs)
	}
	if knobs.VibratoDepth != 33 {
		t.Fatalf("VibratoDepth=%f want untouched 33", knobs.VibratoDepth)
	}
	if g.kind != synth.Bandpass || g.freq != 800 || g.q != 10 {
		t.Fatalf("robot filter=(%s,%f,%f)", g.kind, g.freq, g.q)
	}
	if g.delay != 0.3 || g.dry != 1 {
		t.Fatalf("robot touched delay or mix: %+v", g)
	}
	if m.Current() != "robot" || m.IsNormal() {
		t.Fatalf("Current=%s", m.Current())
	}
}

func TestNormalRestoresBaseline(t *testing.T) {
	knobs := params.DefaultAdjustable()
	g := newFakeGraph()
	m := NewMachine()

	if _, err := m.Select("robot", &knobs, g); err != nil {
		t.Fatalf("Select robot: %v", err)
	}
	if _, err := m.Select("normal", &knobs, g); err != nil {
		t.Fatalf("Select normal: %v", err)
	}

	if g.kind != synth.Lowpass || g.freq != 2000 || g.q != 1 {
		t.Fatalf("filter=(%s,%f,%f) want lowpass/2000/1", g.kind, g.freq, g.q)
	}
	want := params.DefaultAdjustable()
	if knobs != want {
		t.Fatalf("knobs=%+v want=%+v", knobs, want)
	}
	if !m.IsNormal() {
		t.Fatalf("IsNormal=false after normal")
	}
}

func TestEchoAndUnderwaterTouchMixAndReverb(t *testing.T) {
	knobs := params.DefaultAdjustable()
	g := newFakeGraph()
	m := NewMachine()

	if _, err := m.Select("echo", &knobs, g); err != nil {
		t.Fatalf("Select echo: %v", err)
	}
	if g.delay != 0.5 || g.fb != 0.7 || g.wet != 0.8 || g.dry != 0.5 {
		t.Fatalf("echo graph=%+v", g)
	}

	if _, err := m.Select("underwater", &knobs, g); err != nil {
		t.Fatalf("Select underwater: %v", err)
	}
	if g.reverb != 80 || knobs.ReverbSize != 80 {
		t.Fatalf("reverb graph=%f knob=%f want 80", g.reverb, knobs.ReverbSize)
	}
	if g.wet != 0.7 || g.dry != 0.5 {
		t.Fatalf("underwater mix=(%f,%f) want dry held at 0.5, wet 0.7", g.dry, g.wet)
	}
	if g.kind != synth.Lowpass || g.freq != 400 || g.q != 5 {
		t.Fatalf("underwater filter=(%s,%f,%f)", g.kind, g.freq, g.q)
	}
}

func TestFailedReverbKeepsPresetAndKnob(t *testing.T) {
	knobs := params.DefaultAdjustable()
	g := newFakeGraph()
	g.reverbErr = errors.New("no convolver")
	m := NewMachine()

	_, err := m.Select("underwater", &knobs, g)
	if !errors.Is(err, g.reverbErr) {
		t.Fatalf("err=%v want the reverb error", err)
	}
	if knobs.ReverbSize != params.DefaultAdjustable().ReverbSize {
		t.Fatalf("ReverbSize=%f changed on failure", knobs.ReverbSize)
	}
	if m.Current() != Normal {
		t.Fatalf("Current=%s want normal after failed select", m.Current())
	}
}

func TestUnknownPresetChangesNothing(t *testing.T) {
	knobs := params.DefaultAdjustable()
	g := newFakeGraph()
	m := NewMachine()

	_, err := m.Select("vaporwave", &knobs, g)
	if !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("err=%v want ErrUnknownPreset", err)
	}
	if g.calls != 0 || knobs != params.DefaultAdjustable() || m.Current() != Normal {
		t.Fatalf("unknown preset mutated state")
	}
}

func TestEveryNameResolves(t *testing.T) {
	names := Names()
	if len(names) != 8 || names[0] != Normal {
		t.Fatalf("Names=%v", names)
	}
	for _, name := range names {
		if _, err := Lookup(name); err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
	}
	if _, err := Lookup("  Alien "); err != nil {
		t.Fatalf("Lookup should normalize case and space: %v", err)
	}
}
