package display

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/guidoenr/handsynth/internal/analyzer"
	"github.com/guidoenr/handsynth/internal/control"
	"github.com/guidoenr/handsynth/internal/params"
	"github.com/guidoenr/handsynth/internal/synth"
)

func TestBar(t *testing.T) {
	cases := []struct {
		value  float64
		filled int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{1.7, 10},
		{-1, 0},
	}
	for _, tc := range cases {
		b := Bar(tc.value, 10)
		if utf8.RuneCountInString(b) != 10 {
			t.Fatalf("Bar(%f) width=%d", tc.value, utf8.RuneCountInString(b))
		}
		if got := strings.Count(b, "█"); got != tc.filled {
			t.Fatalf("Bar(%f) filled=%d want=%d", tc.value, got, tc.filled)
		}
	}
}

func TestSparklineLevels(t *testing.T) {
	full := make([]byte, 64)
	for i := range full {
		full[i] = 255
	}
	if got := Spectrum(full, 8); got != strings.Repeat("█", 8) {
		t.Fatalf("full spectrum=%q", got)
	}

	silence := make([]byte, 64)
	for i := range silence {
		silence[i] = 128
	}
	if got := Waveform(silence, 8); got != strings.Repeat(" ", 8) {
		t.Fatalf("silent waveform=%q", got)
	}

	if got := Spectrum(nil, 4); got != "    " {
		t.Fatalf("empty spectrum=%q", got)
	}
}

func TestSparklineKeepsBucketPeak(t *testing.T) {
	data := make([]byte, 16)
	data[5] = 255
	got := []rune(Spectrum(data, 4))
	if got[1] != '█' || got[0] != ' ' || got[2] != ' ' {
		t.Fatalf("spectrum=%q", string(got))
	}
}

func TestSparklineWiderThanData(t *testing.T) {
	got := Spectrum([]byte{255, 0}, 6)
	if utf8.RuneCountInString(got) != 6 {
		t.Fatalf("width=%d want=6", utf8.RuneCountInString(got))
	}
}

func TestRenderFitsWidth(t *testing.T) {
	st := control.Status{
		Session: "0123456789abcdef",
		Playing: true,
		Mode:    synth.ModeChoir,
		Effect:  "alien",
		Params:  params.Values{Volume: 0.5, Pitch: 0.25},
		Knobs:   params.DefaultAdjustable(),
		Voices:  8,
	}
	snap := analyzer.Snapshot{Waveform: make([]byte, 256), Spectrum: make([]byte, 128)}

	for _, ansi := range []bool{false, true} {
		p := NewPanel(80, ansi)
		lines := p.Render(st, snap)
		joined := strings.Join(lines, "\n")
		if !strings.Contains(joined, "source=choir") || !strings.Contains(joined, "effect=alien") {
			t.Fatalf("missing status in %q", joined)
		}
		if !strings.Contains(joined, "session=01234567 ") {
			t.Fatalf("session not shortened")
		}
		for i, line := range lines {
			if w := visibleWidth(line); w != 80 {
				t.Fatalf("ansi=%v line %d width=%d want=80: %q", ansi, i, w, line)
			}
		}
	}
}

func TestRenderVoiceMode(t *testing.T) {
	p := NewPanel(10, false)
	if p.Width() != minWidth {
		t.Fatalf("Width=%d want=%d", p.Width(), minWidth)
	}
	lines := p.Render(control.Status{VoiceMode: true, Mode: synth.ModeSynth}, analyzer.Snapshot{})
	if !strings.Contains(lines[0], "source=voice") {
		t.Fatalf("header=%q", lines[0])
	}
}
