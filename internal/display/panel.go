// Package display renders the controller status and analyser output as a
// fixed-layout terminal panel.
package display

import (
	"fmt"
	"strings"

	"github.com/guidoenr/handsynth/internal/analyzer"
	"github.com/guidoenr/handsynth/internal/control"
)

const (
	minWidth   = 40
	labelWidth = 8
)

var sparkLevels = []rune(" ▁▂▃▄▅▆▇█")

// Panel lays out one status frame per call to Render.
type Panel struct {
	width int
	ansi  bool
}

// NewPanel returns a panel width columns wide. ansi enables colour.
func NewPanel(width int, ansi bool) *Panel {
	p := &Panel{ansi: ansi}
	p.Resize(width)
	return p
}

// Resize changes the panel width.
func (p *Panel) Resize(width int) {
	if width < minWidth {
		width = minWidth
	}
	p.width = width
}

// Width returns the panel width in columns.
func (p *Panel) Width() int {
	return p.width
}

// Render returns the panel lines, each padded to the panel width.
func (p *Panel) Render(st control.Status, snap analyzer.Snapshot) []string {
	state := "stopped"
	if st.Playing {
		state = "playing"
	}
	source := string(st.Mode)
	if st.VoiceMode {
		source = "voice"
	}
	session := st.Session
	if len(session) > 8 {
		session = session[:8]
	}

	barWidth := p.width - labelWidth - 6
	g := st.Gesture
	lines := []string{
		fmt.Sprintf("handsynth  %s  source=%s  effect=%s  session=%s", state, source, st.Effect, session),
		"",
		p.bar("volume", st.Params.Volume, barWidth),
		p.bar("pitch", st.Params.Pitch, barWidth),
		p.bar("filter", st.Params.Filter, barWidth),
		p.bar("effect", st.Params.EffectMix, barWidth),
		p.bar("level", snap.Features.Level, barWidth),
		"",
		fmt.Sprintf("%.1f Hz  hands=%d  voices=%d  hits=%d", st.Frequency, g.HandCount, st.Voices, st.Hits),
		fmt.Sprintf("height %.2f  pinch %.2f  roll %.2f  open %.2f  spread %.2f  speed %.2f",
			g.HandHeight, g.PinchDistance, g.Rotation, g.PalmOpenness, g.TwoHandsDistance, g.MovementSpeed),
		fmt.Sprintf("shift %+.0f st  dist %.0f  reverb %.0f  vib %.1f Hz/%.0f  harm %d",
			st.Knobs.PitchShift, st.Knobs.Distortion, st.Knobs.ReverbSize,
			st.Knobs.VibratoSpeed, st.Knobs.VibratoDepth, st.Knobs.Harmonics),
		"",
		"wave " + p.colour(Waveform(snap.Waveform, p.width-5), "36"),
		"spec " + p.colour(Spectrum(snap.Spectrum, p.width-5), "35"),
		"",
		"s start  x stop  1-5 mode  v voice  space hit  q quit",
		"n/r/c/m/a/e/u/t effect  [ ] shift  - = dist  , . reverb  9 0 vib  ; ' depth  g h harm",
	}
	for i, line := range lines {
		lines[i] = fit(line, p.width)
	}
	return lines
}

func (p *Panel) bar(label string, value float64, width int) string {
	return fmt.Sprintf("%-*s %s %3.0f%%", labelWidth-1, label, p.colour(Bar(value, width), "32"), clamp01(value)*100)
}

func (p *Panel) colour(s, code string) string {
	if !p.ansi {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// Bar draws value in [0,1] as a width-column meter.
func Bar(value float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(clamp01(value)*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Waveform draws the deviation of time-domain bytes from the 128 midline.
func Waveform(data []byte, width int) string {
	dev := make([]float64, len(data))
	for i, b := range data {
		d := float64(b) - 128
		if d < 0 {
			d = -d
		}
		dev[i] = d / 128
	}
	return sparkline(dev, width)
}

// Spectrum draws frequency-domain bytes, low bins on the left.
func Spectrum(data []byte, width int) string {
	vals := make([]float64, len(data))
	for i, b := range data {
		vals[i] = float64(b) / 255
	}
	return sparkline(vals, width)
}

// sparkline buckets vals into width columns, keeping each bucket's peak.
func sparkline(vals []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(vals) == 0 {
		return strings.Repeat(" ", width)
	}
	var b strings.Builder
	top := len(sparkLevels) - 1
	for col := 0; col < width; col++ {
		lo := col * len(vals) / width
		hi := (col + 1) * len(vals) / width
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(vals) {
			hi = len(vals)
		}
		peak := 0.0
		for _, v := range vals[lo:hi] {
			if v > peak {
				peak = v
			}
		}
		b.WriteRune(sparkLevels[int(clamp01(peak)*float64(top)+0.5)])
	}
	return b.String()
}

// fit pads or cuts s to width visible columns. ANSI sequences do not count.
func fit(s string, width int) string {
	visible := 0
	inEscape := false
	for i, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			if visible == width {
				if strings.ContainsRune(s, '\x1b') {
					return s[:i] + "\x1b[0m"
				}
				return s[:i]
			}
			visible++
		}
	}
	return s + strings.Repeat(" ", width-visible)
}

func visibleWidth(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
