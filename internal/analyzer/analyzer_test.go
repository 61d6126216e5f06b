package analyzer

import (
	"math"
	"testing"
)

func TestNextPow2(t *testing.T) {
	cases := map[int]int{
		0:    1,
		1:    1,
		2:    2,
		3:    4,
		5:    8,
		16:   16,
		31:   32,
		257:  512,
		2000: 2048,
	}
	for input, want := range cases {
		if got := nextPow2(input); got != want {
			t.Fatalf("nextPow2(%d)=%d want=%d", input, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if clamp(2, 0, 1) != 1 {
		t.Fatalf("expected clamp high to be 1")
	}
	if clamp(-1, 0, 1) != 0 {
		t.Fatalf("expected clamp low to be 0")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("expected clamp middle to be unchanged")
	}
}

func TestTimeDomainSilenceIsCentred(t *testing.T) {
	tap := New(Config{SampleRate: 48_000, FFTSize: 64})
	for i, b := range tap.TimeDomain(nil) {
		if b != 128 {
			t.Fatalf("sample %d=%d want=128", i, b)
		}
	}
}

func TestWriteKeepsNewestSamplesInOrder(t *testing.T) {
	tap := New(Config{FFTSize: 32})
	in := make([]float64, 40)
	for i := range in {
		in[i] = float64(i) / 100
	}
	tap.Write(in[:25])
	tap.Write(in[25:])

	got := make([]float64, tap.Size())
	tap.ordered(got)
	for i, v := range got {
		want := in[8+i]
		if v != want {
			t.Fatalf("ordered[%d]=%f want=%f", i, v, want)
		}
	}
}

func TestAnalyseSineLandsInBand(t *testing.T) {
	const (
		sampleRate = 48_000.0
		size       = 2048
	)
	tap := New(Config{SampleRate: sampleRate, FFTSize: size})

	// bin-centred 140.625 Hz tone
	freq := 6 * sampleRate / size
	samples := make([]float64, size)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	tap.Write(samples)

	snap := tap.Analyse()
	if len(snap.Spectrum) != size/2 || len(snap.Waveform) != size {
		t.Fatalf("unexpected lengths spectrum=%d waveform=%d", len(snap.Spectrum), len(snap.Waveform))
	}
	if snap.Features.Bass < 0.9 {
		t.Fatalf("Bass=%f want close to 1", snap.Features.Bass)
	}
	if snap.Features.Treble > 0.1 {
		t.Fatalf("Treble=%f want near 0", snap.Features.Treble)
	}

	peak := 0
	for k, b := range snap.Spectrum {
		if b > snap.Spectrum[peak] {
			peak = k
		}
	}
	if peak != 6 {
		t.Fatalf("spectral peak at bin %d want=6", peak)
	}
}

func TestGateFeatures(t *testing.T) {
	f := GateFeatures(Features{Level: 0.05, Bass: 0.55, Mid: 1}, 0.1)
	if f.Level != 0 {
		t.Fatalf("Level=%f want=0", f.Level)
	}
	if math.Abs(f.Bass-0.5) > 1e-9 {
		t.Fatalf("Bass=%f want=0.5", f.Bass)
	}
	if f.Mid != 1 {
		t.Fatalf("Mid=%f want=1", f.Mid)
	}
}
