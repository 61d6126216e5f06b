package audio

import (
	"errors"
	"strings"
	"testing"
)

func TestFIFOReadsInOrder(t *testing.T) {
	f := newFIFO(8)
	f.write([]float32{1, 2, 3})
	f.write([]float32{4, 5})

	dst := make([]float32, 4)
	if n := f.readInto(dst); n != 4 {
		t.Fatalf("read=%d want=4", n)
	}
	for i, want := range []float32{1, 2, 3, 4} {
		if dst[i] != want {
			t.Fatalf("dst[%d]=%f want=%f", i, dst[i], want)
		}
	}
	if f.len() != 1 {
		t.Fatalf("len=%d want=1", f.len())
	}
}

func TestFIFODropsOldestWhenFull(t *testing.T) {
	f := newFIFO(4)
	f.write([]float32{1, 2, 3})
	f.write([]float32{4, 5, 6})

	dst := make([]float32, 8)
	n := f.readInto(dst)
	if n != 4 {
		t.Fatalf("read=%d want=4", n)
	}
	for i, want := range []float32{3, 4, 5, 6} {
		if dst[i] != want {
			t.Fatalf("dst[%d]=%f want=%f", i, dst[i], want)
		}
	}
}

func TestFIFOWrapsAround(t *testing.T) {
	f := newFIFO(4)
	dst := make([]float32, 3)
	for round := 0; round < 5; round++ {
		base := float32(round * 3)
		f.write([]float32{base, base + 1, base + 2})
		if n := f.readInto(dst); n != 3 {
			t.Fatalf("round %d read=%d", round, n)
		}
		if dst[0] != base || dst[2] != base+2 {
			t.Fatalf("round %d got %v", round, dst)
		}
	}
}

func TestFIFOOversizedWriteKeepsTail(t *testing.T) {
	f := newFIFO(3)
	f.write([]float32{1, 2, 3, 4, 5})
	dst := make([]float32, 3)
	f.readInto(dst)
	if dst[0] != 3 || dst[2] != 5 {
		t.Fatalf("got %v want [3 4 5]", dst)
	}
}

func TestDownmix(t *testing.T) {
	got := downmix(nil, []float32{1, 3, -1, 1}, 2)
	if len(got) != 2 || got[0] != 2 || got[1] != 0 {
		t.Fatalf("downmix=%v want [2 0]", got)
	}
	mono := downmix(nil, []float32{0.5, 0.25}, 1)
	if len(mono) != 2 || mono[1] != 0.25 {
		t.Fatalf("mono passthrough=%v", mono)
	}
}

func TestMicScorePrefersRealMicrophones(t *testing.T) {
	if micScore("Monitor of Built-in Audio", false) >= micScore("Built-in Microphone", false) {
		t.Fatalf("monitor source should rank below a microphone")
	}
	if micScore("USB Audio", true) <= micScore("USB Audio", false) {
		t.Fatalf("host default should add score")
	}
}

func TestInvalidStreamState(t *testing.T) {
	if !errorsIsInvalidStreamState(errors.New("Stream is stopped (PaErrorCode -9986)")) {
		t.Fatalf("expected invalid stream state match")
	}
	if errorsIsInvalidStreamState(nil) || errorsIsInvalidStreamState(errors.New("boom")) {
		t.Fatalf("unexpected match")
	}
}

func TestDeviceString(t *testing.T) {
	d := Device{Name: "Speakers", MaxOutput: 2, DefaultSampleHz: 48000, HostAPI: "ALSA", IsDefaultOutput: true}
	s := d.String()
	if !strings.Contains(s, "Speakers") || !strings.Contains(s, "[default out]") || !strings.Contains(s, "48000 Hz") {
		t.Fatalf("String=%q", s)
	}
	devs := []Device{{HostAPI: "b", Name: "x"}, {HostAPI: "a", Name: "z"}, {HostAPI: "a", Name: "y"}}
	sortDevices(devs)
	if devs[0].Name != "y" || devs[2].HostAPI != "b" {
		t.Fatalf("sorted=%v", devs)
	}
}
