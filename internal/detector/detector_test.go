package detector

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/guidoenr/handsynth/internal/hand"
)

func handJSON(x float64) string {
	points := make([]string, hand.NumLandmarks)
	for i := range points {
		points[i] = fmt.Sprintf(`{"x":%g,"y":%g,"z":0}`, x, float64(i)/100)
	}
	return `{"points":[` + strings.Join(points, ",") + `],"handedness":"Right","score":0.9}`
}

func TestDecodeResponse(t *testing.T) {
	line := []byte(`{"hands":[` + handJSON(0.25) + `,` + handJSON(0.75) + `]}` + "\n")

	hands, err := decodeResponse(line, 2)
	if err != nil {
		t.Fatalf("decodeResponse: %v", err)
	}
	if len(hands) != 2 {
		t.Fatalf("hands=%d want=2", len(hands))
	}
	if hands[0].Points[hand.Wrist].X != 0.25 || hands[1].Points[hand.Wrist].X != 0.75 {
		t.Fatalf("hand order not preserved")
	}
	if hands[0].Points[hand.PinkyTip].Y != 0.2 {
		t.Fatalf("PinkyTip.Y=%f want=0.2", hands[0].Points[hand.PinkyTip].Y)
	}
	if hands[0].Handedness != "Right" || hands[0].Score != 0.9 {
		t.Fatalf("metadata=%q/%f", hands[0].Handedness, hands[0].Score)
	}
}

func TestDecodeResponseLimitsHands(t *testing.T) {
	line := []byte(`{"hands":[` + handJSON(0.1) + `,` + handJSON(0.2) + `,` + handJSON(0.3) + `]}`)
	hands, err := decodeResponse(line, 2)
	if err != nil {
		t.Fatalf("decodeResponse: %v", err)
	}
	if len(hands) != 2 {
		t.Fatalf("hands=%d want=2", len(hands))
	}
}

func TestDecodeResponseErrors(t *testing.T) {
	cases := map[string]string{
		"bad json":      `{"hands":`,
		"service error": `{"hands":[],"error":"model failed"}`,
		"short hand":    `{"hands":[{"points":[{"x":0,"y":0,"z":0}]}]}`,
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeResponse([]byte(line), 2); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	hands, err := decodeResponse([]byte(`{"hands":[]}`), 2)
	if err != nil || len(hands) != 0 {
		t.Fatalf("empty response=%v,%v", hands, err)
	}
}

func TestWriteFrameLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0x01}
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	out := buf.Bytes()
	if got := binary.BigEndian.Uint32(out[:4]); got != 3 {
		t.Fatalf("length=%d want=3", got)
	}
	if !bytes.Equal(out[4:], payload) {
		t.Fatalf("payload=%v", out[4:])
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestWriteFrameError(t *testing.T) {
	if err := writeFrame(failingWriter{}, []byte{1}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClosedCameraRead(t *testing.T) {
	cam := NewCamera(0, 0)
	if cam.FPS() != DefaultFPS {
		t.Fatalf("FPS=%d want=%d", cam.FPS(), DefaultFPS)
	}
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Fatalf("err=%v want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("Close on closed camera: %v", err)
	}
}

func TestSyntheticProducesOneAndTwoHands(t *testing.T) {
	s := NewSynthetic(30, 42)
	counts := map[int]int{}
	for i := 0; i < 3000; i++ {
		hands := s.Next(1.0 / 30)
		counts[len(hands)]++
		for _, h := range hands {
			for j, p := range h.Points {
				if p.X < -0.5 || p.X > 1.5 || p.Y < -0.5 || p.Y > 1.5 {
					t.Fatalf("frame %d point %d out of frame: %+v", i, j, p)
				}
			}
		}
	}
	if counts[1] == 0 || counts[2] == 0 {
		t.Fatalf("hand counts=%v want both 1 and 2", counts)
	}
}

func TestSyntheticDeterministicWithSeed(t *testing.T) {
	a, b := NewSynthetic(30, 9), NewSynthetic(30, 9)
	for i := 0; i < 10; i++ {
		ha, hb := a.Next(0.1), b.Next(0.1)
		if len(ha) != len(hb) || ha[0].Points != hb[0].Points {
			t.Fatalf("frame %d differs", i)
		}
	}
}

func TestSyntheticRunStopsOnCancel(t *testing.T) {
	s := NewSynthetic(200, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frames := 0
	err := s.Run(ctx, func([]hand.Landmarks) {
		frames++
		if frames == 3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if frames < 3 {
		t.Fatalf("frames=%d want>=3", frames)
	}
}

func TestMirrorFlipsAroundWrist(t *testing.T) {
	h := hand.OpenPalm()
	m := mirror(h)
	if m.Points[hand.Wrist] != h.Points[hand.Wrist] {
		t.Fatalf("wrist moved")
	}
	wantX := 2*h.Points[hand.Wrist].X - h.Points[hand.ThumbTip].X
	if m.Points[hand.ThumbTip].X != wantX || m.Handedness != "Left" {
		t.Fatalf("mirror=%+v", m.Points[hand.ThumbTip])
	}
}
