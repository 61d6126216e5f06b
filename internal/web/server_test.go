package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/handsynth/internal/control"
	"github.com/guidoenr/handsynth/internal/hand"
	"github.com/guidoenr/handsynth/internal/synth"
)

type fakeApp struct {
	mu       sync.Mutex
	snapshot Snapshot
	commands []control.Command
	err      error
	frames   chan []hand.Landmarks
}

func newFakeApp() *fakeApp {
	return &fakeApp{frames: make(chan []hand.Landmarks, 4)}
}

func (f *fakeApp) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeApp) Submit(ctx context.Context, cmd control.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return f.err
}

func (f *fakeApp) FeedLandmarks(hands []hand.Landmarks) {
	f.frames <- hands
}

func newTestServer(t *testing.T, app *fakeApp) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(app, log.New(io.Discard, "", 0))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestStatusEndpoint(t *testing.T) {
	app := newFakeApp()
	app.snapshot.Status = control.Status{Session: "abc", Playing: true, Mode: synth.ModeChoir, Effect: "robot"}
	_, ts := newTestServer(t, app)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var got Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status.Session != "abc" || !got.Status.Playing || got.Status.Mode != synth.ModeChoir || got.Status.Effect != "robot" {
		t.Fatalf("unexpected status %+v", got.Status)
	}
}

func TestCommandEndpoint(t *testing.T) {
	app := newFakeApp()
	_, ts := newTestServer(t, app)

	resp, err := http.Post(ts.URL+"/api/command", "application/json",
		strings.NewReader(`{"action":"knob","knob":"distortion","value":40}`))
	if err != nil {
		t.Fatalf("POST command: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if len(app.commands) != 1 {
		t.Fatalf("commands=%d want 1", len(app.commands))
	}
	got := app.commands[0]
	if got.Action != control.ActionKnob || got.Knob != control.KnobDistortion || got.Value != 40 {
		t.Fatalf("unexpected command %+v", got)
	}
}

func TestCommandErrors(t *testing.T) {
	cases := []struct {
		name   string
		method string
		body   string
		err    error
		want   int
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", nil, http.StatusBadRequest},
		{"unknown action", http.MethodPost, `{"action":"dance"}`, fmt.Errorf("%w: dance", control.ErrUnknownAction), http.StatusBadRequest},
		{"unknown mode", http.MethodPost, `{"action":"mode","mode":"dubstep"}`, synth.ErrUnknownMode, http.StatusBadRequest},
		{"voice unavailable", http.MethodPost, `{"action":"voice"}`, control.ErrVoiceMode, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newFakeApp()
			app.err = tc.err
			_, ts := newTestServer(t, app)

			req, err := http.NewRequest(tc.method, ts.URL+"/api/command", strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status=%d want=%d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestListEndpoints(t *testing.T) {
	_, ts := newTestServer(t, newFakeApp())

	cases := map[string]string{
		"/api/modes":   "percussion",
		"/api/effects": "telephone",
		"/api/knobs":   "vibratoDepth",
	}
	for path, want := range cases {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		var names []string
		err = json.NewDecoder(resp.Body).Decode(&names)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s=%v missing %q", path, names, want)
		}
	}
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestStatusBroadcast(t *testing.T) {
	app := newFakeApp()
	app.snapshot.Status = control.Status{Session: "live", Voices: 3}
	s, ts := newTestServer(t, app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.broadcastLoop(ctx)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		n := len(s.clients)
		s.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Publish()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status.Session != "live" || got.Status.Voices != 3 {
		t.Fatalf("unexpected broadcast %+v", got.Status)
	}
}

func landmarkJSON(hands ...hand.Landmarks) []byte {
	var msg LandmarkMessage
	for _, h := range hands {
		msg.Hands = append(msg.Hands, struct {
			Points     []hand.Point3D `json:"points"`
			Handedness string         `json:"handedness,omitempty"`
			Score      float64        `json:"score,omitempty"`
		}{Points: h.Points[:], Handedness: "Right", Score: 0.8})
	}
	data, _ := json.Marshal(msg)
	return data
}

func TestLandmarkIngest(t *testing.T) {
	app := newFakeApp()
	_, ts := newTestServer(t, app)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/landmarks"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	open := hand.OpenPalm()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"hands":[{"points":[]}]}`)); err != nil {
		t.Fatalf("write bad frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, landmarkJSON(open)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case hands := <-app.frames:
		if len(hands) != 1 || hands[0].Points != open.Points || hands[0].Handedness != "Right" {
			t.Fatalf("unexpected hands %+v", hands)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no landmark frame delivered")
	}
}

func TestDecodeLandmarksKeepsTwoHands(t *testing.T) {
	open := hand.OpenPalm()
	hands, err := DecodeLandmarks(landmarkJSON(open, open, open))
	if err != nil {
		t.Fatalf("DecodeLandmarks: %v", err)
	}
	if len(hands) != 2 {
		t.Fatalf("hands=%d want 2", len(hands))
	}

	hands, err = DecodeLandmarks([]byte(`{"hands":[]}`))
	if err != nil || len(hands) != 0 {
		t.Fatalf("empty frame=%v,%v", hands, err)
	}
}
