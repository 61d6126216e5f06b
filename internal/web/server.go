// Package web exposes the controller over HTTP: a JSON command endpoint, a
// websocket status broadcast and a websocket landmark ingest for browser-side
// detectors.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/handsynth/internal/analyzer"
	"github.com/guidoenr/handsynth/internal/control"
	"github.com/guidoenr/handsynth/internal/hand"
	"github.com/guidoenr/handsynth/internal/preset"
	"github.com/guidoenr/handsynth/internal/synth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	statusInterval = 100 * time.Millisecond
	maxMessageSize = 64 << 10
	maxHands       = 2
)

// AppInterface is the view of the app the server needs. Snapshot and
// FeedLandmarks are called from HTTP goroutines; Submit must hand the command
// to the app loop and return its result.
type AppInterface interface {
	Snapshot() Snapshot
	Submit(ctx context.Context, cmd control.Command) error
	FeedLandmarks(hands []hand.Landmarks)
}

// Snapshot is the status document served on /api/status and broadcast on /ws.
type Snapshot struct {
	Status   control.Status    `json:"status"`
	Analysis analyzer.Snapshot `json:"analysis"`
}

type LandmarkMessage struct {
	Hands []struct {
		Points     []hand.Point3D `json:"points"`
		Handedness string         `json:"handedness,omitempty"`
		Score      float64        `json:"score,omitempty"`
	} `json:"hands"`
}

// Server serves the control API.
type Server struct {
	mu        sync.Mutex
	app       AppInterface
	log       *log.Logger
	clients   map[*websocketClient]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// NewServer wires the routes. A nil logger writes to stdout.
func NewServer(app AppInterface, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	s := &Server{
		app:       app,
		log:       logger,
		clients:   make(map[*websocketClient]bool),
		broadcast: make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/command", s.handleCommand)
	s.mux.HandleFunc("/api/modes", s.handleModes)
	s.mux.HandleFunc("/api/effects", s.handleEffects)
	s.mux.HandleFunc("/api/knobs", s.handleKnobs)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/ws/landmarks", s.handleLandmarks)
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.broadcastLoop(ctx)
	go s.statusUpdateLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Printf("[web] server starting on http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Snapshot())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cmd control.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.app.Submit(r.Context(), cmd); err != nil {
		writeJSON(w, statusFor(err), map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, synth.ModeNames())
}

func (s *Server) handleEffects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, preset.Names())
}

func (s *Server) handleKnobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, control.KnobNames())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, control.ErrUnknownAction),
		errors.Is(err, control.ErrUnknownKnob),
		errors.Is(err, synth.ErrUnknownMode),
		errors.Is(err, preset.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.Is(err, control.ErrVoiceMode):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("[web] websocket upgrade error: %v", err)
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

// handleLandmarks reads one LandmarkMessage per websocket message and feeds
// it to the app as a detector cycle.
func (s *Server) handleLandmarks(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("[web] landmark upgrade error: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Printf("[web] landmark stream closed: %v", err)
			}
			return
		}
		hands, err := DecodeLandmarks(data)
		if err != nil {
			s.log.Printf("[web] dropping landmark frame: %v", err)
			continue
		}
		s.app.FeedLandmarks(hands)
	}
}

// DecodeLandmarks parses a LandmarkMessage, keeping at most two hands.
func DecodeLandmarks(data []byte) ([]hand.Landmarks, error) {
	var msg LandmarkMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse landmarks: %w", err)
	}
	n := len(msg.Hands)
	if n > maxHands {
		n = maxHands
	}
	out := make([]hand.Landmarks, n)
	for i := 0; i < n; i++ {
		h := msg.Hands[i]
		lm, err := hand.FromPoints(h.Points, h.Handedness, h.Score)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		out[i] = lm
	}
	return out, nil
}

// Publish queues the current snapshot for every status client.
func (s *Server) Publish() {
	data, err := json.Marshal(s.app.Snapshot())
	if err != nil {
		s.log.Printf("[web] encode status: %v", err)
		return
	}
	select {
	case s.broadcast <- data:
	default:
		// drop if channel full
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for client := range s.clients {
				close(client.send)
				delete(s.clients, client)
			}
			s.mu.Unlock()
			return
		case message := <-s.broadcast:
			s.mu.Lock()
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(s.clients, client)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) statusUpdateLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := len(s.clients) == 0
			s.mu.Unlock()
			if !idle {
				s.Publish()
			}
		}
	}
}

func (s *Server) removeClient(c *websocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		close(c.send)
		delete(s.clients, c)
	}
}

func (c *websocketClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
