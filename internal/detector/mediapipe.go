package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/guidoenr/handsynth/internal/hand"
	"gocv.io/x/gocv"
)

// ErrScriptNotFound is returned when mediapipe_service.py cannot be located.
var ErrScriptNotFound = errors.New("mediapipe_service.py not found")

// MediaPipeDetector runs hand detection in a Python MediaPipe subprocess.
// Frames go out on stdin as a 4-byte big-endian length followed by JPEG bytes;
// each frame is answered with one JSON line on stdout.
type MediaPipeDetector struct {
	config Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
}

// NewMediaPipeDetector starts the service. Failing to find or start it is a
// startup error.
func NewMediaPipeDetector(cfg Config) (*MediaPipeDetector, error) {
	if cfg.MaxHands <= 0 {
		cfg.MaxHands = 2
	}
	script := cfg.Script
	if script == "" {
		script = findScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	python := cfg.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, script,
		"--max-hands", strconv.Itoa(cfg.MaxHands),
		"--min-detection", strconv.FormatFloat(cfg.MinConfidence, 'f', 2, 64),
		"--min-tracking", strconv.FormatFloat(cfg.MinTrackingConf, 'f', 2, 64),
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mediapipe service: %w", err)
	}

	return &MediaPipeDetector{
		config: cfg,
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// Detect encodes frame as JPEG, sends it to the service and parses the reply.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]hand.Landmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return nil, errors.New("mediapipe service closed")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := writeFrame(d.stdin, buf.GetBytes()); err != nil {
		return nil, err
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(line, d.config.MaxHands)
}

// Close stops the service.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return nil
	}
	_ = d.stdin.Close()
	err := d.cmd.Wait()
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func writeFrame(w io.Writer, data []byte) error {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

type jsonResponse struct {
	Hands []jsonHand `json:"hands"`
	Error string     `json:"error,omitempty"`
}

type jsonHand struct {
	Points     []hand.Point3D `json:"points"`
	Handedness string         `json:"handedness"`
	Score      float64        `json:"score"`
}

// decodeResponse parses one service reply, keeping at most maxHands hands in
// the order the service reported them.
func decodeResponse(line []byte, maxHands int) ([]hand.Landmarks, error) {
	var resp jsonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("mediapipe: %s", resp.Error)
	}

	hands := resp.Hands
	if maxHands > 0 && len(hands) > maxHands {
		hands = hands[:maxHands]
	}
	out := make([]hand.Landmarks, len(hands))
	for i, h := range hands {
		lm, err := hand.FromPoints(h.Points, h.Handedness, h.Score)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		out[i] = lm
	}
	return out, nil
}

func findScript() string {
	return firstExisting(
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(executableDir(), "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".handsynth/scripts/mediapipe_service.py"),
	)
}

func findVenvPython() string {
	return firstExisting(
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(executableDir(), "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handsynth/venv/bin/python"),
	)
}

func executableDir() string {
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(path)
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}
