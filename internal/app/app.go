// Package app runs the handsynth loop: detector frames, keyboard and HTTP
// commands are serialized through one goroutine that owns the controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/handsynth/internal/analyzer"
	"github.com/guidoenr/handsynth/internal/audio"
	"github.com/guidoenr/handsynth/internal/control"
	"github.com/guidoenr/handsynth/internal/detector"
	"github.com/guidoenr/handsynth/internal/display"
	"github.com/guidoenr/handsynth/internal/hand"
	"github.com/guidoenr/handsynth/internal/params"
	"github.com/guidoenr/handsynth/internal/preset"
	"github.com/guidoenr/handsynth/internal/synth"
	"github.com/guidoenr/handsynth/internal/web"
	"golang.org/x/term"
)

const (
	defaultSampleRate = 44_100
	panelInterval     = 66 * time.Millisecond
	defaultWidth      = 80
)

// Config configures the application runtime.
type Config struct {
	OutputDevice string
	InputDevice  string
	SampleRate   float64
	BufferSize   int

	CameraID  int
	FPS       int
	Synthetic bool
	Seed      int64
	Detector  detector.Config

	Mode      string
	Effect    string
	AutoStart bool

	// DisableAudio renders nothing and leaves voice mode unavailable.
	DisableAudio bool
	// Headless skips the terminal panel and keyboard.
	Headless bool
	UseANSI  bool

	// NoiseFloor gates the displayed output features.
	NoiseFloor float64

	WebAddr     string
	ProfilePath string
	Log         *log.Logger
}

type commandRequest struct {
	cmd   control.Command
	reply chan error
}

// App ties together detection, control, synthesis and playback.
type App struct {
	cfg        Config
	log        *log.Logger
	source     detector.Source
	engine     *synth.Engine
	controller *control.Controller
	playback   *audio.Playback
	panel      *display.Panel
	server     *web.Server
	profiler   *profiler

	landmarks   chan []hand.Landmarks
	commands    chan commandRequest
	inputEvents chan control.Command
	width       int

	mu       sync.RWMutex
	snapshot web.Snapshot
}

// New constructs the application. The hand detector is created first so a
// missing camera or model fails before any audio device is opened.
func New(cfg Config) (*App, error) {
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stdout, "", log.LstdFlags)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = detector.DefaultFPS
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Detector == (detector.Config{}) {
		cfg.Detector = detector.DefaultConfig()
	}
	mode := synth.ModeSynth
	if cfg.Mode != "" {
		m, err := synth.ParseSoundMode(cfg.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	if cfg.Effect != "" {
		if _, err := preset.Lookup(cfg.Effect); err != nil {
			return nil, err
		}
	}

	a := &App{
		cfg:       cfg,
		log:       cfg.Log,
		landmarks: make(chan []hand.Landmarks, 2),
		commands:  make(chan commandRequest),
		width:     defaultWidth,
	}

	if cfg.Synthetic {
		a.source = detector.NewSynthetic(cfg.FPS, cfg.Seed)
		a.log.Println("camera disabled, using synthetic hands")
	} else {
		src, err := detector.NewCameraSource(cfg.CameraID, cfg.FPS, cfg.Detector, cfg.Log)
		if err != nil {
			return nil, err
		}
		a.source = src
		a.log.Printf("camera %d started @ %d fps", cfg.CameraID, cfg.FPS)
	}

	a.profiler = newProfiler(cfg.ProfilePath, cfg.Log)
	engine, err := synth.New(synth.Config{
		SampleRate: cfg.SampleRate,
		ReverbSize: params.DefaultAdjustable().ReverbSize,
		Seed:       cfg.Seed,
	})
	if err != nil {
		_ = errors.Join(a.closeSource(), a.profiler.Close())
		return nil, fmt.Errorf("synth engine: %w", err)
	}
	a.engine = engine

	var opener control.InputOpener
	if !cfg.DisableAudio {
		opener = a.openMicrophone
	}
	a.controller = control.New(a.engine, control.Config{
		Mode:      mode,
		OpenInput: opener,
		Log:       cfg.Log,
		Mark:      a.profiler.markSection,
	})
	if cfg.Effect != "" {
		if err := a.controller.ApplyVoiceEffect(cfg.Effect); err != nil {
			_ = errors.Join(a.closeSource(), a.profiler.Close())
			return nil, err
		}
	}

	if cfg.DisableAudio {
		a.log.Println("audio disabled, rendering nowhere")
	} else {
		playback, err := audio.NewPlayback(audio.Config{
			DeviceName: cfg.OutputDevice,
			SampleRate: cfg.SampleRate,
			BufferSize: cfg.BufferSize,
		}, a.engine)
		if err != nil {
			_ = errors.Join(a.closeSource(), a.profiler.Close())
			return nil, fmt.Errorf("audio playback: %w", err)
		}
		a.playback = playback
		if info := playback.Device(); info != nil {
			a.log.Printf("audio output started on \"%s\" @ %.0f Hz", info.Name, playback.SampleRate())
		}
	}

	a.panel = display.NewPanel(defaultWidth, cfg.UseANSI)
	if cfg.WebAddr != "" {
		a.server = web.NewServer(a, cfg.Log)
	}
	if cfg.AutoStart {
		a.controller.Start(mode)
	}
	a.refreshSnapshot()
	return a, nil
}

func (a *App) openMicrophone() (synth.InputSource, error) {
	capture, err := audio.NewCapture(audio.Config{
		DeviceName: a.cfg.InputDevice,
		SampleRate: a.engine.SampleRate(),
		Channels:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("microphone: %w", err)
	}
	if info := capture.Device(); info != nil {
		a.log.Printf("microphone \"%s\" @ %.0f Hz", info.Name, capture.SampleRate())
	}
	return capture, nil
}

// Run drives the app loop until ctx is cancelled, the user quits or the
// detector stops.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	detectorErr := make(chan error, 1)
	go func() {
		detectorErr <- a.source.Run(ctx, a.FeedLandmarks)
	}()

	if a.server != nil {
		go func() {
			if err := a.server.Start(ctx, a.cfg.WebAddr); err != nil {
				a.log.Printf("web: %v", err)
			}
		}()
	}

	ticker := time.NewTicker(panelInterval)
	defer ticker.Stop()

	if !a.cfg.Headless {
		enterAltScreen()
		clearScreen()
		hideCursor()
		defer func() {
			showCursor()
			exitAltScreen()
		}()
		a.startInputListener(ctx)
		a.ensureWidth()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-detectorErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("detector: %w", err)
		case hands := <-a.landmarks:
			a.profiler.beginFrame()
			a.controller.HandleLandmarks(hands)
			a.profiler.endFrame(len(hands))
		case req := <-a.commands:
			req.reply <- a.execute(req.cmd)
		case cmd, ok := <-a.inputEvents:
			if !ok {
				a.inputEvents = nil
				continue
			}
			if cmd.Action == actionQuit {
				return nil
			}
			if err := a.execute(cmd); err != nil {
				a.log.Printf("%s: %v", cmd.Action, err)
			}
		case <-ticker.C:
			a.refreshSnapshot()
			if !a.cfg.Headless {
				a.draw()
			}
		}
	}
}

// Close stops the session and releases devices.
func (a *App) Close() error {
	a.controller.Stop()
	var errs []error
	if a.playback != nil {
		errs = append(errs, a.playback.Close())
	}
	errs = append(errs, a.closeSource(), a.profiler.Close())
	return errors.Join(errs...)
}

func (a *App) closeSource() error {
	if a.source == nil {
		return nil
	}
	return a.source.Close()
}

// FeedLandmarks queues one detector cycle for the app loop. When the loop is
// behind, the frame is dropped.
func (a *App) FeedLandmarks(hands []hand.Landmarks) {
	select {
	case a.landmarks <- hands:
	default:
	}
}

// Submit hands cmd to the app loop and waits for its result.
func (a *App) Submit(ctx context.Context, cmd control.Command) error {
	req := commandRequest{cmd: cmd, reply: make(chan error, 1)}
	select {
	case a.commands <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the status last published by the app loop.
func (a *App) Snapshot() web.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

func (a *App) execute(cmd control.Command) error {
	err := a.controller.Execute(cmd)
	a.refreshSnapshot()
	return err
}

func (a *App) refreshSnapshot() {
	snap := web.Snapshot{
		Status:   a.controller.Status(),
		Analysis: a.engine.Analyse(),
	}
	snap.Analysis.Features = analyzer.GateFeatures(snap.Analysis.Features, a.cfg.NoiseFloor)
	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()
}

func (a *App) draw() {
	a.ensureWidth()
	snap := a.Snapshot()
	moveCursorHome()
	for _, line := range a.panel.Render(snap.Status, snap.Analysis) {
		fmt.Print(line, "\r\n")
	}
}

func (a *App) ensureWidth() {
	fd := int(os.Stdout.Fd())
	if fd < 0 {
		return
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 || w == a.width {
		return
	}
	a.width = w
	a.panel.Resize(w)
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		a.inputEvents = nil
		return
	}

	events := make(chan control.Command, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			cmd, ok := keyCommand(char, key)
			if !ok {
				continue
			}
			if cmd.Action == actionQuit {
				events <- cmd
				return
			}
			select {
			case events <- cmd:
			default:
			}
		}
	}()
}

func clearScreen() {
	fmt.Print("\x1b[2J")
	moveCursorHome()
}

func moveCursorHome() {
	fmt.Print("\x1b[H")
}

func hideCursor() {
	fmt.Print("\x1b[?25l")
}

func showCursor() {
	fmt.Print("\x1b[?25h")
}

func enterAltScreen() {
	fmt.Print("\x1b[?1049h")
}

func exitAltScreen() {
	fmt.Print("\x1b[?1049l\x1b[0m")
}
