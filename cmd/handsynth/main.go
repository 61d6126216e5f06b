package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/guidoenr/handsynth/internal/app"
	"github.com/guidoenr/handsynth/internal/audio"
	"github.com/guidoenr/handsynth/internal/detector"
	"github.com/guidoenr/handsynth/internal/preset"
	"github.com/guidoenr/handsynth/internal/synth"
	"github.com/joho/godotenv"
	"github.com/natefinch/lumberjack"
)

func main() {
	_ = godotenv.Load()

	var (
		outputDevice = flag.String("audio-device", envString("AUDIO_DEVICE", ""), "PortAudio output device name (substring match)")
		inputDevice  = flag.String("mic-device", envString("MIC_DEVICE", ""), "PortAudio input device for voice mode (substring match)")
		sampleRate   = flag.Float64("sample-rate", envFloat("SAMPLE_RATE", 44100), "Output sample rate in Hz")
		bufferSize   = flag.Int("buffer-size", envInt("BUFFER_SIZE", 512), "Frames per output callback")
		cameraID     = flag.Int("camera", envInt("CAMERA", 0), "Camera device index")
		fps          = flag.Int("fps", envInt("FPS", detector.DefaultFPS), "Detector frames per second")
		maxHands     = flag.Int("max-hands", envInt("MAX_HANDS", 2), "Maximum hands to track")
		minConf      = flag.Float64("min-confidence", envFloat("MIN_CONFIDENCE", 0.5), "Minimum detection confidence")
		script       = flag.String("mediapipe-script", envString("MEDIAPIPE_SCRIPT", ""), "Path to mediapipe_service.py")
		python       = flag.String("python", envString("PYTHON", ""), "Python interpreter for the MediaPipe service")
		synthetic    = flag.Bool("synthetic", envBool("SYNTHETIC", false), "Use generated hands instead of the camera")
		noAudio      = flag.Bool("no-audio", envBool("NO_AUDIO", false), "Run without opening audio devices")
		mode         = flag.String("mode", envString("MODE", string(synth.ModeSynth)), "Sound mode ("+modeList()+")")
		effect       = flag.String("effect", envString("EFFECT", preset.Normal), "Voice effect ("+strings.Join(preset.Names(), "|")+")")
		autoStart    = flag.Bool("start", envBool("START", false), "Start playing immediately")
		webAddr      = flag.String("web", envString("WEB", ""), "Serve the HTTP control API on this address (e.g. :8080)")
		noiseFloor   = flag.Float64("noise-floor", envFloat("NOISE_FLOOR", 0.02), "Output level treated as silence on the level meter")
		profilePath  = flag.String("profile", envString("PROFILE", ""), "Write per-frame stage timings to this CSV file")
		logFile      = flag.String("log-file", envString("LOG_FILE", ""), "Write logs to this file with rotation")
		headless     = flag.Bool("headless", envBool("HEADLESS", false), "Disable the terminal panel and keyboard")
		noColor      = flag.Bool("no-color", envBool("NO_COLOR", false), "Disable ANSI color output")
		listDevs     = flag.Bool("list-devices", false, "List audio devices and exit")
	)

	flag.Parse()

	if *fps <= 0 {
		log.Fatalf("fps must be positive (got %d)", *fps)
	}
	if *sampleRate <= 0 {
		log.Fatalf("sample-rate must be positive (got %.0f)", *sampleRate)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stderr, "[handsynth] ", log.LstdFlags)
	if *logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     14,
		}
		defer rotator.Close()
		logger.SetOutput(rotator)
	}

	needAudio := !*noAudio || *listDevs
	if needAudio {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	if *listDevs {
		devices, err := audio.ListDevices()
		if err != nil {
			logger.Fatalf("list devices: %v", err)
		}
		fmt.Printf("\n=== Audio Devices ===\n\n")
		for _, dev := range devices {
			fmt.Println(dev)
		}
		return
	}

	det := detector.DefaultConfig()
	det.MaxHands = *maxHands
	det.MinConfidence = *minConf
	det.MinTrackingConf = *minConf
	det.Script = *script
	det.Python = *python

	appConfig := app.Config{
		OutputDevice: *outputDevice,
		InputDevice:  *inputDevice,
		SampleRate:   *sampleRate,
		BufferSize:   *bufferSize,
		CameraID:     *cameraID,
		FPS:          *fps,
		Synthetic:    *synthetic,
		Detector:     det,
		Mode:         *mode,
		Effect:       *effect,
		AutoStart:    *autoStart,
		DisableAudio: *noAudio,
		Headless:     *headless,
		UseANSI:      !*noColor,
		WebAddr:      *webAddr,
		NoiseFloor:   *noiseFloor,
		ProfilePath:  *profilePath,
		Log:          logger,
	}

	a, err := app.New(appConfig)
	if err != nil {
		log.Fatalf("failed to create app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	if err := a.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		log.Fatalf("runtime error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
}

func modeList() string {
	names := make([]string, 0, 5)
	for _, m := range synth.ModeNames() {
		names = append(names, string(m))
	}
	return strings.Join(names, "|")
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv("HANDSYNTH_" + key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(envString(key, "")); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(envString(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(envString(key, "")); err == nil {
		return v
	}
	return fallback
}
