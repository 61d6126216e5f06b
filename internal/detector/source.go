package detector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/guidoenr/handsynth/internal/hand"
)

// maxConsecutiveErrors ends Run when the camera or detector keeps failing.
const maxConsecutiveErrors = 30

// CameraSource pairs a camera with a detector.
type CameraSource struct {
	camera   *Camera
	detector Detector
	log      *log.Logger
}

// NewCameraSource opens the camera and starts the detector. Any failure is
// returned before audio is touched.
func NewCameraSource(deviceID, fps int, cfg Config, logger *log.Logger) (*CameraSource, error) {
	cam := NewCamera(deviceID, fps)
	if err := cam.Open(); err != nil {
		return nil, fmt.Errorf("open camera %d: %w", deviceID, err)
	}
	det, err := NewMediaPipeDetector(cfg)
	if err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("hand detector: %w", err)
	}
	return &CameraSource{camera: cam, detector: det, log: logger}, nil
}

// Run reads, detects and reports frames at the camera rate.
func (s *CameraSource) Run(ctx context.Context, fn func([]hand.Landmarks)) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.camera.FPS()))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		hands, err := s.detect()
		if err != nil {
			if errors.Is(err, ErrCameraNotOpen) {
				return err
			}
			failures++
			if failures >= maxConsecutiveErrors {
				return fmt.Errorf("detector failing: %w", err)
			}
			if failures == 1 && s.log != nil {
				s.log.Printf("detect: %v", err)
			}
			continue
		}
		failures = 0
		fn(hands)
	}
}

func (s *CameraSource) detect() ([]hand.Landmarks, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()
	return s.detector.Detect(frame)
}

// Close stops the detector and releases the camera.
func (s *CameraSource) Close() error {
	return errors.Join(s.detector.Close(), s.camera.Close())
}
