package detector

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)

// ErrCameraNotOpen is returned when reading from a closed camera.
var ErrCameraNotOpen = errors.New("camera is not open")

// Camera wraps an OpenCV video capture device.
type Camera struct {
	deviceID int
	fps      int

	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// NewCamera returns a closed camera for deviceID.
func NewCamera(deviceID, fps int) *Camera {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Camera{deviceID: deviceID, fps: fps}
}

// Open starts capture at 640x480. Opening an open camera is a no-op.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}
	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return err
	}
	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
	c.capture = capture
	return nil
}

// ReadFrame grabs one frame. The caller closes the returned Mat.
func (c *Camera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}
	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, errors.New("camera returned no frame")
	}
	// Mirror so moving a hand right moves it right on the landmark axes.
	gocv.Flip(mat, &mat, 1)
	return &mat, nil
}

// FPS returns the requested frame rate.
func (c *Camera) FPS() int {
	return c.fps
}

// Close releases the device. Closing a closed camera is a no-op.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}
