package audio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Capture is a microphone stream feeding a bounded FIFO. It satisfies the
// synth input source contract: Read drains mono samples, Close releases the
// device.
type Capture struct {
	stream     *portaudio.Stream
	sampleRate float64
	channels   int
	device     *portaudio.DeviceInfo

	queue *fifo
	mono  []float32
}

// Config controls how a Capture or Playback is opened.
type Config struct {
	DeviceName string
	SampleRate float64
	// BufferSize is the FIFO length in samples for capture and the frames per
	// callback for playback.
	BufferSize int
	Channels   int
}

const defaultBufferSize = 4096

// NewCapture opens and starts the input stream.
func NewCapture(cfg Config) (*Capture, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	device, err := findInputDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}
	if cfg.Channels > device.MaxInputChannels {
		cfg.Channels = device.MaxInputChannels
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}

	capture := &Capture{
		sampleRate: sampleRate,
		channels:   cfg.Channels,
		device:     device,
		queue:      newFIFO(cfg.BufferSize),
		mono:       make([]float32, 0, cfg.BufferSize),
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, capture.process)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	capture.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return capture, nil
}

// Read drains up to len(dst) buffered samples and returns how many were copied.
func (c *Capture) Read(dst []float32) int {
	return c.queue.readInto(dst)
}

// Close stops and closes the input stream. Closing twice is a no-op.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil
	if err := stream.Stop(); err != nil && !errorsIsInvalidStreamState(err) {
		return err
	}
	return stream.Close()
}

// SampleRate returns the stream sample rate.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// Device returns the PortAudio device behind the stream.
func (c *Capture) Device() *portaudio.DeviceInfo {
	return c.device
}

func (c *Capture) process(in []float32) {
	c.mono = downmix(c.mono, in, c.channels)
	c.queue.write(c.mono)
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name, true)
	}
	if dev, err := portaudio.DefaultInputDevice(); err == nil && dev != nil && dev.MaxInputChannels > 0 {
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	if candidate := pickMicrophone(devices); candidate != nil {
		return candidate, nil
	}
	return nil, fmt.Errorf("no microphone found")
}

func findDeviceByName(name string, input bool) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if input && device.MaxInputChannels == 0 {
			continue
		}
		if !input && device.MaxOutputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("audio device %q not found", name)
}

// pickMicrophone ranks input devices, preferring the host default and pushing
// loopback/monitor sources to the bottom.
func pickMicrophone(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	type scored struct {
		dev   *portaudio.DeviceInfo
		score int
	}

	defaultHostIndex := -1
	if host, err := portaudio.DefaultHostApi(); err == nil && host != nil && host.DefaultInputDevice != nil {
		defaultHostIndex = host.DefaultInputDevice.Index
	}

	var results []scored
	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		results = append(results, scored{dev: d, score: micScore(d.Name, d.Index == defaultHostIndex)})
	}
	if len(results) == 0 {
		return nil
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return strings.ToLower(results[i].dev.Name) < strings.ToLower(results[j].dev.Name)
		}
		return results[i].score > results[j].score
	})
	return results[0].dev
}

func micScore(name string, hostDefault bool) int {
	score := 0
	if hostDefault {
		score += 40
	}
	lower := strings.ToLower(name)
	for _, kw := range []string{"mic", "microphone", "headset", "input"} {
		if strings.Contains(lower, kw) {
			score += 20
			break
		}
	}
	for _, kw := range []string{"monitor", "loopback", "stereo mix", "what u hear"} {
		if strings.Contains(lower, kw) {
			score -= 50
			break
		}
	}
	if strings.Contains(lower, "default") {
		score += 10
	}
	return score
}

// errorsIsInvalidStreamState reports whether err comes from stopping a stream
// that is not running.
func errorsIsInvalidStreamState(err error) bool {
	if err == nil {
		return false
	}
	const invalidStateMsg = "PaErrorCode -9986"
	return strings.Contains(err.Error(), invalidStateMsg)
}
