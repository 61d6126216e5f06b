package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Renderer fills interleaved stereo float32 frames.
type Renderer interface {
	Render(out []float32)
}

// Playback is a stereo output stream whose callback pulls audio from a Renderer.
type Playback struct {
	stream     *portaudio.Stream
	sampleRate float64
	device     *portaudio.DeviceInfo
	renderer   Renderer
}

const outputChannels = 2

// NewPlayback opens and starts the output stream.
func NewPlayback(cfg Config, r Renderer) (*Playback, error) {
	device, err := findOutputDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}
	frames := cfg.BufferSize
	if frames <= 0 {
		frames = portaudio.FramesPerBufferUnspecified
	}

	p := &Playback{
		sampleRate: sampleRate,
		device:     device,
		renderer:   r,
	}
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: outputChannels,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: frames,
	}, p.process)
	if err != nil {
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	p.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	return p, nil
}

func (p *Playback) process(out []float32) {
	p.renderer.Render(out)
}

// SampleRate returns the stream sample rate.
func (p *Playback) SampleRate() float64 {
	return p.sampleRate
}

// Device returns the PortAudio device behind the stream.
func (p *Playback) Device() *portaudio.DeviceInfo {
	return p.device
}

// Close stops and closes the output stream. Closing twice is a no-op.
func (p *Playback) Close() error {
	if p.stream == nil {
		return nil
	}
	stream := p.stream
	p.stream = nil
	if err := stream.Stop(); err != nil && !errorsIsInvalidStreamState(err) {
		return err
	}
	return stream.Close()
}

func findOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name, false)
	}
	if dev, err := portaudio.DefaultOutputDevice(); err == nil && dev != nil && dev.MaxOutputChannels > 0 {
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	for _, d := range devices {
		if d != nil && d.MaxOutputChannels >= outputChannels {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no audio output device found")
}
