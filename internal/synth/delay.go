package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/delay"
)

const (
	// MaxDelaySeconds bounds the delay line buffer.
	MaxDelaySeconds = 2.0
	// MaxFeedback keeps the delay/feedback loop decaying.
	MaxFeedback = 0.95

	// The Hermite read needs one sample on either side of the tap.
	minDelaySamples = 2
	delayGuard      = 4
)

// DelayLine is a fractional delay whose output is fed back into its own input.
type DelayLine struct {
	Time     *Param
	Feedback *Param

	sampleRate float64
	line       *delay.Line
}

// NewDelayLine creates a delay of delaySeconds with the given feedback gain.
func NewDelayLine(delaySeconds, feedback, sampleRate float64) (*DelayLine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("delay sample rate %g must be positive", sampleRate)
	}
	line, err := delay.New(int(MaxDelaySeconds*sampleRate) + delayGuard)
	if err != nil {
		return nil, err
	}
	return &DelayLine{
		Time:       NewParam(delaySeconds),
		Feedback:   NewParam(feedback),
		sampleRate: sampleRate,
		line:       line,
	}, nil
}

// Process pushes x (plus the fed-back output) into the line and returns the
// delayed signal.
func (d *DelayLine) Process(x, t float64) float64 {
	samples := d.Time.ValueAt(t) * d.sampleRate
	samples = math.Min(math.Max(samples, minDelaySamples), float64(d.line.Len()-3))
	out := d.line.ReadFractional(samples)

	fb := math.Min(d.Feedback.ValueAt(t), MaxFeedback)
	d.line.Write(x + out*fb)
	return out
}

// Clear empties the line.
func (d *DelayLine) Clear() {
	d.line.Reset()
}
