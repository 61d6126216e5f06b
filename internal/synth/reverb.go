package synth

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand"

	"github.com/cwbudde/algo-dsp/dsp/conv"
)

// DefaultConvolverBlock is the smallest partition of the reverb convolver and
// therefore its latency in samples.
const DefaultConvolverBlock = 1024

// ImpulseSeconds returns the impulse duration for a reverb size in [0,100].
func ImpulseSeconds(size float64) float64 {
	return 0.5 + size/100*3
}

// ImpulseLength returns the impulse length in samples for a reverb size.
func ImpulseLength(sampleRate, size float64) int {
	return int(sampleRate * ImpulseSeconds(size))
}

// GenerateImpulse synthesizes a stereo decaying-noise impulse response.
func GenerateImpulse(sampleRate, size float64, rng *rand.Rand) [2][]float64 {
	length := ImpulseLength(sampleRate, size)
	var ir [2][]float64
	for ch := range ir {
		data := make([]float64, length)
		for i := range data {
			decay := math.Pow(1-float64(i)/float64(length), 2)
			data[i] = (rng.Float64()*2 - 1) * decay
		}
		ir[ch] = data
	}
	return ir
}

// maxPartitionOrder caps the largest partition at 8192 samples.
const maxPartitionOrder = 13

// Convolver is a mono-in, stereo-out partitioned FFT convolver, one engine per
// output channel. It adds one block of latency.
type Convolver struct {
	length    int
	channels  [2]*conv.PartitionedConvolution
	connected bool
}

// NewConvolver partitions ir for both channels. block must be a power of two
// and sets the smallest partition, and therefore the latency.
func NewConvolver(ir [2][]float64, block int) (*Convolver, error) {
	if block <= 0 {
		block = DefaultConvolverBlock
	}
	order := bits.Len(uint(block)) - 1
	if order < 1 || 1<<order != block {
		return nil, fmt.Errorf("convolver block %d is not a power of two", block)
	}

	c := &Convolver{length: len(ir[0]), connected: true}
	for ch := range ir {
		engine, err := conv.NewPartitionedConvolution(ir[ch], order, max(order, maxPartitionOrder))
		if err != nil {
			return nil, fmt.Errorf("convolver channel %d: %w", ch, err)
		}
		c.channels[ch] = engine
	}
	return c, nil
}

// Length returns the impulse length in samples.
func (c *Convolver) Length() int {
	return c.length
}

// Latency returns the delay of the wet output in samples.
func (c *Convolver) Latency() int {
	return c.channels[0].Latency()
}

// Connected reports whether the convolver is still part of the graph.
func (c *Convolver) Connected() bool {
	return c.connected
}

// Disconnect detaches the convolver; further Process calls emit silence.
func (c *Convolver) Disconnect() {
	c.connected = false
}

// Process convolves in and writes one output sample per input sample to outL
// and outR. All three slices must have the same length.
func (c *Convolver) Process(in, outL, outR []float64) error {
	if !c.connected {
		clear(outL[:len(in)])
		clear(outR[:len(in)])
		return nil
	}
	if err := c.channels[0].ProcessBlock(in, outL); err != nil {
		return err
	}
	return c.channels[1].ProcessBlock(in, outR)
}
