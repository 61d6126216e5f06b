package audio

import "sync"

// fifo is a bounded sample queue shared between a PortAudio callback and the
// render thread. When full, the oldest samples are dropped so latency stays
// bounded.
type fifo struct {
	mu    sync.Mutex
	buf   []float32
	read  int
	count int
}

func newFIFO(size int) *fifo {
	return &fifo{buf: make([]float32, size)}
}

func (f *fifo) write(in []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.buf)
	if len(in) >= n {
		copy(f.buf, in[len(in)-n:])
		f.read = 0
		f.count = n
		return
	}
	if over := f.count + len(in) - n; over > 0 {
		f.read = (f.read + over) % n
		f.count -= over
	}
	w := (f.read + f.count) % n
	first := copy(f.buf[w:], in)
	copy(f.buf, in[first:])
	f.count += len(in)
}

func (f *fifo) readInto(dst []float32) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	want := len(dst)
	if want > f.count {
		want = f.count
	}
	first := copy(dst[:want], f.buf[f.read:])
	copy(dst[first:want], f.buf)
	f.read = (f.read + want) % len(f.buf)
	f.count -= want
	return want
}

func (f *fifo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// downmix averages interleaved channels into dst and returns it.
func downmix(dst, in []float32, channels int) []float32 {
	if channels <= 1 {
		return append(dst[:0], in...)
	}
	frames := len(in) / channels
	dst = dst[:0]
	for i := 0; i < frames; i++ {
		sum := float32(0)
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += in[base+ch]
		}
		dst = append(dst, sum/float32(channels))
	}
	return dst
}
