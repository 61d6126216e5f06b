package app

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

// profiler writes one CSV row per controller stage of each detector tick.
// A nil profiler is valid and records nothing.
type profiler struct {
	mu    sync.Mutex
	out   io.Closer
	w     *csv.Writer
	frame int
	start time.Time
	last  time.Time
	now   func() time.Time
}

func newProfiler(path string, logger *log.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if logger != nil {
			logger.Printf("profiler disabled: %v", err)
		}
		return nil
	}
	return newProfilerTo(f, time.Now)
}

func newProfilerTo(out io.WriteCloser, now func() time.Time) *profiler {
	p := &profiler{out: out, w: csv.NewWriter(out), now: now}
	p.write("timestamp", "frame", "section", "delta_ms", "hands")
	return p
}

func (p *profiler) beginFrame() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame++
	p.start = p.now()
	p.last = p.start
}

// markSection records the time since the previous mark. It is wired as the
// controller's stage hook.
func (p *profiler) markSection(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	delta := now.Sub(p.last)
	p.last = now
	p.record(now, name, delta, "")
}

func (p *profiler) endFrame(hands int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.record(now, "frame_total", now.Sub(p.start), strconv.Itoa(hands))
	p.w.Flush()
}

func (p *profiler) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.w.Flush()
	if err := p.w.Error(); err != nil {
		_ = p.out.Close()
		return err
	}
	return p.out.Close()
}

func (p *profiler) record(at time.Time, section string, delta time.Duration, hands string) {
	ms := strconv.FormatFloat(delta.Seconds()*1000, 'f', 3, 64)
	p.write(at.Format(time.RFC3339Nano), strconv.Itoa(p.frame), section, ms, hands)
}

func (p *profiler) write(fields ...string) {
	_ = p.w.Write(fields)
}
