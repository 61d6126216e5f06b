package synth

import "math"

type rampKind int

const (
	rampNone rampKind = iota
	rampLinear
	rampExponential
)

// Param is an automatable value evaluated on the engine's sample clock.
// A new ramp always starts from the value the param has at the moment it is
// scheduled, so successive ramps never jump.
type Param struct {
	start  float64
	from   float64
	target float64
	end    float64
	kind   rampKind
}

// NewParam returns a Param holding v.
func NewParam(v float64) *Param {
	return &Param{from: v, target: v}
}

// ValueAt returns the param value at time t (seconds).
func (p *Param) ValueAt(t float64) float64 {
	switch {
	case p.kind == rampNone:
		return p.from
	case t >= p.end:
		return p.target
	case t <= p.start:
		return p.from
	}

	frac := (t - p.start) / (p.end - p.start)
	if p.kind == rampExponential {
		return p.from * math.Pow(p.target/p.from, frac)
	}
	return p.from + (p.target-p.from)*frac
}

// Target returns the value the param settles on once any ramp completes.
func (p *Param) Target() float64 {
	return p.target
}

// SetValue jumps to v immediately, cancelling any ramp.
func (p *Param) SetValue(v float64) {
	p.from = v
	p.target = v
	p.kind = rampNone
}

// LinearRampTo schedules a linear ramp from the value at now to v at end.
func (p *Param) LinearRampTo(v, now, end float64) {
	p.schedule(rampLinear, v, now, end)
}

// ExponentialRampTo schedules an exponential ramp from the value at now to v at
// end. Exponential ramps need a non-zero start and target of the same sign;
// otherwise the ramp degrades to linear.
func (p *Param) ExponentialRampTo(v, now, end float64) {
	from := p.ValueAt(now)
	if from == 0 || v == 0 || (from < 0) != (v < 0) {
		p.schedule(rampLinear, v, now, end)
		return
	}
	p.schedule(rampExponential, v, now, end)
}

func (p *Param) schedule(kind rampKind, v, now, end float64) {
	from := p.ValueAt(now)
	if end <= now {
		p.SetValue(v)
		return
	}
	p.start = now
	p.end = end
	p.from = from
	p.target = v
	p.kind = kind
}
