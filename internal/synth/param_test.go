package synth

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestParamLinearRamp(t *testing.T) {
	p := NewParam(0)
	p.LinearRampTo(1, 1, 2)

	cases := []struct {
		t    float64
		want float64
	}{
		{0.5, 0},
		{1, 0},
		{1.25, 0.25},
		{1.5, 0.5},
		{2, 1},
		{3, 1},
	}
	for _, tc := range cases {
		if got := p.ValueAt(tc.t); !almostEqual(got, tc.want, epsilon) {
			t.Fatalf("ValueAt(%f)=%f want=%f", tc.t, got, tc.want)
		}
	}
	if p.Target() != 1 {
		t.Fatalf("Target=%f want=1", p.Target())
	}
}

func TestParamRampRestartsFromCurrentValue(t *testing.T) {
	p := NewParam(0)
	p.LinearRampTo(1, 0, 1)
	p.LinearRampTo(0, 0.5, 1)

	if got := p.ValueAt(0.5); !almostEqual(got, 0.5, epsilon) {
		t.Fatalf("value at restart=%f want=0.5", got)
	}
	if got := p.ValueAt(0.75); !almostEqual(got, 0.25, epsilon) {
		t.Fatalf("value mid second ramp=%f want=0.25", got)
	}
}

func TestParamExponentialRamp(t *testing.T) {
	p := NewParam(400)
	p.ExponentialRampTo(100, 0, 0.1)

	if got := p.ValueAt(0.05); !almostEqual(got, 200, 1e-6) {
		t.Fatalf("midpoint=%f want=200", got)
	}
	if got := p.ValueAt(0.1); got != 100 {
		t.Fatalf("end=%f want=100", got)
	}
}

func TestParamExponentialToZeroFallsBackToLinear(t *testing.T) {
	p := NewParam(1)
	p.ExponentialRampTo(0, 0, 1)
	if got := p.ValueAt(0.5); !almostEqual(got, 0.5, epsilon) {
		t.Fatalf("midpoint=%f want=0.5", got)
	}
}

func TestParamZeroLengthRampJumps(t *testing.T) {
	p := NewParam(3)
	p.LinearRampTo(7, 1, 1)
	if got := p.ValueAt(0); got != 7 {
		t.Fatalf("ValueAt=%f want=7", got)
	}
}
