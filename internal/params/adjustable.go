package params

// Adjustable holds the knobs set from the control surface. Ranges are documented,
// not enforced: out-of-range values produce undefined (but non-crashing) sound.
type Adjustable struct {
	PitchShift   float64 `json:"pitchShift"`   // semitones
	Distortion   float64 `json:"distortion"`   // 0..100
	ReverbSize   float64 `json:"reverbSize"`   // 0..100
	VibratoSpeed float64 `json:"vibratoSpeed"` // Hz
	VibratoDepth float64 `json:"vibratoDepth"` // 0..100
	Harmonics    int     `json:"harmonics"`    // >= 1
}

// DefaultAdjustable returns the knob positions used at startup.
func DefaultAdjustable() Adjustable {
	return Adjustable{
		PitchShift:   0,
		Distortion:   0,
		ReverbSize:   50,
		VibratoSpeed: 5,
		VibratoDepth: 0,
		Harmonics:    2,
	}
}
