package analyzer

// Features summarizes the analysed output for display.
type Features struct {
	Level  float64 `json:"level"`
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`
}

// GateFeatures applies a noise floor so near-silent output reads as zero.
func GateFeatures(f Features, floor float64) Features {
	if floor <= 0 {
		return f
	}
	gate := func(v float64) float64 {
		if v <= floor {
			return 0
		}
		return clamp((v-floor)/(1.0-floor), 0, 1)
	}
	f.Level = gate(f.Level)
	f.Bass = gate(f.Bass)
	f.Mid = gate(f.Mid)
	f.Treble = gate(f.Treble)
	return f
}
