package synth

// InputSource feeds external audio (a microphone) into the effects chain in
// place of the oscillator bank.
type InputSource interface {
	// Read fills dst with the next mono samples and returns how many were
	// available; missing samples are treated as silence.
	Read(dst []float32) int
	Close() error
}
