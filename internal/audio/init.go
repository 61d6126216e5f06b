package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio is process-global; users share one initialization and the last
// release terminates it.
var (
	refMu sync.Mutex
	refs  int
)

// Initialize initializes PortAudio on first use. Every successful call must be
// balanced by Terminate.
func Initialize() error {
	refMu.Lock()
	defer refMu.Unlock()
	if refs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return err
		}
	}
	refs++
	return nil
}

// Terminate releases one Initialize.
func Terminate() {
	refMu.Lock()
	defer refMu.Unlock()
	if refs == 0 {
		return
	}
	refs--
	if refs == 0 {
		_ = portaudio.Terminate()
	}
}
