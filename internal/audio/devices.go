package audio

import (
	"fmt"
	"sort"

	"github.com/gordonklaus/portaudio"
)

// Device describes a PortAudio device.
type Device struct {
	Name            string
	MaxInput        int
	MaxOutput       int
	DefaultSampleHz float64
	HostAPI         string
	IsDefaultInput  bool
	IsDefaultOutput bool
}

// String renders one line of the --list-devices table.
func (d Device) String() string {
	role := ""
	switch {
	case d.IsDefaultInput && d.IsDefaultOutput:
		role = " [default in/out]"
	case d.IsDefaultInput:
		role = " [default in]"
	case d.IsDefaultOutput:
		role = " [default out]"
	}
	return fmt.Sprintf("%-12s %-40s in:%d out:%d %.0f Hz%s", d.HostAPI, d.Name, d.MaxInput, d.MaxOutput, d.DefaultSampleHz, role)
}

// ListDevices returns every device across host APIs sorted by host and name.
func ListDevices() ([]Device, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("host apis: %w", err)
	}

	defaultIn, defaultOut := -1, -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIn = def.Index
	}
	if def, err := portaudio.DefaultOutputDevice(); err == nil && def != nil {
		defaultOut = def.Index
	}

	var devices []Device
	for _, host := range hosts {
		for _, d := range host.Devices {
			devices = append(devices, Device{
				Name:            d.Name,
				MaxInput:        d.MaxInputChannels,
				MaxOutput:       d.MaxOutputChannels,
				DefaultSampleHz: d.DefaultSampleRate,
				HostAPI:         host.Name,
				IsDefaultInput:  d.Index == defaultIn,
				IsDefaultOutput: d.Index == defaultOut,
			})
		}
	}
	sortDevices(devices)
	return devices, nil
}

func sortDevices(devices []Device) {
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].HostAPI == devices[j].HostAPI {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].HostAPI < devices[j].HostAPI
	})
}
