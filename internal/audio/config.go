package audio

import (
	"github.com/gen2brain/malgo"
)

// DeviceConfig describes the host audio format for the duplex device.
type DeviceConfig struct {
	Format           malgo.FormatType
	CaptureChannels  int
	PlaybackChannels int
	SampleRate       int
}
