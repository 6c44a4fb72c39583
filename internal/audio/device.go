package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
)

// BlockFunc processes one real-time audio block. in holds the captured
// input samples, out the playback samples to emit; both are mono float32
// of equal length. It is invoked on the OS audio thread and must complete
// within the device's block deadline.
type BlockFunc func(in, out []float32)

// Device is a full-duplex audio device that drives a BlockFunc per block.
type Device interface {
	// EnumerateCaptureDevices lists available capture devices.
	EnumerateCaptureDevices(ctx context.Context) ([]Info, error)

	// Open initializes the underlying duplex device. The block function
	// starts receiving audio once Start is called.
	Open(ctx context.Context, block BlockFunc) error

	// Start starts the audio device.
	Start(ctx context.Context) error
	// Stop stops the audio device.
	// If the underlying device has already been deallocated this is a no-op.
	Stop(ctx context.Context) error

	// IsStarted returns whether the audio device is currently started.
	IsStarted() bool

	// Dealloc deallocates the underlying audio device and frees resources.
	Dealloc(ctx context.Context)
}

type device struct {
	conf *DeviceConfig

	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device

	// Scratch buffers reused across callbacks. They grow to the device's
	// block size on the first callback and stay allocated after that.
	inScratch  []float32
	outScratch []float32
}

// NewDevice creates a duplex device with the given format.
func NewDevice(conf *DeviceConfig) Device {
	return &device{conf: conf}
}

func (d *device) EnumerateCaptureDevices(ctx context.Context) ([]Info, error) {
	// An empty context is fine for just enumerating devices.
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	infos := make([]Info, len(captureDevices))
	for i, mdi := range captureDevices {
		infos[i] = malgoDeviceInfoToInfo(mdi)
	}

	return infos, nil
}

func (d *device) Open(ctx context.Context, block BlockFunc) error {
	if block == nil {
		return fmt.Errorf("block function is nil. unable to allocate device")
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Duplex)
	devCnf.Capture.Format = d.conf.Format
	devCnf.Capture.Channels = uint32(d.conf.CaptureChannels)
	devCnf.Playback.Format = d.conf.Format
	devCnf.Playback.Channels = uint32(d.conf.PlaybackChannels)
	devCnf.SampleRate = uint32(d.conf.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, input []byte, framecount uint32) {
			d.processBlock(block, output, input, int(framecount))
		},
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		uninitializeContext(mgCtx)

		return fmt.Errorf("failed to initialize malgo duplex device: %w", err)
	}

	d.mgCtx = mgCtx
	d.mgDevice = mgDevice

	return nil
}

// processBlock converts the S16LE byte views malgo hands us to float32,
// runs the block function, and converts the result back. Scratch buffers
// are reused so only the very first block allocates.
func (d *device) processBlock(block BlockFunc, output, input []byte, frames int) {
	d.inScratch = BytesToFloat32(d.inScratch[:0], input)

	if cap(d.outScratch) < frames {
		d.outScratch = make([]float32, frames)
	}
	d.outScratch = d.outScratch[:frames]
	for i := range d.outScratch {
		d.outScratch[i] = 0
	}

	block(d.inScratch, d.outScratch)

	Float32ToBytes(output, d.outScratch)
}

func (d *device) Start(ctx context.Context) error {
	if d.mgDevice == nil {
		return fmt.Errorf("device nil. have you allocated and Open()ed it?")
	}

	if d.mgDevice.IsStarted() {
		// noop
		return nil
	}

	if err := d.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	return nil
}

func (d *device) Stop(ctx context.Context) error {
	if d.mgDevice == nil {
		// noop
		return nil
	}

	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

func (d *device) IsStarted() bool {
	if d.mgDevice == nil {
		return false
	}

	return d.mgDevice.IsStarted()
}

func (d *device) Dealloc(ctx context.Context) {
	if d.mgDevice == nil {
		return
	}

	d.mgDevice.Uninit()
	d.mgCtx.Free()
	d.mgDevice = nil
	d.mgCtx = nil
}

// Info describes a capture device.
type Info struct {
	Name        string
	IsDefault   bool
	FormatCount int
	Formats     []string
}

func malgoDeviceInfoToInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]string, len(mdi.Formats))
	for i, mf := range mdi.Formats {
		formats[i] = fmt.Sprintf("(SampleSizeBytes: %d, Channels: %d, SampleRate: %d)",
			malgo.SampleSizeInBytes(mf.Format),
			mf.Channels, mf.SampleRate)
	}

	return Info{
		Name:        mdi.Name(),
		IsDefault:   mdi.IsDefault != 0,
		FormatCount: int(mdi.FormatCount),
		Formats:     formats,
	}
}

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	deviceCtx.Free()
}
