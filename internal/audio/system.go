package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	systemMu    sync.Mutex
	initialized bool
	refCount    int
)

// Initialize acquires the audio system. Calls are reference counted so the
// wake loop, local playback and a realtime session can hold it independently.
func Initialize() error {
	systemMu.Lock()
	defer systemMu.Unlock()

	if !initialized {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
		initialized = true
	}
	refCount++
	return nil
}

// Terminate releases one reference; the audio system shuts down when the last
// holder releases it.
func Terminate() error {
	systemMu.Lock()
	defer systemMu.Unlock()

	if refCount > 0 {
		refCount--
	}
	if refCount == 0 && initialized {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
		initialized = false
	}
	return nil
}

// InputDevice resolves a configured device index, with -1 meaning the system
// default. The audio system must be initialized.
func InputDevice(id int) (*portaudio.DeviceInfo, error) {
	if id < 0 {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return dev, nil
	}
	return deviceByIndex(id)
}

// OutputDevice resolves a configured device index, with -1 meaning the system
// default.
func OutputDevice(id int) (*portaudio.DeviceInfo, error) {
	if id < 0 {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default output device: %w", err)
		}
		return dev, nil
	}
	return deviceByIndex(id)
}

func deviceByIndex(id int) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}
	if id >= len(devices) {
		return nil, fmt.Errorf("audio device index %d out of range (have %d devices)", id, len(devices))
	}
	return devices[id], nil
}

// LogDevices writes the device table to the log so users can pick IDs for
// INPUT_DEVICE_ID and OUTPUT_DEVICE_ID.
func LogDevices(log *slog.Logger) error {
	if err := Initialize(); err != nil {
		return err
	}
	defer Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}
	for i, dev := range devices {
		log.Info("audio device",
			"id", i,
			"name", dev.Name,
			"host_api", dev.HostApi.Name,
			"max_input_channels", dev.MaxInputChannels,
			"max_output_channels", dev.MaxOutputChannels,
			"default_sample_rate", dev.DefaultSampleRate)
	}
	return nil
}
