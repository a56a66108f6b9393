package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Listener is a blocking-read capture stream used while waiting for the wake
// phrase. Read returns the same backing buffer each call; the caller must
// consume the frame before reading again.
type Listener struct {
	stream *portaudio.Stream
	buf    []int16
}

func NewListener(inputDeviceID, sampleRate, frameLength int) (*Listener, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	dev, err := InputDevice(inputDeviceID)
	if err != nil {
		Terminate()
		return nil, err
	}

	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = frameLength

	l := &Listener{buf: make([]int16, frameLength)}
	l.stream, err = portaudio.OpenStream(params, &l.buf)
	if err != nil {
		Terminate()
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}
	if err := l.stream.Start(); err != nil {
		l.stream.Close()
		Terminate()
		return nil, fmt.Errorf("failed to start capture stream: %w", err)
	}
	return l, nil
}

// Read blocks until one frame of samples is available.
func (l *Listener) Read() ([]int16, error) {
	if err := l.stream.Read(); err != nil {
		return nil, fmt.Errorf("failed to read capture frame: %w", err)
	}
	return l.buf, nil
}

func (l *Listener) Close() {
	l.stream.Stop()
	l.stream.Close()
	Terminate()
}
