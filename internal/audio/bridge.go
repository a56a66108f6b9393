package audio

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

const (
	// RealtimeSampleRate is the PCM rate the realtime API speaks, both
	// directions.
	RealtimeSampleRate = 24000

	// RealtimeFramesPerBuffer trades latency for fewer websocket messages.
	RealtimeFramesPerBuffer = 4096

	captureQueueDepth = 32
)

// Bridge owns the microphone and speaker for the duration of a realtime
// session. Captured frames arrive on Frames as little-endian 16-bit PCM;
// Play accepts the same format back.
//
// The gate is consulted inside the capture callback: while it returns false,
// frames are discarded at the source so the model never hears itself talk.
type Bridge struct {
	inStream  *portaudio.Stream
	outStream *portaudio.Stream

	frames  chan []byte
	gate    func() bool
	dropped atomic.Int64

	outBuf  []int16
	pending []int16

	log *slog.Logger
}

// NewBridge opens capture and playback streams on the configured devices.
// Streams are opened but not started; call Start once the session is ready to
// consume frames.
func NewBridge(inputDeviceID, outputDeviceID int, gate func() bool, log *slog.Logger) (*Bridge, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	b := &Bridge{
		frames: make(chan []byte, captureQueueDepth),
		gate:   gate,
		outBuf: make([]int16, RealtimeFramesPerBuffer),
		log:    log.With("component", "bridge"),
	}

	inDev, err := InputDevice(inputDeviceID)
	if err != nil {
		Terminate()
		return nil, err
	}
	inParams := portaudio.HighLatencyParameters(inDev, nil)
	inParams.Input.Channels = 1
	inParams.SampleRate = RealtimeSampleRate
	inParams.FramesPerBuffer = RealtimeFramesPerBuffer

	b.inStream, err = portaudio.OpenStream(inParams, b.onCapture)
	if err != nil {
		Terminate()
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}

	outDev, err := OutputDevice(outputDeviceID)
	if err != nil {
		b.inStream.Close()
		Terminate()
		return nil, err
	}
	outParams := portaudio.HighLatencyParameters(nil, outDev)
	outParams.Output.Channels = 1
	outParams.SampleRate = RealtimeSampleRate
	outParams.FramesPerBuffer = RealtimeFramesPerBuffer

	b.outStream, err = portaudio.OpenStream(outParams, &b.outBuf)
	if err != nil {
		b.inStream.Close()
		Terminate()
		return nil, fmt.Errorf("failed to open playback stream: %w", err)
	}

	return b, nil
}

// Start begins capture and playback.
func (b *Bridge) Start() error {
	if err := b.inStream.Start(); err != nil {
		return fmt.Errorf("failed to start capture stream: %w", err)
	}
	if err := b.outStream.Start(); err != nil {
		return fmt.Errorf("failed to start playback stream: %w", err)
	}
	return nil
}

// onCapture runs on the PortAudio callback thread. It must not block, so a
// full queue drops the frame rather than stalling capture.
func (b *Bridge) onCapture(in []int16) {
	if b.gate != nil && !b.gate() {
		return
	}

	buf := make([]byte, len(in)*2)
	for i, s := range in {
		buf[2*i] = byte(s)
		buf[2*i+1] = byte(s >> 8)
	}

	select {
	case b.frames <- buf:
	default:
		b.dropped.Add(1)
	}
}

// Frames is the stream of captured PCM frames.
func (b *Bridge) Frames() <-chan []byte {
	return b.frames
}

// Dropped reports how many capture frames were discarded because the consumer
// fell behind.
func (b *Bridge) Dropped() int64 {
	return b.dropped.Load()
}

// Play writes PCM to the speaker, blocking until buffered. Partial buffers
// are carried over and prepended to the next call, so arbitrary delta sizes
// play back gapless.
func (b *Bridge) Play(pcm []byte) error {
	samples := make([]int16, 0, len(b.pending)+len(pcm)/2)
	samples = append(samples, b.pending...)
	for i := 0; i+1 < len(pcm); i += 2 {
		samples = append(samples, int16(pcm[i])|int16(pcm[i+1])<<8)
	}

	for len(samples) >= RealtimeFramesPerBuffer {
		copy(b.outBuf, samples[:RealtimeFramesPerBuffer])
		samples = samples[RealtimeFramesPerBuffer:]
		if err := b.outStream.Write(); err != nil {
			b.pending = nil
			return fmt.Errorf("failed to write playback buffer: %w", err)
		}
	}
	b.pending = append(b.pending[:0], samples...)
	return nil
}

// Flush plays out a parked partial buffer, zero-padded to a full device
// write. Responses rarely end on a buffer boundary, so the session calls this
// when a response finishes; without it the tail of an utterance would sit
// unplayed until the next response.
func (b *Bridge) Flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	n := copy(b.outBuf, b.pending)
	for i := n; i < len(b.outBuf); i++ {
		b.outBuf[i] = 0
	}
	b.pending = b.pending[:0]
	if err := b.outStream.Write(); err != nil {
		return fmt.Errorf("failed to write playback buffer: %w", err)
	}
	return nil
}

// Close stops both streams and releases the audio system. Safe to call after
// a partial failure; each stream is torn down independently.
func (b *Bridge) Close() {
	if b.inStream != nil {
		if err := b.inStream.Stop(); err != nil {
			b.log.Debug("failed to stop capture stream", "error", err)
		}
		if err := b.inStream.Close(); err != nil {
			b.log.Debug("failed to close capture stream", "error", err)
		}
	}
	if b.outStream != nil {
		if err := b.outStream.Stop(); err != nil {
			b.log.Debug("failed to stop playback stream", "error", err)
		}
		if err := b.outStream.Close(); err != nil {
			b.log.Debug("failed to close playback stream", "error", err)
		}
	}
	if n := b.dropped.Load(); n > 0 {
		b.log.Info("capture frames dropped during session", "count", n)
	}
	if err := Terminate(); err != nil {
		b.log.Error("failed to release audio system", "error", err)
	}
}
