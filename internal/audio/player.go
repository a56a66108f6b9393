package audio

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gordonklaus/portaudio"
)

const playbackChunk = 1024

// Player plays decoded audio files on the output device, outside of any
// realtime session. Playback polls cancel between chunks so a pressed button
// can cut an alarm short.
type Player struct {
	outputDeviceID int
	decoder        *Decoder
	log            *slog.Logger
}

func NewPlayer(outputDeviceID int, log *slog.Logger) *Player {
	return &Player{
		outputDeviceID: outputDeviceID,
		decoder:        NewDecoder(),
		log:            log.With("component", "player"),
	}
}

// PlayFile decodes and plays the file at path. cancel is polled between
// chunks; returning true stops playback early. If deleteAfter is set the file
// is removed afterwards, and a file that is already gone is not an error.
func (p *Player) PlayFile(path string, deleteAfter bool, cancel func() bool) error {
	samples, rate, err := p.decoder.DecodeFile(path)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	playErr := p.playSamples(samples, rate, cancel)

	if deleteAfter {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				p.log.Debug("audio file already removed", "path", path)
			} else {
				p.log.Error("failed to remove audio file", "path", path, "error", err)
			}
		}
	}
	return playErr
}

func (p *Player) playSamples(samples []float32, sampleRate int, cancel func() bool) error {
	if len(samples) == 0 {
		return fmt.Errorf("no audio samples to play")
	}

	if err := Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := Terminate(); err != nil {
			p.log.Error("failed to release audio system", "error", err)
		}
	}()

	dev, err := OutputDevice(p.outputDeviceID)
	if err != nil {
		return err
	}

	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = 1
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = playbackChunk

	buf := make([]float32, playbackChunk)

	// Fixed-rate DACs reject unusual file rates; resample to the device
	// default instead of failing the alarm.
	if portaudio.IsFormatSupported(params, &buf) != nil {
		deviceRate := int(dev.DefaultSampleRate)
		p.log.Info("resampling for playback", "from", sampleRate, "to", deviceRate)
		samples, err = Resample(samples, sampleRate, deviceRate)
		if err != nil {
			return err
		}
		params.SampleRate = float64(deviceRate)
	}

	stream, err := portaudio.OpenStream(params, &buf)
	if err != nil {
		return fmt.Errorf("failed to open playback stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start playback stream: %w", err)
	}
	defer func() {
		if err := stream.Stop(); err != nil {
			p.log.Error("failed to stop playback stream", "error", err)
		}
	}()

	for offset := 0; offset < len(samples); offset += playbackChunk {
		if cancel != nil && cancel() {
			p.log.Info("playback interrupted")
			return nil
		}
		end := offset + playbackChunk
		if end > len(samples) {
			end = len(samples)
		}
		n := copy(buf, samples[offset:end])
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write playback chunk: %w", err)
		}
	}
	return nil
}
