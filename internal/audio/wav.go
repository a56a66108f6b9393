package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// SaveToWAV writes mono float32 samples to a 16-bit PCM WAV file.
func SaveToWAV(filename string, samples []float32, sampleRate int) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer file.Close()

	const numChannels = 1
	const bitsPerSample = 16
	dataSize := uint32(len(samples) * 2)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * numChannels * bitsPerSample / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	if err := binary.Write(file, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	for _, sample := range samples {
		s := clamp(sample)
		if err := binary.Write(file, binary.LittleEndian, int16(s*32767)); err != nil {
			return fmt.Errorf("failed to write WAV data: %w", err)
		}
	}
	return nil
}

// SynthesizeBeep renders a repeating beep pattern, used as placeholder alarm
// audio until the spoken alarm has been generated.
func SynthesizeBeep(sampleRate int, repeats int) []float32 {
	const (
		frequency = 880.0
		beepLen   = 0.25 // seconds on
		gapLen    = 0.20 // seconds off
	)
	beepSamples := int(beepLen * float64(sampleRate))
	gapSamples := int(gapLen * float64(sampleRate))

	samples := make([]float32, 0, repeats*(beepSamples+gapSamples))
	for r := 0; r < repeats; r++ {
		for i := 0; i < beepSamples; i++ {
			t := float64(i) / float64(sampleRate)
			// Short fade at both ends to avoid clicks.
			envelope := 1.0
			ramp := sampleRate / 100
			if i < ramp {
				envelope = float64(i) / float64(ramp)
			} else if i > beepSamples-ramp {
				envelope = float64(beepSamples-i) / float64(ramp)
			}
			samples = append(samples, float32(0.6*envelope*math.Sin(2*math.Pi*frequency*t)))
		}
		samples = append(samples, make([]float32, gapSamples)...)
	}
	return samples
}
