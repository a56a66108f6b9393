package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tosone/minimp3"
	"github.com/youpy/go-wav"
)

// Decoder turns WAV or MP3 bytes into mono float32 samples. Scheduled alarm
// audio comes from OpenAI TTS, whose WAV headers sometimes declare a bogus
// data-chunk size, so WAV decoding tries a lenient chunk walk before go-wav.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeFile reads and decodes an audio file, returning mono samples and the
// source sample rate.
func (d *Decoder) DecodeFile(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read audio file: %w", err)
	}
	return d.Decode(data)
}

// Decode detects the container format and decodes accordingly.
func (d *Decoder) Decode(data []byte) ([]float32, int, error) {
	switch detectFormat(data) {
	case "wav":
		samples, rate, err := decodeWAVLenient(data)
		if err != nil {
			return decodeWAV(data)
		}
		return samples, rate, nil
	case "mp3":
		return decodeMP3(data)
	default:
		samples, rate, err := decodeWAVLenient(data)
		if err == nil {
			return samples, rate, nil
		}
		if samples, rate, err = decodeWAV(data); err == nil {
			return samples, rate, nil
		}
		return decodeMP3(data)
	}
}

func detectFormat(data []byte) string {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("RIFF")) {
		return "wav"
	}
	if len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")) {
		return "mp3"
	}
	if len(data) >= 2 && data[0] == 0xFF && (data[1]&0xE0) == 0xE0 {
		return "mp3"
	}
	return "unknown"
}

func decodeWAV(data []byte) ([]float32, int, error) {
	reader := wav.NewReader(bytes.NewReader(data))
	format, err := reader.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV format: %w", err)
	}

	var samples []float32
	for {
		chunk, err := reader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read WAV samples: %w", err)
		}
		for _, sample := range chunk {
			mixed := normalize(reader.IntValue(sample, 0), format.BitsPerSample)
			if format.NumChannels == 2 {
				mixed = (mixed + normalize(reader.IntValue(sample, 1), format.BitsPerSample)) / 2
			}
			samples = append(samples, clamp(mixed))
		}
	}
	return samples, int(format.SampleRate), nil
}

// decodeWAVLenient walks RIFF chunks by hand and accepts data chunks whose
// declared size disagrees with the actual payload.
func decodeWAVLenient(data []byte) ([]float32, int, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		sampleRate    int
		numChannels   int
		bitsPerSample int
		audioFormat   int
		payload       []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return nil, 0, fmt.Errorf("truncated fmt chunk")
			}
			audioFormat = int(binary.LittleEndian.Uint16(data[body:]))
			numChannels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			end := body + size
			if size <= 0 || end > len(data) {
				// Header lied; take everything that is actually there.
				end = len(data)
			}
			payload = data[body:end]
		}

		if size%2 == 1 {
			size++
		}
		offset = body + size
	}

	if sampleRate == 0 || numChannels == 0 || payload == nil {
		return nil, 0, fmt.Errorf("missing fmt or data chunk")
	}
	if audioFormat != 1 && audioFormat != 3 {
		return nil, 0, fmt.Errorf("unsupported WAV audio format %d", audioFormat)
	}

	bytesPerSample := bitsPerSample / 8
	if bytesPerSample == 0 {
		return nil, 0, fmt.Errorf("invalid bits per sample %d", bitsPerSample)
	}
	frameSize := bytesPerSample * numChannels
	frames := len(payload) / frameSize

	samples := make([]float32, 0, frames)
	for f := 0; f < frames; f++ {
		var mixed float32
		for ch := 0; ch < numChannels; ch++ {
			idx := f*frameSize + ch*bytesPerSample
			mixed += decodeSample(payload[idx:idx+bytesPerSample], audioFormat)
		}
		samples = append(samples, clamp(mixed/float32(numChannels)))
	}
	return samples, sampleRate, nil
}

func decodeSample(raw []byte, audioFormat int) float32 {
	switch len(raw) {
	case 1:
		return (float32(raw[0]) - 128) / 128.0
	case 2:
		return float32(int16(binary.LittleEndian.Uint16(raw))) / 32768.0
	case 3:
		v := int32(raw[0]) | int32(raw[1])<<8 | int32(raw[2])<<16
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return float32(v) / 8388608.0
	case 4:
		if audioFormat == 3 {
			return math.Float32frombits(binary.LittleEndian.Uint32(raw))
		}
		return float32(int32(binary.LittleEndian.Uint32(raw))) / 2147483648.0
	default:
		return 0
	}
}

func decodeMP3(data []byte) ([]float32, int, error) {
	decoder, pcm, err := minimp3.DecodeFull(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer decoder.Close()

	if decoder.Channels <= 0 || decoder.SampleRate <= 0 || len(pcm) == 0 {
		return nil, 0, fmt.Errorf("no decodable MP3 frames")
	}

	totalSamples := len(pcm) / 2
	samples := make([]float32, 0, totalSamples/decoder.Channels)
	for i := 0; i+decoder.Channels <= totalSamples; i += decoder.Channels {
		var mixed float32
		for ch := 0; ch < decoder.Channels; ch++ {
			raw := int16(pcm[(i+ch)*2]) | int16(pcm[(i+ch)*2+1])<<8
			mixed += float32(raw) / 32768.0
		}
		samples = append(samples, clamp(mixed/float32(decoder.Channels)))
	}
	return samples, decoder.SampleRate, nil
}

func normalize(value int, bitsPerSample uint16) float32 {
	switch bitsPerSample {
	case 8:
		return float32(value) / 128.0
	case 24:
		return float32(value) / 8388608.0
	case 32:
		return float32(value) / 2147483648.0
	default:
		return float32(value) / 32768.0
	}
}

func clamp(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
