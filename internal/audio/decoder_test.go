package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndDecodeWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.wav")
	original := SynthesizeBeep(24000, 2)
	require.NoError(t, SaveToWAV(path, original, 24000))

	decoded, rate, err := NewDecoder().DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 24000, rate)
	require.Len(t, decoded, len(original))

	// 16-bit quantization allows a small error.
	for i := 0; i < len(original); i += 500 {
		assert.InDelta(t, original[i], decoded[i], 0.001)
	}
}

func TestDecodeWAVWithLyingDataSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liar.wav")
	samples := SynthesizeBeep(24000, 1)
	require.NoError(t, SaveToWAV(path, samples, 24000))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Corrupt the declared data-chunk size the way some streaming TTS
	// writers do when they cannot seek back.
	binary.LittleEndian.PutUint32(data[40:44], 0xFFFFFFFF)

	decoded, rate, err := NewDecoder().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 24000, rate)
	assert.Len(t, decoded, len(samples))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := NewDecoder().Decode([]byte("definitely not audio data"))
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "wav", detectFormat([]byte("RIFFxxxxWAVE")))
	assert.Equal(t, "mp3", detectFormat([]byte("ID3\x04\x00")))
	assert.Equal(t, "mp3", detectFormat([]byte{0xFF, 0xFB, 0x90}))
	assert.Equal(t, "unknown", detectFormat([]byte("????")))
}

func TestResample(t *testing.T) {
	input := make([]float32, 24000)
	for i := range input {
		input[i] = float32(i) / 24000
	}

	t.Run("same rate copies", func(t *testing.T) {
		out, err := Resample(input, 24000, 24000)
		require.NoError(t, err)
		assert.Equal(t, input, out)
	})

	t.Run("downsample halves length", func(t *testing.T) {
		out, err := Resample(input, 24000, 12000)
		require.NoError(t, err)
		assert.InDelta(t, len(input)/2, len(out), 1)
	})

	t.Run("upsample preserves endpoints", func(t *testing.T) {
		out, err := Resample(input, 24000, 48000)
		require.NoError(t, err)
		assert.InDelta(t, input[0], out[0], 0.0001)
		assert.InDelta(t, input[len(input)-1], out[len(out)-1], 0.001)
	})

	t.Run("invalid rates fail", func(t *testing.T) {
		_, err := Resample(input, 0, 24000)
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		out, err := Resample(nil, 24000, 48000)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}
