package audio

import "fmt"

// Resample converts samples between rates with linear interpolation. Good
// enough for alarm playback; the realtime path never resamples.
func Resample(input []float32, inputRate, outputRate int) ([]float32, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: input=%d, output=%d", inputRate, outputRate)
	}
	if len(input) == 0 {
		return []float32{}, nil
	}
	if inputRate == outputRate {
		result := make([]float32, len(input))
		copy(result, input)
		return result, nil
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputLength := int(float64(len(input)) / ratio)
	if outputLength <= 0 {
		return []float32{}, nil
	}

	output := make([]float32, outputLength)
	for i := range output {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		if idx >= len(input)-1 {
			output[i] = input[len(input)-1]
			continue
		}
		output[i] = input[idx] + frac*(input[idx+1]-input[idx])
	}
	return output, nil
}
