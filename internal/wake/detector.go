package wake

import (
	"fmt"

	porcupine "github.com/Picovoice/porcupine/binding/go/v2"
)

// Detector wraps a Porcupine engine for one listening cycle. The engine holds
// native resources, so a Detector is created fresh each time the assistant
// goes back to sleep and released with Close before a session starts.
type Detector struct {
	engine porcupine.Porcupine
}

func NewDetector(accessKey, keywordPath string) (*Detector, error) {
	d := &Detector{
		engine: porcupine.Porcupine{
			AccessKey:    accessKey,
			KeywordPaths: []string{keywordPath},
		},
	}
	if err := d.engine.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize wake word engine: %w", err)
	}
	return d, nil
}

// FrameLength is the number of samples Detect expects per call.
func (d *Detector) FrameLength() int {
	return porcupine.FrameLength
}

// SampleRate is the capture rate the engine requires.
func (d *Detector) SampleRate() int {
	return porcupine.SampleRate
}

// Detect processes one frame of 16-bit PCM and reports whether the wake
// phrase was heard.
func (d *Detector) Detect(frame []int16) (bool, error) {
	index, err := d.engine.Process(frame)
	if err != nil {
		return false, fmt.Errorf("failed to process audio frame: %w", err)
	}
	return index >= 0, nil
}

func (d *Detector) Close() error {
	return d.engine.Delete()
}
