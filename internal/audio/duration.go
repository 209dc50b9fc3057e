package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// WAVDuration reads the length of a WAV file in seconds from its header.
func WAVDuration(r io.ReadSeeker) (float64, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav header")
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to read wav duration: %w", err)
	}
	return d.Seconds(), nil
}
