package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

const defaultEspeakVoice = "en+f3"

// espeak-ng voice names: language, optional dialect, optional +variant.
var espeakVoiceName = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]+)*(\+[a-z0-9]+)?$`)

// Espeak shells out to espeak-ng.
type Espeak struct {
	binary string
	speed  int
}

func NewEspeak() *Espeak {
	return &Espeak{binary: "espeak-ng", speed: 150}
}

func (e *Espeak) Name() string { return EngineEspeak }

func (e *Espeak) Synthesize(ctx context.Context, text, voice, path string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty text")
	}
	cmd := exec.CommandContext(ctx, e.binary,
		"-s", fmt.Sprint(e.speed),
		"-v", espeakVoice(voice),
		"-w", path,
		"--", text,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("espeak-ng failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// espeakVoice resolves advertised voice IDs to their espeak-ng equivalent and
// replaces anything espeak-ng cannot load with the default voice.
func espeakVoice(voice string) string {
	for _, v := range Voices() {
		if v.ID == voice {
			return v.Espeak
		}
	}
	if espeakVoiceName.MatchString(voice) {
		return voice
	}
	return defaultEspeakVoice
}
