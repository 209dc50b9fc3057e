//go:build !whisper

package transcribe

import "errors"

// NewWhisper is unavailable without the whisper build tag.
func NewWhisper(string) (Transcriber, error) {
	return nil, errors.New("asr built without whisper.cpp support; rebuild with -tags whisper")
}
