package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

type Segment struct {
	ID         int     `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	AvgLogprob float64 `json:"avg_logprob"`
}

type Transcription struct {
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Confidence float64   `json:"confidence"`
	Segments   []Segment `json:"segments"`
}

// Audio is an uploaded recording to transcribe.
type Audio struct {
	Filename    string
	ContentType string
	Data        io.Reader
	Language    string
}

// ASR calls the asr service.
type ASR struct {
	*Client
}

func NewASR(baseURL string) *ASR {
	return &ASR{Client: New("asr", baseURL, 120*time.Second)}
}

// Transcribe uploads audio as multipart audio_file to /transcribe.
func (c *ASR) Transcribe(ctx context.Context, audio Audio) (Transcription, error) {
	body, contentType, err := encodeAudioForm(audio)
	if err != nil {
		return Transcription{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", body)
	if err != nil {
		return Transcription{}, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var out Transcription
	if err := c.do(req, &out); err != nil {
		return Transcription{}, err
	}
	return out, nil
}

func encodeAudioForm(audio Audio) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio_file"; filename=%q`, audio.Filename))
	header.Set("Content-Type", audio.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, audio.Data); err != nil {
		return nil, "", fmt.Errorf("failed to copy audio: %w", err)
	}
	if audio.Language != "" {
		if err := mw.WriteField("language", audio.Language); err != nil {
			return nil, "", fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
