package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"agent-cag/internal/app"
	"agent-cag/internal/chunker"
	"agent-cag/internal/httputil"
	"agent-cag/internal/index"
	"agent-cag/internal/queue"
)

var allowedKnowledgeTypes = map[string]bool{
	"text/plain":      true,
	"application/pdf": true,
}

// knowledgeHandler chunks an uploaded document and queues it for indexing.
func knowledgeHandler(gw app.Gateway) http.HandlerFunc {
	maxFileSize := gw.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.ContentLength > maxFileSize {
			httputil.Fail(gw.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+1024)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(gw.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(gw.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			switch strings.ToLower(filepath.Ext(header.Filename)) {
			case ".txt":
				contentType = "text/plain"
			case ".pdf":
				contentType = "application/pdf"
			}
		}
		if !allowedKnowledgeTypes[contentType] {
			httputil.Fail(gw.Log, w, "unsupported file type (only PDF and TXT allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(gw.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := extractText(contentType, content)
		if err != nil {
			httputil.ValidationError(gw.Log, w, fmt.Errorf("could not parse %s: %w", header.Filename, err))
			return
		}
		if strings.TrimSpace(text) == "" {
			httputil.ValidationError(gw.Log, w, fmt.Errorf("no text found in %s", header.Filename))
			return
		}

		documentID := uuid.NewString()
		log := gw.Log.With("document_id", documentID, "filename", header.Filename)
		task, payload, err := index.NewTask(documentID, header.Filename, text, chunker.Options{})
		if err != nil {
			httputil.Fail(log, w, "failed to prepare document", err, http.StatusInternalServerError)
			return
		}
		if err := queue.EnqueueWithRetry(ctx, gw.Queue, task, 3, 200*time.Millisecond); err != nil {
			httputil.Fail(log, w, "failed to enqueue document; please retry", err, http.StatusInternalServerError)
			return
		}

		log.Info("document queued for indexing", "chunks", len(payload.Chunks))
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id": documentID,
			"filename":    header.Filename,
			"chunks":      len(payload.Chunks),
		})
	}
}

// extractText returns the plain text of an upload.
func extractText(contentType string, content []byte) (string, error) {
	if contentType != "application/pdf" {
		return string(content), nil
	}
	return extractPDF(content)
}

// extractPDF reports a malformed document as an error; the pdf reader panics on
// some broken object streams.
func extractPDF(content []byte) (_ string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
