package main

import (
	"net/http"
	"strings"

	"agent-cag/internal/app"
	"agent-cag/internal/httputil"
	"agent-cag/internal/transcribe"
)

// openAIModel is the hosted model name the openai engine reports.
const openAIModel = "whisper-1"

func transcribeHandler(svc app.ASRService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, svc.Config.MaxUploadSize)
		file, header, err := r.FormFile("audio_file")
		if err != nil {
			httputil.Fail(svc.Log, w, "audio_file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if !strings.HasPrefix(header.Header.Get("Content-Type"), "audio/") {
			httputil.Fail(svc.Log, w, "File must be an audio file", nil, http.StatusBadRequest)
			return
		}

		log := svc.Log.With("filename", header.Filename, "size", header.Size)
		res, err := svc.Transcriber.Transcribe(r.Context(), transcribe.Input{
			Filename: header.Filename,
			Data:     file,
			Language: r.FormValue("language"),
		})
		if err != nil {
			httputil.Fail(log, w, "Transcription failed", err, http.StatusInternalServerError)
			return
		}
		log.Info("transcribed audio", "language", res.Language, "chars", len(res.Text))
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func streamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotImplemented, httputil.ErrorResponse{Detail: "Streaming transcription not yet implemented"})
	}
}

func healthHandler(svc app.ASRService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine := svc.Transcriber.Name()
		model := svc.Config.WhisperModel
		if engine == transcribe.EngineOpenAI {
			model = openAIModel
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":  "healthy",
			"service": svc.Service,
			"engine":  engine,
			"model":   model,
		})
	}
}
