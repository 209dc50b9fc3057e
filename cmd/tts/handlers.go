package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agent-cag/internal/app"
	"agent-cag/internal/httputil"
	"agent-cag/internal/speech"
)

func synthesizeHandler(svc app.TTSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req speech.Request
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.FailRequest(svc.Log, w, err)
			return
		}
		res, err := svc.Speech.Synthesize(r.Context(), req)
		if err != nil {
			httputil.Fail(svc.Log, w, "TTS synthesis failed", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func audioHandler(svc app.TTSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := svc.Files.Lookup(chi.URLParam(r, "filename"))
		switch {
		case errors.Is(err, speech.ErrInvalidName):
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Detail: "Invalid filename"})
			return
		case err != nil:
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Detail: "Audio file not found"})
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		http.ServeFile(w, r, path)
	}
}

func voicesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"voices": speech.Voices()})
	}
}

func healthHandler(svc app.TTSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":            "healthy",
			"service":           svc.Service,
			"model":             svc.Config.PiperModel,
			"engine":            svc.Speech.Engine(),
			"sardaukar_enabled": svc.Translator.Enabled(),
		})
	}
}
