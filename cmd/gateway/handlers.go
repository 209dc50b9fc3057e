package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"agent-cag/internal/app"
	"agent-cag/internal/client"
	"agent-cag/internal/httputil"
	"agent-cag/internal/pipeline"
)

const (
	defaultHistoryLimit = 10
	defaultSearchLimit  = 5
	maxListLimit        = 100

	// maxQueryBody bounds a JSON query on HTTP and websocket alike.
	maxQueryBody = 64 << 10
)

func queryHandler(gw app.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxQueryBody)
		var req pipeline.Request
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.FailRequest(gw.Log, w, err)
			return
		}
		resp, err := gw.Pipeline.Process(r.Context(), req)
		if err != nil {
			failPipeline(gw, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func voiceQueryHandler(gw app.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, gw.Config.MaxUploadSize)
		file, header, err := r.FormFile("audio_file")
		if err != nil {
			httputil.Fail(gw.Log, w, "audio_file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "audio/") {
			httputil.Fail(gw.Log, w, "File must be an audio file", nil, http.StatusBadRequest)
			return
		}
		generateSpeech, err := formBool(r, "generate_speech")
		if err != nil {
			httputil.ValidationError(gw.Log, w, err)
			return
		}
		useSardaukar, err := formBool(r, "use_sardaukar")
		if err != nil {
			httputil.ValidationError(gw.Log, w, err)
			return
		}

		resp, err := gw.Pipeline.ProcessVoice(r.Context(), pipeline.VoiceRequest{
			Audio: client.Audio{
				Filename:    header.Filename,
				ContentType: contentType,
				Data:        file,
				Language:    r.FormValue("language"),
			},
			UserID:         r.FormValue("user_id"),
			GenerateSpeech: generateSpeech,
			UseSardaukar:   useSardaukar,
		})
		if err != nil {
			failPipeline(gw, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// speechToTextHandler relays the request body to the asr service unchanged.
func speechToTextHandler(gw app.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := gw.ASR.Forward(r.Context(), "/transcribe", r.Header.Get("Content-Type"), r.Body)
		if err != nil {
			httputil.Fail(gw.Log, w, "asr service unavailable", err, http.StatusServiceUnavailable)
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			gw.Log.Error("failed to copy response", "err", err)
		}
	}
}

func historyHandler(gw app.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		limit, err := queryLimit(r, defaultHistoryLimit)
		if err != nil {
			httputil.ValidationError(gw.Log, w, err)
			return
		}
		history, err := gw.Store.History(r.Context(), userID, limit)
		if err != nil {
			httputil.Fail(gw.Log.With("user_id", userID), w, "failed to load history", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"user_id": userID,
			"history": history,
		})
	}
}

func searchHandler(gw app.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("query"))
		if query == "" {
			httputil.ValidationError(gw.Log, w, errors.New("query parameter is required"))
			return
		}
		limit, err := queryLimit(r, defaultSearchLimit)
		if err != nil {
			httputil.ValidationError(gw.Log, w, err)
			return
		}
		results, err := gw.Store.Search(r.Context(), query, limit)
		if err != nil {
			httputil.Fail(gw.Log, w, "knowledge search failed", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"query":   query,
			"results": results,
		})
	}
}

func healthHandler(gw app.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := gw.Store.Health(ctx); err != nil {
			httputil.Fail(gw.Log, w, "Service unhealthy", err, http.StatusServiceUnavailable)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   gw.Service,
			"profile":   gw.Config.DeploymentProfile,
			"version":   gw.Config.ServiceVersion,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

type healthChecker interface {
	Name() string
	Health(ctx context.Context) (map[string]any, error)
}

// servicesHealthHandler checks every downstream service concurrently.
func servicesHealthHandler(gw app.Gateway) http.HandlerFunc {
	checkers := []healthChecker{gw.LLM, gw.TTS, gw.ASR}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := make([]map[string]any, len(checkers))
		var g errgroup.Group
		for i, c := range checkers {
			g.Go(func() error {
				body, err := c.Health(ctx)
				if err != nil {
					results[i] = map[string]any{"status": "unhealthy", "error": err.Error()}
					return nil
				}
				if body == nil {
					body = map[string]any{}
				}
				if _, ok := body["status"]; !ok {
					body["status"] = "healthy"
				}
				results[i] = body
				return nil
			})
		}
		_ = g.Wait()

		status, code := "healthy", http.StatusOK
		services := make(map[string]any, len(checkers))
		for i, c := range checkers {
			services[c.Name()] = results[i]
			if results[i]["status"] != "healthy" {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			gw.Log.Warn("downstream services unhealthy", "services", services)
		}
		httputil.WriteJSON(w, code, map[string]any{"status": status, "services": services})
	}
}

func failPipeline(gw app.Gateway, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		httputil.ValidationError(gw.Log, w, err)
	case errors.Is(err, pipeline.ErrGeneration):
		httputil.Fail(gw.Log, w, "language model service failed", err, http.StatusBadGateway)
	case errors.Is(err, pipeline.ErrTranscription):
		httputil.Fail(gw.Log, w, "speech recognition failed", err, http.StatusBadGateway)
	default:
		httputil.Fail(gw.Log, w, "query processing failed", err, http.StatusInternalServerError)
	}
}

// queryLimit reads ?limit=, clamped to 1..maxListLimit.
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer: %q", raw)
	}
	return min(max(n, 1), maxListLimit), nil
}

func formBool(r *http.Request, key string) (bool, error) {
	raw := r.FormValue(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %q", key, raw)
	}
	return v, nil
}
