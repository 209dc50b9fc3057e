package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"agent-cag/internal/app"
	"agent-cag/internal/httputil"
)

func main() {
	svc, err := app.BuildTTS()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", svc.Config.Port),
		Handler:           newRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	svc.Log.Info("tts service listening", "addr", srv.Addr, "engine", svc.Speech.Engine(), "output_dir", svc.Files.Dir())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		svc.Log.Error("server failed", "err", err)
	}
}

func newRouter(svc app.TTSService) *chi.Mux {
	r := httputil.NewRouter(svc.Log, "tts")
	r.Post("/synthesize", synthesizeHandler(svc))
	r.Get("/audio/{filename}", audioHandler(svc))
	r.Get("/voices", voicesHandler())
	r.Post("/voices", voicesHandler())
	r.Get("/health", healthHandler(svc))
	return r
}
