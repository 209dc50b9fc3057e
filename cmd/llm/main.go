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
	"agent-cag/internal/llm"
)

func main() {
	svc, err := app.BuildLLM()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ollama, ok := svc.Generator.Provider().(*llm.OllamaProvider); ok {
		go ollama.EnsureModel(ctx, svc.Log)
	}

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

	svc.Log.Info("llm service listening", "addr", srv.Addr, "provider", svc.Generator.Provider().Name())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		svc.Log.Error("server failed", "err", err)
	}
}

func newRouter(svc app.LLMService) *chi.Mux {
	r := httputil.NewRouter(svc.Log, "llm")
	r.Post("/generate", generateHandler(svc, ""))
	r.Post("/chat", generateHandler(svc, llm.DefaultSystemPrompt))
	r.Get("/models", modelsHandler(svc))
	r.Get("/health", healthHandler(svc))
	return r
}
