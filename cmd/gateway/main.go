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
	gw, err := app.BuildGateway()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer gw.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", gw.Config.Port),
		Handler:           newRouter(gw),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	gw.Log.Info("gateway listening", "addr", srv.Addr, "profile", gw.Config.DeploymentProfile)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		gw.Log.Error("server failed", "err", err)
	}
}

func newRouter(gw app.Gateway) *chi.Mux {
	r := httputil.NewRouter(gw.Log, "gateway")

	r.Post("/query", queryHandler(gw))
	r.Post("/voice-query", voiceQueryHandler(gw))
	r.Post("/speech-to-text", speechToTextHandler(gw))
	r.Get("/history/{user_id}", historyHandler(gw))
	r.Get("/search", searchHandler(gw))
	r.Post("/knowledge", knowledgeHandler(gw))
	r.Get("/health", healthHandler(gw))
	r.Get("/health/services", servicesHealthHandler(gw))
	r.Get("/ws/query", wsQueryHandler(gw))
	return r
}
