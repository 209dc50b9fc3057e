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
	"golang.org/x/sync/errgroup"

	"agent-cag/internal/app"
	"agent-cag/internal/httputil"
	"agent-cag/internal/queue"
)

func main() {
	svc, err := app.BuildIndexer()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer svc.Close()
	svc.Log.Info("indexer worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Queue.Worker(ctx, queue.TaskTypeIndex, svc.Indexer.Handle)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", svc.Config.Port),
		Handler:           newRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		svc.Log.Error("indexer stopped", "err", err)
	}
}

func newRouter(svc app.Indexer) *chi.Mux {
	r := httputil.NewRouter(svc.Log, "indexer")
	r.Get("/healthz", httputil.HealthHandler(svc.Log))
	r.Get("/health", healthHandler(svc))
	return r
}

// healthHandler reports unhealthy when the index store cannot be reached.
func healthHandler(svc app.Indexer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := svc.Store.Health(ctx); err != nil {
			httputil.Fail(svc.Log, w, "Service unhealthy", err, http.StatusServiceUnavailable)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": svc.Service})
	}
}
