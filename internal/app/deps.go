package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"agent-cag/internal/config"
	"agent-cag/internal/logger"
	"agent-cag/internal/telemetry"
)

// Deps bundles the runtime dependencies every service shares.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Service  string
	shutdown telemetry.ShutdownFunc
	closers  []func() error
}

// Build loads the env file, config, logger and telemetry for service.
func Build(service string) (Deps, error) {
	if err := loadEnv(os.Args[1:]); err != nil {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if _, set := os.LookupEnv("PORT"); !set {
		cfg.Port = defaultPort(service, cfg.Port)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat).With("service", service)

	shutdown, err := telemetry.Init(service, cfg.ServiceVersion, telemetry.Config{
		Exporter:     cfg.TelemetryExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return Deps{Config: cfg, Log: log, Service: service, shutdown: shutdown}, nil
}

// defaultPorts keeps each service on its own port when PORT is unset.
var defaultPorts = map[string]int{
	"agent-api":     8000,
	"agent-asr":     8001,
	"agent-llm":     8002,
	"agent-tts":     8003,
	"agent-indexer": 8005,
}

func defaultPort(service string, fallback int) int {
	if p, ok := defaultPorts[service]; ok {
		return p
	}
	return fallback
}

// loadEnv reads the file named by --env/-e. A missing default .env is fine;
// a missing file that was asked for explicitly is not.
func loadEnv(args []string) error {
	flags := pflag.NewFlagSet("agent-cag", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	envFile := flags.StringP("env", "e", ".env", "Env file path")
	if err := flags.Parse(args); err != nil {
		return err
	}
	err := godotenv.Load(*envFile)
	if err != nil && errors.Is(err, fs.ErrNotExist) && !flags.Changed("env") {
		return nil
	}
	return err
}

func (d *Deps) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close releases components in reverse build order and flushes telemetry.
func (d Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Log.Warn("close failed", "err", err)
		}
	}
	if d.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.shutdown(ctx); err != nil {
		d.Log.Warn("telemetry shutdown failed", "err", err)
	}
}
