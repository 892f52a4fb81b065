package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tranquility/internal/app"
	"tranquility/internal/platform/config"
	"tranquility/internal/platform/logger"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Entity logic lives in internal/mapper.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	log.Info("starting tranquility",
		"addr", cfg.Server.Addr,
		"db_driver", cfg.Database.Driver,
		"redis", a.Redis != nil,
		"kafka_brokers", len(cfg.Kafka.Brokers),
		"geocoding", cfg.Geolocation.APIKey != "",
	)
	if err := a.Run(ctx); err != nil {
		log.Error("server stopped with error", "error", err)
		a.Close()
		os.Exit(1)
	}
	log.Info("server stopped")
}
