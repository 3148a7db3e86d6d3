package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"footprint/internal/amqp"
	"footprint/internal/backend"
	"footprint/internal/cli"
	"footprint/internal/core"
	apphttp "footprint/internal/http"
	"footprint/internal/log"
	"footprint/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	result, err := backend.Open(cfg)
	if err != nil {
		logger.Error("Failed to open data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}
	stores := result.Stores
	logger.Info("Data backend initialized", "backend", cfg.DataBackend)

	// The recompute queue only makes sense on the shared SQLite database the
	// worker also reads. On the memory backend averages recompute inline.
	var publisher services.RecomputePublisher
	if cfg.DataBackend == string(backend.SQLite) && cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, recomputing averages inline", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	averager := services.NewAverager(stores.Events, stores.Summaries)
	svc := services.NewFootprintService(stores.Events, stores.Factors, core.DefaultIntensities(), averager, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, svc, stores.Summaries)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting footprint server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
