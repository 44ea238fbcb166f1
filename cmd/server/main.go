package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-monitor/internal/logger"
	"trade-monitor/internal/trace"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		os.Exit(1)
	}

	comp := initializeComponents(ctx, cfg)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           comp.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		comp.scheduler.Run(ctx)
	}()

	srvErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down...")
	case err := <-srvErr:
		if err != nil {
			logger.ErrorWithErr(context.Background(), "HTTP server failed", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "HTTP server shutdown incomplete", "error", err)
	}
	<-schedDone
	shutdownComponents(shutdownCtx, comp)

	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "Failed to flush tracer", "error", err)
	}
	logger.Info(shutdownCtx, "Trade monitor stopped")
}
