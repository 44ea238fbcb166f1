package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"trade-monitor/internal/hub"
	"trade-monitor/internal/interfaces"
	"trade-monitor/internal/journal"
	"trade-monitor/internal/logger"
	"trade-monitor/internal/monitor"
	"trade-monitor/internal/monitor/monitorobs"
	"trade-monitor/internal/notify"
	"trade-monitor/internal/server"
	"trade-monitor/internal/store"
	"trade-monitor/internal/trace"
)

// components holds everything main needs to run and shut down.
type components struct {
	store     interfaces.TradeStore
	scheduler *monitor.Scheduler
	handler   *gin.Engine
	hub       *hub.Hub
	kafka     *notify.KafkaPublisher
}

// initializeSystem loads the environment and sets up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeJournal compresses old journal files and returns the journal,
// or nil when it is disabled.
func initializeJournal(ctx context.Context, cfg *store.Config) *journal.Journal {
	if !cfg.JournalEnabled() {
		return nil
	}
	j := journal.New(cfg.Journal.Dir)
	n, err := j.CompressOlder(cfg.Journal.RetentionDays)
	if err != nil {
		logger.Warn(ctx, "Failed to compress old journal files", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Compressed old journal files", "count", n)
	}
	return j
}

func initializeKafka(ctx context.Context, cfg *store.Config) *notify.KafkaPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	logger.Info(ctx, "Publishing reload events to Kafka",
		"brokers", cfg.Kafka.Brokers,
		"topic", cfg.Kafka.Topic,
	)
	w := notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	return notify.NewKafkaPublisher(w, cfg.Kafka.Topic)
}

// initializeComponents wires detector, loader, store, listeners and router.
func initializeComponents(ctx context.Context, cfg *store.Config) *components {
	detector := monitor.NewFileChangeDetector(cfg.Watch.Path)
	loader := monitor.NewTableLoader(monitor.LoaderOptionsFromConfig(cfg))
	base := monitor.NewSnapshotStore(cfg.Watch.Path, detector, loader)

	comp := &components{}

	if j := initializeJournal(ctx, cfg); j != nil {
		base.AddListener(j)
	}
	if k := initializeKafka(ctx, cfg); k != nil {
		base.AddListener(k)
		comp.kafka = k
	}

	opts := server.Options{
		APIPrefix:   cfg.Server.APIPrefix,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if cfg.WebSocketEnabled() {
		comp.hub = hub.New(base, cfg.Server.CORSOrigins)
		base.AddListener(comp.hub)
		opts.WebSocketPath = cfg.WebSocket.Path
		opts.WebSocket = http.HandlerFunc(comp.hub.ServeWS)
	}

	gin.SetMode(cfg.Server.GinMode)

	comp.store = monitorobs.Wrap(base)
	comp.scheduler = monitor.NewScheduler(comp.store, cfg.RefreshInterval())
	comp.handler = server.NewRouter(comp.store, opts)

	logger.Info(ctx, "Trade monitor initialized",
		"path", cfg.Watch.Path,
		"format", cfg.ResolvedFormat(),
		"interval", cfg.RefreshInterval().String(),
		"websocket", cfg.WebSocketEnabled(),
		"journal", cfg.JournalEnabled(),
	)
	return comp
}

// shutdownComponents releases push listeners after the HTTP server stops.
func shutdownComponents(ctx context.Context, comp *components) {
	if comp.hub != nil {
		comp.hub.Close()
	}
	if comp.kafka != nil {
		if err := comp.kafka.Close(); err != nil {
			logger.Warn(ctx, "Failed to close Kafka writer", "error", err)
		}
	}
}
