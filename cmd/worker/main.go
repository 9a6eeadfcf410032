package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/minho/rnd-harvester/internal/config"
	"github.com/minho/rnd-harvester/internal/db"
	"github.com/minho/rnd-harvester/internal/docconv"
	"github.com/minho/rnd-harvester/internal/pipeline"
	"github.com/minho/rnd-harvester/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Error("apply migrations", "error", err)
		os.Exit(1)
	}

	classifier, err := pipeline.NewClassifier()
	if err != nil {
		log.Error("load classifier rules", "error", err)
		os.Exit(1)
	}

	conv := docconv.New(cfg.HWPConvertURL)
	defer conv.Close()

	store := db.NewStore(pool)
	proc := pipeline.NewProcessor(store, conv, classifier, log)

	w := worker.New(store, proc, worker.Options{
		WorkerID:      cfg.WorkerID,
		MaxJobs:       cfg.MaxJobs,
		PollInterval:  cfg.PollInterval,
		MaxRetries:    cfg.MaxRetries,
		IdlePollLimit: cfg.IdlePollLimit,
		DateRange:     cfg.DateRange,
	}, log)

	log.Info("worker starting", "worker", cfg.WorkerID, "date_range", cfg.DateRange)
	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
