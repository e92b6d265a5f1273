package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ardash/internal/analytics"
	"github.com/odyssey-erp/ardash/internal/app"
	jobmetrics "github.com/odyssey-erp/ardash/internal/jobs"
	"github.com/odyssey-erp/ardash/internal/platform/cache"
	"github.com/odyssey-erp/ardash/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil || redisClient == nil {
		logger.Error("worker requires redis", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	analyticsCache := analytics.NewCache(redisClient, cfg.CacheTTL)
	analyticsService := analytics.NewService(analyticsCache, analytics.Config{
		UploadTTL:      cfg.UploadTTL,
		LinkedWorkbook: cfg.LinkedWorkbook,
		DayFirst:       cfg.DateDayFirst,
	}, nil)

	metrics := jobmetrics.NewMetrics(nil)
	refreshJob := jobs.NewLinkedRefreshJob(analyticsService, cfg.SnapshotDir, logger, metrics)

	var cron []jobs.CronRegistration
	if analyticsService.HasLinkedWorkbook() {
		refreshTask, err := jobs.NewLinkedRefreshTask("cron", false)
		if err != nil {
			logger.Error("build refresh task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.LinkedRefreshCron, Task: refreshTask})
		if cfg.SnapshotDir != "" {
			snapshotTask, err := jobs.NewLinkedRefreshTask("snapshot", true)
			if err != nil {
				logger.Error("build snapshot task", slog.Any("error", err))
				os.Exit(1)
			}
			cron = append(cron, jobs.CronRegistration{Spec: cfg.SnapshotCron, Task: snapshotTask})
		}
	} else {
		logger.Info("no linked workbook configured, cron disabled")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLinkedRefresh, Handler: refreshJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
