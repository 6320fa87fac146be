package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocketbook/internal/interfaces/scheduler"
	"pocketbook/internal/shared/config"
	"pocketbook/internal/shared/logging"
	"pocketbook/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{Level: cfg.App.LogLevel, Format: cfg.App.LogFormat}, "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var telemetryShutdown func(context.Context) error
	if cfg.Telemetry.Enabled {
		telemetryShutdown, err = telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
			SampleRatio:  cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return err
		}
		slog.Info("Telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go deps.OTPLimiter.RunCleanup(5*time.Minute, stopCleanup)

	// Initialize scheduler (if enabled)
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.NewScheduler(scheduler.SchedulerConfig{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			WorkerCount:   cfg.Scheduler.WorkerCount,
			JobDelay:      cfg.Scheduler.JobDelay,
			QueueSize:     cfg.Scheduler.QueueSize,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider:   scheduler.ReminderJobs(deps.ReminderService),
			Location:      cfg.App.Location,
		})
		if err != nil {
			deps.Close()
			return err
		}
		sched.Start()
		slog.Info("Scheduler started", "times", cfg.Scheduler.ScheduleTimes)
	} else {
		slog.Info("Scheduler is disabled")
	}

	handler := SetupRoutes(deps, cfg)
	srv, redirectSrv := StartServers(NewServerConfigFromConfig(handler, cfg))

	<-ctx.Done()
	GracefulShutdown(srv, redirectSrv, sched, deps, telemetryShutdown, shutdownTimeout)
	return nil
}
