// Command notifier consumes notification events from RabbitMQ and delivers
// them. It runs the budget alert policy too, publishing any alert back to
// the same exchange.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocketbook/internal/domain/notification"
	"pocketbook/internal/domain/reconciliation"
	"pocketbook/internal/infrastructure/amqp"
	"pocketbook/internal/infrastructure/firebase"
	"pocketbook/internal/infrastructure/mailer"
	"pocketbook/internal/infrastructure/postgres"
	"pocketbook/internal/shared/config"
	"pocketbook/internal/shared/logging"
	"pocketbook/internal/shared/messages"
	"pocketbook/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Notifier error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(logging.Config{Level: cfg.App.LogLevel, Format: cfg.App.LogFormat}, "notifier")
	logger.Info("Starting notifier")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName + "-notifier",
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
			SampleRatio:  cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error("Error shutting down telemetry", "error", err)
			}
		}()
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
	if err != nil {
		return err
	}
	defer client.Close()

	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		return err
	}

	texts := messages.Defaults()
	if cfg.App.MessagesFile != "" {
		if texts, err = messages.Load(cfg.App.MessagesFile); err != nil {
			return err
		}
	}

	notificationRepo := postgres.NewNotificationRepository(db)

	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, notificationRepo)
		if err != nil {
			return err
		}
		messenger = fcm
		logger.Info("Firebase push notifications enabled")
	}

	loc := cfg.App.Location
	now := func() time.Time { return time.Now().In(loc) }

	notificationService := notification.NewService(notificationRepo, postgres.NewUserRepository(db), mail, messenger, texts)
	reconciliationService := reconciliation.NewService(
		postgres.NewBudgetRepository(db),
		postgres.NewTransactionRepository(db),
		client,
		now,
	)
	handlers := notification.Fanout{notificationService, reconciliationService}

	err = client.Consume(ctx, handlers)
	if errors.Is(err, context.Canceled) {
		logger.Info("Notifier stopped")
		return nil
	}
	return err
}
