package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pocketbook/internal/domain/budget"
	"pocketbook/internal/domain/notification"
	"pocketbook/internal/domain/reminder"
	"pocketbook/internal/infrastructure/amqp"
	"pocketbook/internal/infrastructure/mailer"
	"pocketbook/internal/infrastructure/postgres"
	"pocketbook/internal/interfaces/scheduler"
	"pocketbook/internal/shared/config"
	"pocketbook/internal/shared/logging"
)

const usage = `Pocketbook Admin CLI - Management commands for the Pocketbook API

Usage:
  admin <command> [options]

Commands:
  migrate           Apply pending database migrations
  reminder-sweep    Send due bill reminder notifications now
  send-test-email   Send a sample notification email to check SMTP settings
  create-user       Register an account without the API

Examples:
  # Apply migrations
  admin migrate

  # Run the reminder sweep with a custom timeout
  admin reminder-sweep --timeout=2m

  # Check SMTP settings
  admin send-test-email --to=you@example.com --name=You

  # Create an account, prompting for the password
  admin create-user --email=you@example.com --name=You
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		runMigrate(os.Args[2:])
	case "reminder-sweep":
		runReminderSweep(os.Args[2:])
	case "send-test-email":
		runSendTestEmail(os.Args[2:])
	case "create-user":
		runCreateUser(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage + "\n")
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal("Failed to load config", err)
	}
	logging.Setup(logging.Config{Level: cfg.App.LogLevel, Format: "text"}, "admin")
	return cfg
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println("Usage: admin migrate")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	startTime := time.Now()
	if err := postgres.RunMigrations(cfg.Database.ConnectionString()); err != nil {
		fatal("Migration failed", err)
	}
	slog.Info("Migrations applied", "elapsed", time.Since(startTime))
}

func runReminderSweep(args []string) {
	fs := flag.NewFlagSet("reminder-sweep", flag.ExitOnError)
	timeoutStr := fs.String("timeout", "5m", "Timeout for the operation (e.g., 30s, 5m)")

	fs.Usage = func() {
		fmt.Println("Usage: admin reminder-sweep [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		fatal("Invalid timeout format", err)
	}

	cfg := loadConfig()

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		fatal("Failed to connect to database", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	publisher, closePublisher, err := newPublisher(cfg, db)
	if err != nil {
		fatal("Failed to set up event publisher", err)
	}

	loc := cfg.App.Location
	now := func() time.Time { return time.Now().In(loc) }
	reminderService := reminder.NewService(postgres.NewReminderRepository(db), publisher, now)

	startTime := time.Now()
	sent, err := reminderService.SweepDue(ctx)
	closePublisher(timeout)
	if err != nil {
		fatal("Reminder sweep failed", err)
	}

	fmt.Printf("\n=== Reminder sweep ===\n")
	fmt.Printf("  Reminders sent: %d\n", sent)
	fmt.Printf("  Elapsed:        %v\n", time.Since(startTime))
}

// newPublisher returns the configured event transport. With in-process
// delivery, closing waits for queued notifications to be sent.
func newPublisher(cfg *config.Config, db *postgres.DB) (notification.Publisher, func(time.Duration), error) {
	if cfg.Notify.Transport == config.TransportAMQP {
		client, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
		if err != nil {
			return nil, nil, err
		}
		return client, func(time.Duration) { client.Close() }, nil
	}

	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		return nil, nil, err
	}
	notificationRepo := postgres.NewNotificationRepository(db)
	notificationService := notification.NewService(notificationRepo, postgres.NewUserRepository(db), mail, nil, nil)

	pool := scheduler.NewWorkerPool(cfg.Notify.WorkerCount, 0, cfg.Notify.QueueSize)
	pool.Start()
	dispatcher := scheduler.NewEventDispatcher(pool, notificationService)
	return dispatcher, func(timeout time.Duration) {
		if !pool.ShutdownWithTimeout(timeout) {
			slog.Warn("Timed out waiting for notifications to send")
		}
	}, nil
}

func runSendTestEmail(args []string) {
	fs := flag.NewFlagSet("send-test-email", flag.ExitOnError)
	to := fs.String("to", "", "Recipient email address")
	name := fs.String("name", "there", "Recipient name used in the greeting")

	fs.Usage = func() {
		fmt.Println("Usage: admin send-test-email --to=<address> [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *to == "" {
		fmt.Println("Error: must specify --to")
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig()
	if !cfg.Mail.Enabled {
		slog.Warn("MAIL_ENABLED is false, the message will only be logged")
	}

	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		fatal("Failed to create mailer", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	e := notification.NewEvent(notification.EventBudgetSet, 0, map[string]string{
		notification.DataAmount: "1000.00",
		notification.DataPeriod: budget.PeriodOf(time.Now().In(cfg.App.Location)).String(),
	})
	recipient := notification.Recipient{Email: *to, Name: *name}
	if err := mail.SendEventEmail(ctx, recipient, e); err != nil {
		fatal("Failed to send test email", err)
	}
	slog.Info("Test email sent", "to", *to)
}
