package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pocketbook/internal/domain/goal"
	"pocketbook/internal/domain/notification"
	"pocketbook/internal/domain/reconciliation"
	"pocketbook/internal/domain/reminder"
	"pocketbook/internal/domain/report"
	"pocketbook/internal/domain/transaction"
	"pocketbook/internal/domain/user"
	"pocketbook/internal/infrastructure/amqp"
	"pocketbook/internal/infrastructure/firebase"
	"pocketbook/internal/infrastructure/mailer"
	"pocketbook/internal/infrastructure/pdf"
	"pocketbook/internal/infrastructure/postgres"
	httphandlers "pocketbook/internal/interfaces/http"
	"pocketbook/internal/interfaces/scheduler"
	"pocketbook/internal/shared/auth"
	"pocketbook/internal/shared/config"
	"pocketbook/internal/shared/messages"
	"pocketbook/internal/shared/middleware"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler         *httphandlers.AuthHandler
	UserHandler         *httphandlers.UserHandler
	TransactionHandler  *httphandlers.TransactionHandler
	BudgetHandler       *httphandlers.BudgetHandler
	GoalHandler         *httphandlers.GoalHandler
	ReminderHandler     *httphandlers.ReminderHandler
	ReportHandler       *httphandlers.ReportHandler
	NotificationHandler *httphandlers.NotificationHandler
	HealthHandler       *httphandlers.HealthHandler

	// Auth
	JWT        *auth.JWT
	OTPLimiter *middleware.RateLimiter

	// Reminder sweep, for the scheduler job provider
	ReminderService *reminder.Service

	// Event transport; exactly one of these is set
	EventPool  *scheduler.WorkerPool
	AMQPClient *amqp.Client
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	if cfg.Database.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.Database.ConnectionString()); err != nil {
			return nil, err
		}
		slog.Info("Database migrations applied")
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to database")

	deps := &Dependencies{DB: db}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	budgetRepo := postgres.NewBudgetRepository(db)
	goalRepo := postgres.NewGoalRepository(db)
	reminderRepo := postgres.NewReminderRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		deps.Close()
		return nil, err
	}

	// Event handlers are attached below, once the services that publish
	// through the dispatcher exist.
	var handlers notification.Fanout
	var publisher notification.Publisher
	switch cfg.Notify.Transport {
	case config.TransportAMQP:
		client, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("connect to event broker: %w", err)
		}
		deps.AMQPClient = client
		publisher = client
		slog.Info("Publishing events to AMQP", "exchange", cfg.AMQP.Exchange, "queue", cfg.AMQP.Queue)
	default:
		pool := scheduler.NewWorkerPool(cfg.Notify.WorkerCount, 0, cfg.Notify.QueueSize)
		pool.Start()
		deps.EventPool = pool
		publisher = scheduler.NewEventDispatcher(pool, notification.HandlerFunc(func(ctx context.Context, e notification.Event) error {
			return handlers.HandleEvent(ctx, e)
		}))
		slog.Info("Dispatching events in process", "workers", cfg.Notify.WorkerCount)
	}

	loc := cfg.App.Location
	now := func() time.Time { return time.Now().In(loc) }

	// Initialize domain services
	transactionService := transaction.NewService(transactionRepo, publisher)
	reconciliationService := reconciliation.NewService(budgetRepo, transactionRepo, publisher, now)
	goalService := goal.NewService(goalRepo, publisher, now)
	reminderService := reminder.NewService(reminderRepo, publisher, now)
	reportService := report.NewService(budgetRepo, transactionRepo, now)

	jwt := auth.NewJWTWithTTL(cfg.JWT.Secret, cfg.JWT.TTL)
	userService := user.NewService(userRepo, jwt, auth.BcryptHasher{}, mail, reconciliationService)

	// With AMQP transport the notifier process sends; this instance only
	// serves history and preferences.
	notificationService := notification.NewService(notificationRepo, userRepo, nil, nil, nil)
	if deps.EventPool != nil {
		notificationService, err = newNotificationService(ctx, cfg, notificationRepo, userRepo, mail)
		if err != nil {
			deps.Close()
			return nil, err
		}
		handlers = notification.Fanout{notificationService, reconciliationService}
	}

	deps.JWT = jwt
	deps.OTPLimiter = middleware.NewRateLimiter(cfg.RateLimit.OTPPerMinute, cfg.RateLimit.OTPBurst)
	deps.ReminderService = reminderService

	// Initialize handlers
	deps.AuthHandler = httphandlers.NewAuthHandler(userService, cfg.JWT.TTL)
	deps.UserHandler = httphandlers.NewUserHandler(userService)
	deps.TransactionHandler = httphandlers.NewTransactionHandler(transactionService, reconciliationService, loc)
	deps.BudgetHandler = httphandlers.NewBudgetHandler(reconciliationService)
	deps.GoalHandler = httphandlers.NewGoalHandler(goalService, loc)
	deps.ReminderHandler = httphandlers.NewReminderHandler(reminderService, loc)
	deps.ReportHandler = httphandlers.NewReportHandler(reportService, pdf.NewRenderer())
	deps.NotificationHandler = httphandlers.NewNotificationHandler(notificationService)
	deps.HealthHandler = httphandlers.NewHealthHandler(db)

	return deps, nil
}

// newNotificationService builds the sending notification service. Push is
// skipped when no Firebase credentials are configured.
func newNotificationService(ctx context.Context, cfg *config.Config, repo *postgres.NotificationRepository, recipients notification.RecipientFinder, mail *mailer.Mailer) (*notification.Service, error) {
	texts := messages.Defaults()
	if cfg.App.MessagesFile != "" {
		loaded, err := messages.Load(cfg.App.MessagesFile)
		if err != nil {
			return nil, err
		}
		texts = loaded
	}

	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		client, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, repo)
		if err != nil {
			return nil, err
		}
		messenger = client
		slog.Info("Firebase push notifications enabled")
	} else {
		slog.Info("Firebase credentials not configured, push notifications disabled")
	}

	return notification.NewService(repo, recipients, mail, messenger, texts), nil
}

// Close releases all resources held by dependencies. Queued events get
// five seconds to drain.
func (d *Dependencies) Close() {
	d.closeWithTimeout(5 * time.Second)
}

func (d *Dependencies) closeWithTimeout(timeout time.Duration) {
	if d.EventPool != nil {
		if !d.EventPool.ShutdownWithTimeout(timeout) {
			slog.Warn("Event pool shutdown timed out, pending notifications dropped")
		}
	}
	if d.AMQPClient != nil {
		if err := d.AMQPClient.Close(); err != nil {
			slog.Warn("Error closing AMQP connection", "error", err)
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
