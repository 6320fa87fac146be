package main

import (
	"log/slog"
	"net/http"

	"pocketbook/internal/shared/config"
	"pocketbook/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", deps.HealthHandler.HandleHealth)

	// Public auth routes
	otpLimit := middleware.RateLimit(deps.OTPLimiter, cfg.Server.TrustedProxies)
	mux.HandleFunc("POST /api/auth/register", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", deps.AuthHandler.HandleLogin)
	mux.Handle("POST /api/auth/send-otp", otpLimit(http.HandlerFunc(deps.AuthHandler.HandleSendOTP)))
	mux.Handle("POST /api/auth/verify-otp", otpLimit(http.HandlerFunc(deps.AuthHandler.HandleVerifyOTP)))
	mux.HandleFunc("POST /api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(h))
	}

	protect("GET /api/users/me", deps.UserHandler.HandleGetMe)
	protect("PUT /api/users/me", deps.UserHandler.HandleUpdateMe)
	protect("POST /api/users/change-password", deps.UserHandler.HandleChangePassword)

	protect("GET /api/transactions", deps.TransactionHandler.HandleListTransactions)
	protect("POST /api/transactions", deps.TransactionHandler.HandleCreateTransaction)
	protect("GET /api/transactions/summary", deps.TransactionHandler.HandleSummary)
	protect("GET /api/transactions/category-summary", deps.TransactionHandler.HandleCategorySummary)
	protect("GET /api/transactions/monthly-summary", deps.TransactionHandler.HandleMonthlySummary)
	protect("GET /api/transactions/{id}", deps.TransactionHandler.HandleGetTransaction)
	protect("PUT /api/transactions/{id}", deps.TransactionHandler.HandleUpdateTransaction)
	protect("DELETE /api/transactions/{id}", deps.TransactionHandler.HandleDeleteTransaction)

	protect("POST /api/budget", deps.BudgetHandler.HandleSetBudget)
	protect("GET /api/budget/check", deps.BudgetHandler.HandleCheckBudget)
	protect("GET /api/budget/summary", deps.BudgetHandler.HandleBudgetSummary)

	protect("GET /api/savings-goals", deps.GoalHandler.HandleListGoals)
	protect("POST /api/savings-goals", deps.GoalHandler.HandleCreateGoal)
	protect("GET /api/savings-goals/{id}", deps.GoalHandler.HandleGetGoal)
	protect("PUT /api/savings-goals/{id}", deps.GoalHandler.HandleUpdateGoal)
	protect("DELETE /api/savings-goals/{id}", deps.GoalHandler.HandleDeleteGoal)
	protect("POST /api/savings-goals/{id}/add", deps.GoalHandler.HandleAddFunds)

	protect("GET /api/bill-reminders", deps.ReminderHandler.HandleListReminders)
	protect("POST /api/bill-reminders", deps.ReminderHandler.HandleCreateReminder)
	protect("GET /api/bill-reminders/{id}", deps.ReminderHandler.HandleGetReminder)
	protect("PUT /api/bill-reminders/{id}", deps.ReminderHandler.HandleUpdateReminder)
	protect("DELETE /api/bill-reminders/{id}", deps.ReminderHandler.HandleDeleteReminder)
	protect("POST /api/bill-reminders/{id}/mark-paid", deps.ReminderHandler.HandleMarkPaid)

	protect("GET /api/reports/monthly", deps.ReportHandler.HandleMonthlyReport)

	protect("POST /api/notifications/devices", deps.NotificationHandler.HandleRegisterDevice)
	protect("GET /api/notifications/preferences", deps.NotificationHandler.HandleGetPreferences)
	protect("PUT /api/notifications/preferences", deps.NotificationHandler.HandleUpdatePreferences)
	protect("GET /api/notifications", deps.NotificationHandler.HandleListNotifications)
	protect("POST /api/notifications/{id}/open", deps.NotificationHandler.HandleOpen)

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		slog.Info("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(middleware.Tracing(handler))
	}

	return handler
}
