package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/config"
	"github.com/devgenerative/controlefinanciero/internal/handler"
	"github.com/devgenerative/controlefinanciero/internal/repository"
	"github.com/devgenerative/controlefinanciero/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to reach database: %v", err)
	}

	logger.Info("Initializing repositories...")
	store := repository.NewStore(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	accountRepo := repository.NewAccountRepository(db, logger)
	transactionRepo := repository.NewTransactionRepository(db, logger)
	recurringRepo := repository.NewRecurringRepository(db, logger)
	debtRepo := repository.NewDebtRepository(db, logger)
	installmentRepo := repository.NewInstallmentRepository(db, logger)
	emailSender := service.NewEmailSender(cfg.SMTP, logger)

	logger.Info("Initializing services...")
	authService := service.NewAuthService(cfg.JWTSecret, cfg.TokenExpiry, logger)
	recurringService := service.NewRecurringService(recurringRepo, accountRepo, store, logger)
	projectionService := service.NewProjectionService(accountRepo, transactionRepo, recurringRepo, logger)
	debtService := service.NewDebtService(debtRepo, userRepo, store, emailSender, logger)
	installmentService := service.NewInstallmentService(installmentRepo, transactionRepo, store, logger)
	transactionService := service.NewTransactionService(installmentService, store, logger)
	reminderService := service.NewReminderService(transactionRepo, userRepo, emailSender, logger)

	logger.Info("Initializing API handlers...")
	recurringHandler := handler.NewRecurringHandler(recurringService, projectionService, cfg.Location, cfg.ManualGeneration, logger)
	debtHandler := handler.NewDebtHandler(debtService, logger)
	installmentHandler := handler.NewInstallmentHandler(installmentService, logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, logger)

	router := mux.NewRouter()

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(handler.AuthMiddleware(authService, logger))

	recurringHandler.RegisterRoutes(apiRouter.PathPrefix("/recurring").Subrouter())
	debtHandler.RegisterRoutes(apiRouter.PathPrefix("/debts").Subrouter())
	installmentHandler.RegisterRoutes(apiRouter.PathPrefix("/installments").Subrouter())
	transactionHandler.RegisterRoutes(apiRouter.PathPrefix("/transactions").Subrouter())

	logger.Info("Scheduling background jobs...")
	c := cron.New(cron.WithLocation(cfg.Location))
	_, err = c.AddFunc(cfg.GeneratorSchedule, func() {
		report, err := recurringService.ProcessDueTemplates(context.Background(), time.Now().In(cfg.Location))
		if err != nil {
			logger.WithError(err).Error("Recurring generation run failed")
			return
		}
		if report.Failed > 0 {
			logger.WithField("failed", report.Failed).Warn("Some recurring templates stay due for the next run")
		}
	})
	if err != nil {
		logger.Fatalf("Failed to schedule recurring generator: %v", err)
	}
	_, err = c.AddFunc(cfg.ReminderSchedule, func() {
		if _, err := reminderService.SendBillReminders(context.Background(), time.Now().In(cfg.Location)); err != nil {
			logger.WithError(err).Error("Bill reminder run failed")
		}
	})
	if err != nil {
		logger.Fatalf("Failed to schedule bill reminders: %v", err)
	}
	c.Start()

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	// Let a running generator or reminder job finish first.
	<-c.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
