// Command generator runs the recurring generator once and exits. It is meant
// for external schedulers and is safe to re-run.
package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/config"
	"github.com/devgenerative/controlefinanciero/internal/repository"
	"github.com/devgenerative/controlefinanciero/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store := repository.NewStore(db, logger)
	recurringService := service.NewRecurringService(
		repository.NewRecurringRepository(db, logger),
		repository.NewAccountRepository(db, logger),
		store,
		logger,
	)

	report, err := recurringService.ProcessDueTemplates(ctx, time.Now().In(cfg.Location))
	if err != nil {
		logger.WithError(err).Error("Recurring generation run failed")
		return 1
	}
	if report.Failed > 0 {
		return 2
	}
	return 0
}
