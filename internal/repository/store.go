package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAccountNotFound = errors.New("account not found")
)

// Tx is the set of writes that must commit or roll back together. Every method
// runs inside the surrounding database transaction.
type Tx interface {
	// LockTemplate re-reads a recurring template and holds its row until commit,
	// serialising concurrent generator runs on the same template.
	LockTemplate(ctx context.Context, id uuid.UUID) (*model.RecurringTemplate, error)
	HasRecurringTransaction(ctx context.Context, templateID uuid.UUID, year int, month time.Month) (bool, error)
	AdvanceTemplate(ctx context.Context, id uuid.UUID, nextRun, processedAt time.Time) error

	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FirstActiveAccount(ctx context.Context, userID uuid.UUID) (*model.Account, error)
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error

	LockDebt(ctx context.Context, id uuid.UUID) (*model.Debt, error)
	IncrementPaidInstallments(ctx context.Context, id uuid.UUID) (*model.Debt, error)

	CreateInstallmentPlan(ctx context.Context, plan *model.InstallmentPlan) error
}

type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewStore(db *sql.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// WithinTx runs fn inside one database transaction. Any error from fn rolls
// everything back.
func (s *Store) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, logger: s.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx     *sql.Tx
	logger *logrus.Logger
}

// mapWriteError turns constraint violations on account references into
// ErrAccountNotFound.
func mapWriteError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
		if strings.Contains(pqErr.Constraint, "account") {
			return fmt.Errorf("failed to %s: %w", op, ErrAccountNotFound)
		}
		return fmt.Errorf("failed to %s: referenced row missing: %w", op, ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
