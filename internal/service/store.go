package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/repository"
)

// TxRunner executes fn as one atomic unit. *repository.Store implements it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error
}

type RecurringStore interface {
	Create(ctx context.Context, t *model.RecurringTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.RecurringTemplate, error)
	ListByFamily(ctx context.Context, familyID uuid.UUID, activeOnly bool) ([]model.RecurringTemplate, error)
	Update(ctx context.Context, t *model.RecurringTemplate) error
	ListDue(ctx context.Context, today, tomorrow time.Time) ([]model.RecurringTemplate, error)
	ListActiveInWindow(ctx context.Context, familyID uuid.UUID, start, end time.Time) ([]model.RecurringTemplate, error)
}

type TransactionReader interface {
	ListInPeriod(ctx context.Context, familyID uuid.UUID, start, end time.Time, statuses []model.TransactionStatus) ([]model.Transaction, error)
	ListPendingExpensesBetween(ctx context.Context, start, end time.Time) ([]model.Transaction, error)
	ListGeneratedBetween(ctx context.Context, familyID uuid.UUID, from, to time.Time) ([]model.Transaction, error)
	ListByInstallment(ctx context.Context, installmentID uuid.UUID) ([]model.Transaction, error)
}

type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	ListActiveByFamily(ctx context.Context, familyID uuid.UUID) ([]model.Account, error)
}

type DebtStore interface {
	Create(ctx context.Context, debt *model.Debt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Debt, error)
	ListByFamily(ctx context.Context, familyID uuid.UUID) ([]model.Debt, error)
}

type InstallmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.InstallmentPlan, error)
	ListByFamily(ctx context.Context, familyID uuid.UUID) ([]model.InstallmentPlan, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Notifier delivers user notifications. *EmailSender implements it.
type Notifier interface {
	SendDebtPaymentNotification(email, debtName string, installment, total int, amount decimal.Decimal) error
	SendBillDueNotification(email, description string, amount decimal.Decimal, due time.Time, daysLeft int) error
}
