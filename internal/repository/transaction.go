package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

const transactionColumns = `t.id, t.user_id, t.family_id, t.account_id, t.category_id, t.card_id,
	t.description, t.amount, t.direction, t.status, t.payment_method, t.date,
	t.recurring_template_id, t.installment_id, t.installment_label, t.notes, t.created_at,
	c.name`

const transactionFrom = `FROM transactions t LEFT JOIN categories c ON c.id = t.category_id`

type TransactionRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewTransactionRepository(db *sql.DB, logger *logrus.Logger) *TransactionRepository {
	return &TransactionRepository{db: db, logger: logger}
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.FamilyID,
		&tx.AccountID,
		&tx.CategoryID,
		&tx.CardID,
		&tx.Description,
		&tx.Amount,
		&tx.Direction,
		&tx.Status,
		&tx.PaymentMethod,
		&tx.Date,
		&tx.RecurringTemplateID,
		&tx.InstallmentID,
		&tx.InstallmentLabel,
		&tx.Notes,
		&tx.CreatedAt,
		&tx.CategoryName,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan transaction row")
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// ListInPeriod returns the family's transactions dated within [start, end]
// having one of statuses, oldest first.
func (r *TransactionRepository) ListInPeriod(
	ctx context.Context,
	familyID uuid.UUID,
	start, end time.Time,
	statuses []model.TransactionStatus,
) ([]model.Transaction, error) {
	r.logger.WithFields(logrus.Fields{
		"family_id":  familyID,
		"start_date": start.Format(model.DateLayout),
		"end_date":   end.Format(model.DateLayout),
	}).Debug("Querying transactions for period")

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `SELECT ` + transactionColumns + ` ` + transactionFrom + `
		WHERE t.family_id = $1 AND t.date >= $2 AND t.date <= $3 AND t.status = ANY($4)
		ORDER BY t.date, t.created_at`

	return r.query(ctx, query, familyID, start, end, pq.Array(names))
}

// ListGeneratedBetween returns the family's template-generated transactions
// dated within [from, to), whatever their status.
func (r *TransactionRepository) ListGeneratedBetween(ctx context.Context, familyID uuid.UUID, from, to time.Time) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` ` + transactionFrom + `
		WHERE t.family_id = $1 AND t.recurring_template_id IS NOT NULL AND t.date >= $2 AND t.date < $3
		ORDER BY t.date`

	return r.query(ctx, query, familyID, from, to)
}

// ListPendingExpensesBetween returns every PENDING expense dated within [start, end].
func (r *TransactionRepository) ListPendingExpensesBetween(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` ` + transactionFrom + `
		WHERE t.direction = $1 AND t.status = $2 AND t.date >= $3 AND t.date <= $4
		ORDER BY t.date`

	return r.query(ctx, query, model.DirectionExpense, model.TransactionStatusPending, start, end)
}

// ListByInstallment returns an installment plan's children in sequence order.
func (r *TransactionRepository) ListByInstallment(ctx context.Context, installmentID uuid.UUID) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` ` + transactionFrom + `
		WHERE t.installment_id = $1
		ORDER BY t.date`

	return r.query(ctx, query, installmentID)
}

func (t *sqlTx) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	t.logger.WithFields(logrus.Fields{
		"transaction_id":        transaction.ID,
		"account_id":            transaction.AccountID,
		"amount":                transaction.Amount.String(),
		"direction":             transaction.Direction,
		"recurring_template_id": transaction.RecurringTemplateID,
		"installment_id":        transaction.InstallmentID,
		"date":                  transaction.Date.Format(model.DateLayout),
	}).Info("Creating transaction")

	query := `
		INSERT INTO transactions (id, user_id, family_id, account_id, category_id, card_id,
			description, amount, direction, status, payment_method, date,
			recurring_template_id, installment_id, installment_label, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		transaction.ID,
		transaction.UserID,
		transaction.FamilyID,
		transaction.AccountID,
		transaction.CategoryID,
		transaction.CardID,
		transaction.Description,
		transaction.Amount,
		transaction.Direction,
		transaction.Status,
		transaction.PaymentMethod,
		transaction.Date,
		transaction.RecurringTemplateID,
		transaction.InstallmentID,
		transaction.InstallmentLabel,
		transaction.Notes,
		transaction.CreatedAt,
	)
	if err != nil {
		t.logger.WithError(err).Error("Failed to create transaction")
		return mapWriteError(err, "create transaction")
	}
	return nil
}

// HasRecurringTransaction is the idempotency check: one generated transaction
// per template and calendar month.
func (t *sqlTx) HasRecurringTransaction(ctx context.Context, templateID uuid.UUID, year int, month time.Month) (bool, error) {
	from, to := schedule.MonthBounds(year, month, time.UTC)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE recurring_template_id = $1 AND date >= $2 AND date < $3
		)
	`

	var exists bool
	if err := t.tx.QueryRowContext(ctx, query, templateID, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check generated transaction: %w", err)
	}
	return exists, nil
}
