package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
)

const accountColumns = `id, user_id, family_id, name, balance, is_active, created_at, updated_at`

type AccountRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewAccountRepository(db *sql.DB, logger *logrus.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var account model.Account
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.FamilyID,
		&account.Name,
		&account.Balance,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListActiveByFamily returns the active accounts whose balances make up the
// family's current position.
func (r *AccountRepository) ListActiveByFamily(ctx context.Context, familyID uuid.UUID) ([]model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE family_id = $1 AND is_active = TRUE
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

func (t *sqlTx) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	account, err := scanAccount(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// FirstActiveAccount is the fallback settlement account for a user.
func (t *sqlTx) FirstActiveAccount(ctx context.Context, userID uuid.UUID) (*model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE
	`

	account, err := scanAccount(t.tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get settlement account: %w", err)
	}
	return account, nil
}

func (t *sqlTx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := t.tx.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAccountNotFound
	}

	t.logger.WithFields(logrus.Fields{
		"account_id": id,
		"delta":      delta.String(),
	}).Debug("Account balance updated")
	return nil
}
