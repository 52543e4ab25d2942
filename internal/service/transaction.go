package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/repository"
)

type TransactionService struct {
	installments *InstallmentService
	store        TxRunner
	logger       *logrus.Logger
}

func NewTransactionService(installments *InstallmentService, store TxRunner, logger *logrus.Logger) *TransactionService {
	return &TransactionService{
		installments: installments,
		store:        store,
		logger:       logger,
	}
}

// CreateTransaction records a user transaction. A credit purchase on a card
// with more than one installment becomes an installment plan instead, and no
// whole-amount transaction is written for it.
func (s *TransactionService) CreateTransaction(ctx context.Context, scope model.Scope, req model.CreateTransactionRequest) (*model.CreateTransactionResult, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":        scope.UserID,
		"account_id":     req.AccountID,
		"amount":         req.Amount.String(),
		"payment_method": req.PaymentMethod,
		"installments":   req.Installments,
	}).Info("Creating transaction")

	if err := validateTransaction(req); err != nil {
		return nil, err
	}

	result := &model.CreateTransactionResult{}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		account, err := tx.GetAccountForUpdate(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if account.FamilyID != scope.FamilyID {
			return ErrForbidden
		}

		if isInstallmentPurchase(req) {
			purchase := model.Purchase{
				UserID:      scope.UserID,
				FamilyID:    scope.FamilyID,
				Description: req.Description,
				TotalAmount: req.Amount,
				Date:        req.Date.Time,
				CardID:      *req.CardID,
				AccountID:   req.AccountID,
				CategoryID:  req.CategoryID,
				Notes:       req.Notes,
			}
			result.Installment, err = s.installments.split(ctx, tx, purchase, req.Installments)
			return err
		}

		transaction := &model.Transaction{
			ID:            uuid.New(),
			UserID:        scope.UserID,
			FamilyID:      scope.FamilyID,
			AccountID:     req.AccountID,
			CategoryID:    req.CategoryID,
			CardID:        req.CardID,
			Description:   req.Description,
			Amount:        req.Amount.Round(2),
			Direction:     req.Direction,
			Status:        model.TransactionStatusPaid,
			PaymentMethod: req.PaymentMethod,
			Date:          req.Date.Time,
			Notes:         req.Notes,
			CreatedAt:     time.Now(),
		}
		if err := tx.CreateTransaction(ctx, transaction); err != nil {
			return err
		}
		// Credit purchases settle through the card bill, not the account.
		if req.PaymentMethod != model.PaymentMethodCredit {
			if err := tx.UpdateAccountBalance(ctx, account.ID, transaction.Direction.Sign(transaction.Amount)); err != nil {
				return err
			}
		}
		result.Transaction = transaction
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to create transaction")
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return result, nil
}

func isInstallmentPurchase(req model.CreateTransactionRequest) bool {
	return req.PaymentMethod == model.PaymentMethodCredit && req.CardID != nil && req.Installments > 1
}

func validateTransaction(req model.CreateTransactionRequest) error {
	switch {
	case req.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	case !req.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	case !req.Direction.Valid():
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, req.Direction)
	case !req.PaymentMethod.Valid():
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.PaymentMethod)
	case req.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	case req.Installments < 0:
		return fmt.Errorf("%w: installments must not be negative", ErrInvalidInput)
	case req.PaymentMethod == model.PaymentMethodCredit && req.Installments > 1 && req.CardID == nil:
		return fmt.Errorf("%w: installments require a card_id", ErrInvalidInput)
	case isInstallmentPurchase(req) && req.Direction != model.DirectionExpense:
		return fmt.Errorf("%w: only expenses can be split into installments", ErrInvalidInput)
	}
	return nil
}
