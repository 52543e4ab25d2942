package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

func (d Direction) Valid() bool {
	return d == DirectionIncome || d == DirectionExpense
}

// Sign returns amount with the sign it has on a balance.
func (d Direction) Sign(amount decimal.Decimal) decimal.Decimal {
	if d == DirectionExpense {
		return amount.Neg()
	}
	return amount
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusPaid      TransactionStatus = "PAID"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodDebit    PaymentMethod = "DEBIT"
	PaymentMethodCredit   PaymentMethod = "CREDIT"
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodPix      PaymentMethod = "PIX"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodDebit, PaymentMethodCredit, PaymentMethodCash, PaymentMethodPix, PaymentMethodTransfer:
		return true
	}
	return false
}

type Transaction struct {
	ID                  uuid.UUID         `json:"id" db:"id"`
	UserID              uuid.UUID         `json:"user_id" db:"user_id"`
	FamilyID            uuid.UUID         `json:"family_id" db:"family_id"`
	AccountID           uuid.UUID         `json:"account_id" db:"account_id"`
	CategoryID          *uuid.UUID        `json:"category_id,omitempty" db:"category_id"`
	CardID              *uuid.UUID        `json:"card_id,omitempty" db:"card_id"`
	Description         string            `json:"description" db:"description"`
	Amount              decimal.Decimal   `json:"amount" db:"amount"`
	Direction           Direction         `json:"direction" db:"direction"`
	Status              TransactionStatus `json:"status" db:"status"`
	PaymentMethod       PaymentMethod     `json:"payment_method" db:"payment_method"`
	Date                time.Time         `json:"date" db:"date"`
	RecurringTemplateID *uuid.UUID        `json:"recurring_template_id,omitempty" db:"recurring_template_id"`
	InstallmentID       *uuid.UUID        `json:"installment_id,omitempty" db:"installment_id"`
	InstallmentLabel    *string           `json:"installment_label,omitempty" db:"installment_label"`
	Notes               *string           `json:"notes,omitempty" db:"notes"`
	CreatedAt           time.Time         `json:"created_at" db:"created_at"`

	// CategoryName is filled by reads that join categories.
	CategoryName *string `json:"category_name,omitempty" db:"-"`
}

type CreateTransactionRequest struct {
	Description   string          `json:"description" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Direction     Direction       `json:"direction" validate:"required,oneof=INCOME EXPENSE"`
	Date          Date            `json:"date" validate:"required"`
	AccountID     uuid.UUID       `json:"account_id" validate:"required"`
	CategoryID    *uuid.UUID      `json:"category_id"`
	CardID        *uuid.UUID      `json:"card_id"`
	PaymentMethod PaymentMethod   `json:"payment_method" validate:"required"`
	Installments  int             `json:"installments"`
	Notes         *string         `json:"notes"`
}

// CreateTransactionResult holds either the single transaction or the installment plan
// that replaced it.
type CreateTransactionResult struct {
	Transaction *Transaction            `json:"transaction,omitempty"`
	Installment *InstallmentPlanDetails `json:"installment,omitempty"`
}
