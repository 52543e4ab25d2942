package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/devgenerative/controlefinanciero/internal/model"
)

func newTransactionFixture(t *testing.T) (*TransactionService, *memDB, model.Scope, model.Account) {
	t.Helper()
	logger, _ := newTestLogger()
	db := newMemDB()
	scope := newScope()
	account := db.addAccount(scope, "1000")
	installments := NewInstallmentService(planRepo{db}, db, db, logger)
	return NewTransactionService(installments, db, logger), db, scope, account
}

func TestCreateTransactionUpdatesBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  model.PaymentMethod
		dir     model.Direction
		amount  string
		balance string
	}{
		{"debit expense", model.PaymentMethodDebit, model.DirectionExpense, "50", "950"},
		{"pix income", model.PaymentMethodPix, model.DirectionIncome, "200", "1200"},
		{"single credit purchase", model.PaymentMethodCredit, model.DirectionExpense, "80", "1000"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, db, scope, account := newTransactionFixture(t)

			result, err := svc.CreateTransaction(context.Background(), scope, model.CreateTransactionRequest{
				Description:   "Market",
				Amount:        dec(tt.amount),
				Direction:     tt.dir,
				Date:          model.NewDate(2025, time.May, 3),
				AccountID:     account.ID,
				PaymentMethod: tt.method,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Transaction == nil || result.Installment != nil {
				t.Fatalf("expected a single transaction, got %+v", result)
			}
			if result.Transaction.Status != model.TransactionStatusPaid {
				t.Fatalf("expected PAID, got %s", result.Transaction.Status)
			}
			if got := db.accounts[account.ID].Balance; !got.Equal(dec(tt.balance)) {
				t.Fatalf("expected balance %s, got %s", tt.balance, got)
			}
		})
	}
}

func TestCreateTransactionSplitsCreditPurchase(t *testing.T) {
	t.Parallel()
	svc, db, scope, account := newTransactionFixture(t)

	cardID := uuid.New()
	result, err := svc.CreateTransaction(context.Background(), scope, model.CreateTransactionRequest{
		Description:   "Fridge",
		Amount:        dec("300"),
		Direction:     model.DirectionExpense,
		Date:          model.NewDate(2025, time.May, 3),
		AccountID:     account.ID,
		CardID:        &cardID,
		PaymentMethod: model.PaymentMethodCredit,
		Installments:  3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Transaction != nil || result.Installment == nil {
		t.Fatalf("expected an installment plan instead of a transaction, got %+v", result)
	}
	if !result.Installment.TotalAmount.Equal(dec("300")) || result.Installment.CardID != cardID {
		t.Fatalf("unexpected plan header: %+v", result.Installment.InstallmentPlan)
	}

	if len(db.transactions) != 3 {
		t.Fatalf("expected three installments and nothing else, got %d transactions", len(db.transactions))
	}
	for _, tr := range db.transactions {
		if tr.InstallmentID == nil {
			t.Fatalf("found a transaction outside the plan: %+v", tr)
		}
		if !tr.Amount.Equal(dec("100")) {
			t.Fatalf("expected 100 per installment, got %s", tr.Amount)
		}
	}
	if !db.accounts[account.ID].Balance.Equal(dec("1000")) {
		t.Fatal("credit installments must not touch the account balance")
	}
}

func TestCreateTransactionRejections(t *testing.T) {
	t.Parallel()
	svc, db, scope, account := newTransactionFixture(t)
	foreign := db.addAccount(newScope(), "0")
	cardID := uuid.New()

	valid := model.CreateTransactionRequest{
		Description:   "Market",
		Amount:        dec("10"),
		Direction:     model.DirectionExpense,
		Date:          model.NewDate(2025, time.May, 3),
		AccountID:     account.ID,
		PaymentMethod: model.PaymentMethodDebit,
	}
	tests := []struct {
		name   string
		mutate func(r *model.CreateTransactionRequest)
		want   error
	}{
		{"negative amount", func(r *model.CreateTransactionRequest) { r.Amount = dec("-10") }, ErrInvalidInput},
		{"unknown method", func(r *model.CreateTransactionRequest) { r.PaymentMethod = "CHEQUE" }, ErrInvalidInput},
		{"missing date", func(r *model.CreateTransactionRequest) { r.Date = model.Date{} }, ErrInvalidInput},
		{"split income", func(r *model.CreateTransactionRequest) {
			r.Direction = model.DirectionIncome
			r.PaymentMethod = model.PaymentMethodCredit
			r.CardID = &cardID
			r.Installments = 2
		}, ErrInvalidInput},
		{"installments without card", func(r *model.CreateTransactionRequest) {
			r.PaymentMethod = model.PaymentMethodCredit
			r.Installments = 3
		}, ErrInvalidInput},
		{"account of another family", func(r *model.CreateTransactionRequest) { r.AccountID = foreign.ID }, ErrForbidden},
		{"unknown account", func(r *model.CreateTransactionRequest) { r.AccountID = uuid.New() }, ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			if _, err := svc.CreateTransaction(context.Background(), scope, req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(db.transactions) != 0 {
		t.Fatalf("rejected requests stored %d transactions", len(db.transactions))
	}
}
