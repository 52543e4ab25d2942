package service

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/repository"
)

// memState is everything the in-memory store keeps. WithinTx snapshots it and
// restores the snapshot when fn fails.
type memState struct {
	templates    map[uuid.UUID]model.RecurringTemplate
	accounts     map[uuid.UUID]model.Account
	debts        map[uuid.UUID]model.Debt
	plans        map[uuid.UUID]model.InstallmentPlan
	users        map[uuid.UUID]model.User
	transactions []model.Transaction
}

func (s memState) clone() memState {
	return memState{
		templates:    maps.Clone(s.templates),
		accounts:     maps.Clone(s.accounts),
		debts:        maps.Clone(s.debts),
		plans:        maps.Clone(s.plans),
		users:        maps.Clone(s.users),
		transactions: slices.Clone(s.transactions),
	}
}

type memDB struct {
	mu sync.Mutex
	memState

	// failCreate, when set, is consulted before every transaction insert.
	failCreate func(t *model.Transaction) error
}

func newMemDB() *memDB {
	return &memDB{memState: memState{
		templates: make(map[uuid.UUID]model.RecurringTemplate),
		accounts:  make(map[uuid.UUID]model.Account),
		debts:     make(map[uuid.UUID]model.Debt),
		plans:     make(map[uuid.UUID]model.InstallmentPlan),
		users:     make(map[uuid.UUID]model.User),
	}}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	saved := db.memState.clone()
	if err := fn(&memTx{db: db}); err != nil {
		db.memState = saved
		return err
	}
	return nil
}

func (db *memDB) addAccount(scope model.Scope, balance string) model.Account {
	a := model.Account{
		ID:       uuid.New(),
		UserID:   scope.UserID,
		FamilyID: scope.FamilyID,
		Name:     "Checking",
		Balance:  decimal.RequireFromString(balance),
		IsActive: true,
	}
	db.accounts[a.ID] = a
	return a
}

func (db *memDB) addUser(scope model.Scope, email string) model.User {
	u := model.User{ID: scope.UserID, FamilyID: scope.FamilyID, Name: "Ana", Email: email}
	db.users[u.ID] = u
	return u
}

func (db *memDB) templateTransactions(templateID uuid.UUID) []model.Transaction {
	var out []model.Transaction
	for _, t := range db.transactions {
		if t.RecurringTemplateID != nil && *t.RecurringTemplateID == templateID {
			out = append(out, t)
		}
	}
	return out
}

// TransactionReader

func (db *memDB) ListInPeriod(ctx context.Context, familyID uuid.UUID, start, end time.Time, statuses []model.TransactionStatus) ([]model.Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []model.Transaction
	for _, t := range db.transactions {
		if t.FamilyID != familyID || t.Date.Before(start) || t.Date.After(end) || !slices.Contains(statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b model.Transaction) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (db *memDB) ListPendingExpensesBetween(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []model.Transaction
	for _, t := range db.transactions {
		if t.Direction != model.DirectionExpense || t.Status != model.TransactionStatusPending {
			continue
		}
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (db *memDB) ListGeneratedBetween(ctx context.Context, familyID uuid.UUID, from, to time.Time) ([]model.Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []model.Transaction
	for _, t := range db.transactions {
		if t.FamilyID != familyID || t.RecurringTemplateID == nil {
			continue
		}
		if t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (db *memDB) ListByInstallment(ctx context.Context, installmentID uuid.UUID) ([]model.Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []model.Transaction
	for _, t := range db.transactions {
		if t.InstallmentID != nil && *t.InstallmentID == installmentID {
			out = append(out, t)
		}
	}
	return out, nil
}

// memTx runs with db.mu already held by WithinTx.
type memTx struct {
	db *memDB
}

func (tx *memTx) LockTemplate(ctx context.Context, id uuid.UUID) (*model.RecurringTemplate, error) {
	t, ok := tx.db.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (tx *memTx) HasRecurringTransaction(ctx context.Context, templateID uuid.UUID, year int, month time.Month) (bool, error) {
	for _, t := range tx.db.transactions {
		if t.RecurringTemplateID != nil && *t.RecurringTemplateID == templateID &&
			t.Date.Year() == year && t.Date.Month() == month {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) AdvanceTemplate(ctx context.Context, id uuid.UUID, nextRun, processedAt time.Time) error {
	t, ok := tx.db.templates[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !t.NextRunScheduledAt.Before(nextRun) {
		return nil
	}
	t.NextRunScheduledAt = nextRun
	t.LastProcessedAt = &processedAt
	tx.db.templates[id] = t
	return nil
}

func (tx *memTx) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	if tx.db.failCreate != nil {
		if err := tx.db.failCreate(transaction); err != nil {
			return err
		}
	}
	if _, ok := tx.db.accounts[transaction.AccountID]; !ok {
		return repository.ErrAccountNotFound
	}
	tx.db.transactions = append(tx.db.transactions, *transaction)
	return nil
}

func (tx *memTx) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, ok := tx.db.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &a, nil
}

func (tx *memTx) FirstActiveAccount(ctx context.Context, userID uuid.UUID) (*model.Account, error) {
	for _, a := range tx.db.accounts {
		if a.UserID == userID && a.IsActive {
			return &a, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (tx *memTx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	a, ok := tx.db.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Balance = a.Balance.Add(delta)
	tx.db.accounts[id] = a
	return nil
}

func (tx *memTx) LockDebt(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	d, ok := tx.db.debts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (tx *memTx) IncrementPaidInstallments(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	d, ok := tx.db.debts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d.PaidInstallments++
	tx.db.debts[id] = d
	return &d, nil
}

func (tx *memTx) CreateInstallmentPlan(ctx context.Context, plan *model.InstallmentPlan) error {
	tx.db.plans[plan.ID] = *plan
	return nil
}

type templateRepo struct{ db *memDB }

func (r templateRepo) Create(ctx context.Context, t *model.RecurringTemplate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.templates[t.ID] = *t
	return nil
}

func (r templateRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.RecurringTemplate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r templateRepo) ListByFamily(ctx context.Context, familyID uuid.UUID, activeOnly bool) ([]model.RecurringTemplate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.RecurringTemplate
	for _, t := range r.db.templates {
		if t.FamilyID == familyID && (!activeOnly || t.IsActive) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r templateRepo) Update(ctx context.Context, t *model.RecurringTemplate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.templates[t.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.templates[t.ID] = *t
	return nil
}

func (r templateRepo) ListDue(ctx context.Context, today, tomorrow time.Time) ([]model.RecurringTemplate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.RecurringTemplate
	for _, t := range r.db.templates {
		if t.IsActive && !t.NextRunScheduledAt.After(tomorrow) && !t.EndsBefore(today) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b model.RecurringTemplate) int {
		return a.NextRunScheduledAt.Compare(b.NextRunScheduledAt)
	})
	return out, nil
}

func (r templateRepo) ListActiveInWindow(ctx context.Context, familyID uuid.UUID, start, end time.Time) ([]model.RecurringTemplate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.RecurringTemplate
	for _, t := range r.db.templates {
		if t.FamilyID == familyID && t.IsActive && !t.StartDate.After(end) && !t.EndsBefore(start) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b model.RecurringTemplate) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

type accountRepo struct{ db *memDB }

func (r accountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &a, nil
}

func (r accountRepo) ListActiveByFamily(ctx context.Context, familyID uuid.UUID) ([]model.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Account
	for _, a := range r.db.accounts {
		if a.FamilyID == familyID && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

type debtRepo struct{ db *memDB }

func (r debtRepo) Create(ctx context.Context, d *model.Debt) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.debts[d.ID] = *d
	return nil
}

func (r debtRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.debts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r debtRepo) ListByFamily(ctx context.Context, familyID uuid.UUID) ([]model.Debt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Debt
	for _, d := range r.db.debts {
		if d.FamilyID == familyID {
			out = append(out, d)
		}
	}
	return out, nil
}

type planRepo struct{ db *memDB }

func (r planRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.InstallmentPlan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r planRepo) ListByFamily(ctx context.Context, familyID uuid.UUID) ([]model.InstallmentPlan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.InstallmentPlan
	for _, p := range r.db.plans {
		if p.FamilyID == familyID {
			out = append(out, p)
		}
	}
	return out, nil
}

type userRepo struct{ db *memDB }

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type billNotice struct {
	email       string
	description string
	daysLeft    int
}

// fakeNotifier is called from goroutines, so everything goes through mu or
// the payments channel.
type fakeNotifier struct {
	mu       sync.Mutex
	bills    []billNotice
	payments chan string
	err      error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{payments: make(chan string, 8)}
}

func (n *fakeNotifier) SendDebtPaymentNotification(email, debtName string, installment, total int, amount decimal.Decimal) error {
	n.payments <- debtName
	return n.err
}

func (n *fakeNotifier) SendBillDueNotification(email, description string, amount decimal.Decimal, due time.Time, daysLeft int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.bills = append(n.bills, billNotice{email: email, description: description, daysLeft: daysLeft})
	return nil
}

func newTestLogger() (*logrus.Logger, *logtest.Hook) {
	return logtest.NewNullLogger()
}

func newScope() model.Scope {
	return model.Scope{UserID: uuid.New(), FamilyID: uuid.New()}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }
