package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

// ProjectionService is read-only: it merges stored transactions with the
// occurrences recurring templates will produce, without persisting anything.
type ProjectionService struct {
	accounts     AccountReader
	transactions TransactionReader
	templates    RecurringStore
	logger       *logrus.Logger
}

func NewProjectionService(
	accounts AccountReader,
	transactions TransactionReader,
	templates RecurringStore,
	logger *logrus.Logger,
) *ProjectionService {
	return &ProjectionService{
		accounts:     accounts,
		transactions: transactions,
		templates:    templates,
		logger:       logger,
	}
}

type templatePeriod struct {
	templateID uuid.UUID
	year       int
	month      time.Month
}

// Project builds the cashflow timeline for [start, end], both days inclusive.
// The starting balance is today's balance of the family's active accounts.
func (s *ProjectionService) Project(ctx context.Context, scope model.Scope, start, end time.Time) (*model.Projection, error) {
	start, end = schedule.CalendarDay(start), schedule.CalendarDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}

	s.logger.WithFields(logrus.Fields{
		"family_id":  scope.FamilyID,
		"start_date": start.Format(model.DateLayout),
		"end_date":   end.Format(model.DateLayout),
	}).Info("Building cashflow projection")

	accounts, err := s.accounts.ListActiveByFamily(ctx, scope.FamilyID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load accounts for projection")
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	initialBalance := decimal.Zero
	for _, account := range accounts {
		initialBalance = initialBalance.Add(account.Balance)
	}

	stored, err := s.transactions.ListInPeriod(ctx, scope.FamilyID, start, end,
		[]model.TransactionStatus{model.TransactionStatusPending, model.TransactionStatusPaid})
	if err != nil {
		s.logger.WithError(err).Error("Failed to load transactions for projection")
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	templates, err := s.templates.ListActiveInWindow(ctx, scope.FamilyID, start, end)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load recurring templates for projection")
		return nil, fmt.Errorf("failed to load recurring templates: %w", err)
	}

	generated, err := s.generatedPeriods(ctx, scope.FamilyID, start, end)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load generated transactions for projection")
		return nil, fmt.Errorf("failed to load generated transactions: %w", err)
	}

	entries := make([]model.ProjectionEntry, 0, len(stored))
	for _, t := range stored {
		entries = append(entries, model.ProjectionEntry{
			Date:                t.Date,
			Description:         t.Description,
			Amount:              t.Amount,
			Direction:           t.Direction,
			Source:              model.SourceReal,
			Status:              t.Status,
			CategoryName:        t.CategoryName,
			RecurringTemplateID: t.RecurringTemplateID,
		})
	}

	for i := range templates {
		entries = append(entries, virtualOccurrences(&templates[i], start, end, generated)...)
	}

	// Stable, so same-day entries keep real-before-virtual insertion order.
	slices.SortStableFunc(entries, func(a, b model.ProjectionEntry) int {
		return a.Date.Compare(b.Date)
	})

	projection := &model.Projection{
		Start:          start,
		End:            end,
		InitialBalance: initialBalance,
		Projections:    entries,
	}
	balance := initialBalance
	for i := range entries {
		e := &entries[i]
		balance = balance.Add(e.Direction.Sign(e.Amount)).Round(2)
		e.RunningBalance = balance
		if e.Direction == model.DirectionIncome {
			projection.Summary.TotalIncome = projection.Summary.TotalIncome.Add(e.Amount)
		} else {
			projection.Summary.TotalExpenses = projection.Summary.TotalExpenses.Add(e.Amount)
		}
	}
	projection.Summary.FinalBalance = balance

	s.logger.WithFields(logrus.Fields{
		"real":      len(stored),
		"projected": len(entries) - len(stored),
	}).Debug("Cashflow projection built")
	return projection, nil
}

// generatedPeriods marks every (template, month) that already has a generated
// transaction in the calendar months the window touches. A month's generated
// transaction may be dated before start (day 1 for weekly templates, or the
// due day when it precedes the template's start day), so the lookup spans
// whole months rather than [start, end].
func (s *ProjectionService) generatedPeriods(ctx context.Context, familyID uuid.UUID, start, end time.Time) (map[templatePeriod]bool, error) {
	from, _ := schedule.MonthBounds(start.Year(), start.Month(), time.UTC)
	_, to := schedule.MonthBounds(end.Year(), end.Month(), time.UTC)

	transactions, err := s.transactions.ListGeneratedBetween(ctx, familyID, from, to)
	if err != nil {
		return nil, err
	}
	generated := make(map[templatePeriod]bool, len(transactions))
	for _, t := range transactions {
		generated[templatePeriod{*t.RecurringTemplateID, t.Date.Year(), t.Date.Month()}] = true
	}
	return generated, nil
}

// virtualOccurrences walks the template's schedule from its start date and
// emits one entry per occurrence inside [start, end] whose month has no
// generated transaction yet.
func virtualOccurrences(tmpl *model.RecurringTemplate, start, end time.Time, generated map[templatePeriod]bool) []model.ProjectionEntry {
	var entries []model.ProjectionEntry

	current := tmpl.StartDate
	for current.Before(start) {
		current = schedule.NextRun(current, tmpl.Frequency, tmpl.DueDay)
	}

	for ; !current.After(end); current = schedule.NextRun(current, tmpl.Frequency, tmpl.DueDay) {
		if tmpl.EndsBefore(current) {
			break
		}
		if generated[templatePeriod{tmpl.ID, current.Year(), current.Month()}] {
			continue
		}
		templateID := tmpl.ID
		entries = append(entries, model.ProjectionEntry{
			Date:                current,
			Description:         tmpl.Description,
			Amount:              tmpl.Amount,
			Direction:           tmpl.Direction,
			Source:              model.SourceProjected,
			Status:              model.StatusProjected,
			CategoryName:        tmpl.CategoryName,
			RecurringTemplateID: &templateID,
		})
	}
	return entries
}
