package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/repository"
	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

type RecurringService struct {
	templates RecurringStore
	accounts  AccountReader
	store     TxRunner
	logger    *logrus.Logger
}

func NewRecurringService(
	templates RecurringStore,
	accounts AccountReader,
	store TxRunner,
	logger *logrus.Logger,
) *RecurringService {
	return &RecurringService{
		templates: templates,
		accounts:  accounts,
		store:     store,
		logger:    logger,
	}
}

func (s *RecurringService) CreateTemplate(ctx context.Context, scope model.Scope, req model.CreateRecurringRequest) (*model.RecurringTemplate, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":   scope.UserID,
		"frequency": req.Frequency,
		"amount":    req.Amount.String(),
	}).Info("Creating recurring template")

	if req.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if err := validateSchedule(req.Amount.IsPositive(), req.Direction, req.Frequency, req.DueDay); err != nil {
		return nil, err
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate.Time) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	if err := s.checkAccount(ctx, scope, req.AccountID); err != nil {
		return nil, err
	}

	now := time.Now()
	// The first occurrence has not been generated yet, so the schedule starts at StartDate.
	template := &model.RecurringTemplate{
		ID:                 uuid.New(),
		UserID:             scope.UserID,
		FamilyID:           scope.FamilyID,
		Description:        req.Description,
		Amount:             req.Amount.Round(2),
		Direction:          req.Direction,
		Frequency:          req.Frequency,
		StartDate:          req.StartDate.Time,
		EndDate:            req.EndDate.Ptr(),
		DueDay:             req.DueDay,
		AccountID:          req.AccountID,
		CategoryID:         req.CategoryID,
		IsActive:           true,
		NextRunScheduledAt: req.StartDate.Time,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.templates.Create(ctx, template); err != nil {
		s.logger.WithError(err).Error("Failed to create recurring template")
		return nil, fmt.Errorf("failed to create recurring template: %w", err)
	}

	s.logger.WithField("template_id", template.ID).Info("Recurring template created")
	return template, nil
}

func (s *RecurringService) ListTemplates(ctx context.Context, scope model.Scope, activeOnly bool) ([]model.RecurringTemplate, error) {
	templates, err := s.templates.ListByFamily(ctx, scope.FamilyID, activeOnly)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list recurring templates")
		return nil, fmt.Errorf("failed to list recurring templates: %w", err)
	}
	return templates, nil
}

func (s *RecurringService) GetTemplate(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.RecurringTemplate, error) {
	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring template: %w", err)
	}
	if template.FamilyID != scope.FamilyID {
		s.logger.WithFields(logrus.Fields{
			"template_id": id,
			"user_id":     scope.UserID,
		}).Warn("Attempt to access recurring template of another family")
		return nil, ErrForbidden
	}
	return template, nil
}

// UpdateTemplate applies the fields present in req. The schedule position is
// left alone so already generated periods are never produced again.
func (s *RecurringService) UpdateTemplate(ctx context.Context, scope model.Scope, id uuid.UUID, req model.UpdateRecurringRequest) (*model.RecurringTemplate, error) {
	template, err := s.GetTemplate(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		if *req.Description == "" {
			return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
		}
		template.Description = *req.Description
	}
	if req.Amount != nil {
		template.Amount = req.Amount.Round(2)
	}
	if req.Direction != nil {
		template.Direction = *req.Direction
	}
	if req.Frequency != nil {
		template.Frequency = *req.Frequency
	}
	if req.DueDay != nil {
		template.DueDay = req.DueDay
	}
	if req.EndDate != nil {
		template.EndDate = req.EndDate.Ptr()
	}
	if req.CategoryID != nil {
		template.CategoryID = req.CategoryID
	}
	if req.AccountID != nil && *req.AccountID != template.AccountID {
		if err := s.checkAccount(ctx, scope, *req.AccountID); err != nil {
			return nil, err
		}
		template.AccountID = *req.AccountID
	}

	if err := validateSchedule(template.Amount.IsPositive(), template.Direction, template.Frequency, template.DueDay); err != nil {
		return nil, err
	}
	if template.EndsBefore(template.StartDate) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}

	if err := s.templates.Update(ctx, template); err != nil {
		s.logger.WithError(err).WithField("template_id", id).Error("Failed to update recurring template")
		return nil, fmt.Errorf("failed to update recurring template: %w", err)
	}
	return template, nil
}

func (s *RecurringService) ToggleActive(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.RecurringTemplate, error) {
	template, err := s.GetTemplate(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return s.setActive(ctx, template, !template.IsActive)
}

// Deactivate is the only way to remove a template; rows are never deleted.
func (s *RecurringService) Deactivate(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.RecurringTemplate, error) {
	template, err := s.GetTemplate(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return s.setActive(ctx, template, false)
}

func (s *RecurringService) setActive(ctx context.Context, template *model.RecurringTemplate, active bool) (*model.RecurringTemplate, error) {
	template.IsActive = active
	if err := s.templates.Update(ctx, template); err != nil {
		s.logger.WithError(err).WithField("template_id", template.ID).Error("Failed to change template state")
		return nil, fmt.Errorf("failed to update recurring template: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"template_id": template.ID,
		"is_active":   active,
	}).Info("Recurring template state changed")
	return template, nil
}

type generationOutcome int

const (
	outcomeCreated generationOutcome = iota
	outcomeAlreadyGenerated
	outcomeSkipped
)

// ProcessDueTemplates materializes every due template into one PENDING
// transaction for its current period. A failing template is logged and left
// due for the next run; the others are still processed.
func (s *RecurringService) ProcessDueTemplates(ctx context.Context, now time.Time) (*model.GenerationReport, error) {
	today := schedule.CalendarDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	s.logger.WithField("today", today.Format(model.DateLayout)).Info("Processing due recurring templates")

	templates, err := s.templates.ListDue(ctx, today, tomorrow)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list due recurring templates")
		return nil, fmt.Errorf("failed to list due templates: %w", err)
	}

	report := &model.GenerationReport{RunAt: now, Candidates: len(templates)}
	for _, t := range templates {
		outcome, err := s.generate(ctx, t.ID, today, tomorrow, now)
		if err != nil {
			report.Failed++
			s.logger.WithError(err).WithField("template_id", t.ID).Error("Failed to process recurring template")
			continue
		}
		switch outcome {
		case outcomeCreated:
			report.Created++
		case outcomeAlreadyGenerated:
			report.AlreadyGenerated++
		default:
			report.Skipped++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"candidates":        report.Candidates,
		"created":           report.Created,
		"already_generated": report.AlreadyGenerated,
		"skipped":           report.Skipped,
		"failed":            report.Failed,
	}).Info("Recurring generation finished")
	return report, nil
}

// generate handles one template inside a single atomic unit: the row is locked,
// its due state re-checked, and the period either created and advanced or,
// when already present, only advanced.
func (s *RecurringService) generate(ctx context.Context, id uuid.UUID, today, tomorrow, now time.Time) (generationOutcome, error) {
	var outcome generationOutcome

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		tmpl, err := tx.LockTemplate(ctx, id)
		if err != nil {
			return err
		}
		if !tmpl.IsActive || tmpl.NextRunScheduledAt.After(tomorrow) || tmpl.EndsBefore(today) {
			// Another run got here first.
			outcome = outcomeSkipped
			return nil
		}

		run := tmpl.NextRunScheduledAt
		year, month := run.Year(), run.Month()

		exists, err := tx.HasRecurringTransaction(ctx, tmpl.ID, year, month)
		if err != nil {
			return err
		}
		if exists {
			outcome = outcomeAlreadyGenerated
			s.logger.WithFields(logrus.Fields{
				"template_id": tmpl.ID,
				"period":      fmt.Sprintf("%04d-%02d", year, month),
			}).Info("Period already generated, advancing schedule")
			return tx.AdvanceTemplate(ctx, tmpl.ID, schedule.NextRun(run, tmpl.Frequency, tmpl.DueDay), now)
		}

		date := schedule.OccurrenceDate(year, month, tmpl.DueDay, time.UTC)
		if tmpl.EndsBefore(date) {
			outcome = outcomeSkipped
			return tx.AdvanceTemplate(ctx, tmpl.ID, schedule.NextRun(run, tmpl.Frequency, tmpl.DueDay), now)
		}

		transaction := generatedTransaction(tmpl, date, now)
		if err := tx.CreateTransaction(ctx, transaction); err != nil {
			return err
		}
		if err := tx.AdvanceTemplate(ctx, tmpl.ID, nextRunAfter(tmpl, date), now); err != nil {
			return err
		}

		outcome = outcomeCreated
		s.logger.WithFields(logrus.Fields{
			"template_id":    tmpl.ID,
			"transaction_id": transaction.ID,
			"date":           date.Format(model.DateLayout),
		}).Info("Recurring transaction generated")
		return nil
	})

	return outcome, err
}

// nextRunAfter advances from the generated date, or from the current schedule
// position when that is later, so the schedule never moves backwards.
func nextRunAfter(tmpl *model.RecurringTemplate, generated time.Time) time.Time {
	from := tmpl.NextRunScheduledAt
	if generated.After(from) {
		from = generated
	}
	return schedule.NextRun(from, tmpl.Frequency, tmpl.DueDay)
}

func generatedTransaction(tmpl *model.RecurringTemplate, date, now time.Time) *model.Transaction {
	templateID := tmpl.ID
	return &model.Transaction{
		ID:                  uuid.New(),
		UserID:              tmpl.UserID,
		FamilyID:            tmpl.FamilyID,
		AccountID:           tmpl.AccountID,
		CategoryID:          tmpl.CategoryID,
		Description:         tmpl.Description,
		Amount:              tmpl.Amount,
		Direction:           tmpl.Direction,
		Status:              model.TransactionStatusPending,
		PaymentMethod:       model.PaymentMethodDebit,
		Date:                date,
		RecurringTemplateID: &templateID,
		CreatedAt:           now,
	}
}

func (s *RecurringService) checkAccount(ctx context.Context, scope model.Scope, accountID uuid.UUID) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account.FamilyID != scope.FamilyID {
		return ErrForbidden
	}
	return nil
}

func validateSchedule(positiveAmount bool, direction model.Direction, frequency schedule.Frequency, dueDay *int) error {
	switch {
	case !positiveAmount:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	case !direction.Valid():
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, direction)
	case !frequency.Valid():
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, frequency)
	case dueDay != nil && (*dueDay < 1 || *dueDay > 31):
		return fmt.Errorf("%w: due day must be between 1 and 31", ErrInvalidInput)
	}
	return nil
}
