package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

// reminderOffsets are the days before a due date on which a reminder goes out.
var reminderOffsets = []int{1, 3, 7}

type ReminderService struct {
	transactions TransactionReader
	users        UserLookup
	notifier     Notifier
	logger       *logrus.Logger
}

func NewReminderService(transactions TransactionReader, users UserLookup, notifier Notifier, logger *logrus.Logger) *ReminderService {
	return &ReminderService{
		transactions: transactions,
		users:        users,
		notifier:     notifier,
		logger:       logger,
	}
}

// SendBillReminders emails the owner of every pending expense due exactly 1, 3
// or 7 days after now. It returns how many reminders were sent.
func (s *ReminderService) SendBillReminders(ctx context.Context, now time.Time) (int, error) {
	today := schedule.CalendarDay(now)
	s.logger.WithField("today", today.Format(model.DateLayout)).Info("Checking bills due soon")

	sent := 0
	for _, days := range reminderOffsets {
		due := today.AddDate(0, 0, days)
		bills, err := s.transactions.ListPendingExpensesBetween(ctx, due, due)
		if err != nil {
			s.logger.WithError(err).Error("Failed to list pending bills")
			return sent, fmt.Errorf("failed to list bills due on %s: %w", due.Format(model.DateLayout), err)
		}

		for _, bill := range bills {
			user, err := s.users.GetByID(ctx, bill.UserID)
			if err != nil {
				s.logger.WithError(err).WithField("transaction_id", bill.ID).Warn("Failed to load bill owner")
				continue
			}
			if user.Email == "" {
				continue
			}
			if err := s.notifier.SendBillDueNotification(user.Email, bill.Description, bill.Amount, bill.Date, days); err != nil {
				s.logger.WithError(err).WithField("transaction_id", bill.ID).Warn("Failed to send bill reminder")
				continue
			}
			sent++
		}
	}

	s.logger.WithField("sent", sent).Info("Bill reminders processed")
	return sent, nil
}
