package service

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-mail/mail/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/config"
)

type EmailSender struct {
	dialer  *mail.Dialer
	from    string
	logger  *logrus.Logger
	enabled bool
}

func NewEmailSender(cfg config.SMTPConfig, logger *logrus.Logger) *EmailSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	return &EmailSender{
		dialer:  d,
		from:    cfg.User,
		logger:  logger,
		enabled: cfg.Enabled,
	}
}

func (es *EmailSender) SendDebtPaymentNotification(email, debtName string, installment, total int, amount decimal.Decimal) error {
	if !es.enabled {
		es.logger.Debug("Email notifications are disabled")
		return nil
	}

	subject := fmt.Sprintf("Debt payment registered: %s", debtName)
	content := fmt.Sprintf(`
		<h1>Debt payment registered</h1>
		<p>Debt: <strong>%s</strong></p>
		<p>Installment: <strong>%d of %d</strong></p>
		<p>Amount: <strong>%s</strong></p>
		<p>Date: <strong>%s</strong></p>
		<small>This is an automatic notification, please do not reply</small>
	`, debtName, installment, total, amount.StringFixed(2), time.Now().Format("02/01/2006 15:04"))

	return es.sendEmail(email, subject, content)
}

func (es *EmailSender) SendBillDueNotification(email, description string, amount decimal.Decimal, due time.Time, daysLeft int) error {
	if !es.enabled {
		es.logger.Debug("Email notifications are disabled")
		return nil
	}

	subject := fmt.Sprintf("Bill due in %d day(s): %s", daysLeft, description)
	content := fmt.Sprintf(`
		<h1>Upcoming bill</h1>
		<p>Description: <strong>%s</strong></p>
		<p>Amount: <strong>%s</strong></p>
		<p>Due date: <strong>%s</strong></p>
		<small>This is an automatic notification, please do not reply</small>
	`, description, amount.StringFixed(2), due.Format("02/01/2006"))

	return es.sendEmail(email, subject, content)
}

func (es *EmailSender) sendEmail(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", es.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := es.dialer.DialAndSend(m); err != nil {
		es.logger.WithError(err).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	es.logger.WithField("to", to).Info("Email sent")
	return nil
}
