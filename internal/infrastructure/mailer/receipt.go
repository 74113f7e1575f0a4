// Package mailer delivers email receipts over SMTP.
package mailer

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/wekeepgrowing/qr-payment/internal/config"
)

// ReceiptMailer sends one message per receipt. The SMTP connection is
// opened per send.
type ReceiptMailer struct {
	from   string
	sender func(msgs ...*gomail.Message) error
	logger *zap.Logger
}

func NewSMTPReceiptMailer(cfg config.MailConfig, logger *zap.Logger) *ReceiptMailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	return &ReceiptMailer{from: cfg.From, sender: d.DialAndSend, logger: logger}
}

// NewReceiptMailerWithSender delivers through s instead of dialing SMTP.
func NewReceiptMailerWithSender(from string, s gomail.Sender, logger *zap.Logger) *ReceiptMailer {
	return &ReceiptMailer{
		from: from,
		sender: func(msgs ...*gomail.Message) error {
			return gomail.Send(s, msgs...)
		},
		logger: logger,
	}
}

func (m *ReceiptMailer) SendReceipt(ctx context.Context, to, transactionID, amount string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.from, "QR Payment"))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Your receipt for transaction %s", transactionID))
	msg.SetBody("text/plain", fmt.Sprintf("Transaction: %s\nAmount: %s\n", transactionID, amount))
	msg.AddAlternative("text/html", fmt.Sprintf(
		"<p>Transaction: <strong>%s</strong></p><p>Amount: <strong>%s</strong></p>",
		html.EscapeString(transactionID), html.EscapeString(amount)))

	if err := m.sender(msg); err != nil {
		return fmt.Errorf("failed to send receipt email: %w", err)
	}
	m.logger.Debug("Receipt email delivered", zap.String("transaction_id", transactionID))
	return nil
}
