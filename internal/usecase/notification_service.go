package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/event"
	"github.com/wekeepgrowing/qr-payment/internal/domain/provider"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/metrics"
)

const deliveryTimeout = 10 * time.Second

// NotificationService broadcasts lifecycle events. Delivery runs in the
// background and its failures never reach the caller.
type NotificationService struct {
	notifier provider.Notifier
	mailer   provider.ReceiptMailer
	enabled  bool
	currency string
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      Clock

	wg sync.WaitGroup
}

func NewNotificationService(
	notifier provider.Notifier,
	enabled bool,
	currency string,
	m *metrics.Metrics,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifier: notifier,
		enabled:  enabled,
		currency: currency,
		metrics:  m,
		logger:   logger,
		now:      systemClock,
	}
}

func (s *NotificationService) SetClock(c Clock) { s.now = c }

// SetReceiptMailer enables email delivery of receipts. Without one they are
// only logged.
func (s *NotificationService) SetReceiptMailer(m provider.ReceiptMailer) { s.mailer = m }

// SendPaymentConfirmationRequest asks the customer to approve a payment.
// The merchant and a positive amount are required.
func (s *NotificationService) SendPaymentConfirmationRequest(ctx context.Context, r event.ConfirmationRequest) error {
	if strings.TrimSpace(r.MerchantID) == "" {
		return domainErrors.NewInvalidInputError("merchant_id", "missing required field")
	}
	if !r.Amount.IsPositive() {
		return domainErrors.NewInvalidInputError("amount", "must be a positive number")
	}
	if r.Currency == "" {
		r.Currency = s.currency
	}
	s.dispatch(ctx, event.NewConfirmationRequested(r, s.now()))
	return nil
}

func (s *NotificationService) SendTransactionStatusUpdate(ctx context.Context, u event.StatusUpdate) error {
	s.dispatch(ctx, event.NewStatusUpdated(u, s.now()))
	return nil
}

func (s *NotificationService) SendPaymentCompletion(ctx context.Context, c event.Completion) error {
	if c.Currency == "" {
		c.Currency = s.currency
	}
	s.dispatch(ctx, event.NewPaymentCompleted(c, s.now()))
	return nil
}

func (s *NotificationService) dispatch(ctx context.Context, ev event.Event) {
	if !s.enabled {
		s.logger.Debug("Broadcasting disabled, event skipped", zap.String("event", ev.Name))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()

		err := s.notifier.Deliver(deliverCtx, ev.Name, ev.Channels, ev.Payload)
		s.metrics.Notification(ev.Name, err)
		if err != nil {
			s.logger.Error("Failed to deliver event",
				zap.String("event", ev.Name),
				zap.Strings("channels", ev.Channels),
				zap.Error(err))
		}
	}()
}

// SendMerchantWebhook records a webhook for the merchant. There is no
// delivery endpoint yet, so the call only logs.
func (s *NotificationService) SendMerchantWebhook(_ context.Context, merchantID, eventName string, payload map[string]interface{}) error {
	s.logger.Info("Merchant webhook sent",
		zap.String("merchant_id", merchantID),
		zap.String("event", eventName),
		zap.Any("payload", payload))
	return nil
}

func (s *NotificationService) SendSMSFallback(_ context.Context, phoneNumber, message string) error {
	s.logger.Info("SMS fallback sent",
		zap.String("phone_number", maskPhoneNumber(phoneNumber)),
		zap.Int("message_length", len(message)))
	return nil
}

func (s *NotificationService) SendEmailReceipt(ctx context.Context, email, transactionID, amount string) error {
	if s.mailer != nil {
		if err := s.mailer.SendReceipt(ctx, email, transactionID, amount); err != nil {
			return err
		}
	}
	s.logger.Info("Email receipt sent",
		zap.String("email", maskEmail(email)),
		zap.String("transaction_id", transactionID),
		zap.String("receipt_amount", amount))
	return nil
}

// Close waits for in-flight deliveries.
func (s *NotificationService) Close() {
	s.wg.Wait()
}

func maskPhoneNumber(phone string) string {
	if len(phone) < 7 {
		return "***"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}

func maskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***.***"
	}
	user := parts[0]
	if len(user) > 2 {
		user = user[:2] + strings.Repeat("*", len(user)-2)
	} else {
		user = strings.Repeat("*", len(user))
	}
	return user + "@" + parts[1]
}
