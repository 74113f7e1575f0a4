package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/event"
	"github.com/wekeepgrowing/qr-payment/internal/usecase"
)

func TestNotificationService_SendPaymentConfirmationRequest(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()

	t.Run("delivers to customer channel", func(t *testing.T) {
		notifier := new(MockNotifier)
		svc := usecase.NewNotificationService(notifier, true, "USD", nil, zap.NewNop())
		svc.SetClock(clock.Now)

		notifier.On("Deliver", mock.Anything, event.NamePaymentConfirmationRequested, []string{"customer.cust-1"},
			mock.MatchedBy(func(p map[string]interface{}) bool {
				return p["transaction_id"] == "txn_1" &&
					p["amount"] == "100.00" &&
					p["currency"] == "USD" &&
					p["timestamp"] == "2025-03-01T12:00:00.000Z"
			})).Return(nil).Once()

		err := svc.SendPaymentConfirmationRequest(ctx, event.ConfirmationRequest{
			TransactionID: "txn_1",
			CustomerID:    "cust-1",
			MerchantID:    "m-1",
			Amount:        decimal.RequireFromString("100"),
		})
		require.NoError(t, err)

		svc.Close()
		notifier.AssertExpectations(t)
	})

	t.Run("validates input", func(t *testing.T) {
		tests := []struct {
			name  string
			req   event.ConfirmationRequest
			field string
		}{
			{"missing merchant", event.ConfirmationRequest{CustomerID: "cust-1", Amount: decimal.NewFromInt(10)}, "merchant_id"},
			{"zero amount", event.ConfirmationRequest{CustomerID: "cust-1", MerchantID: "m-1"}, "amount"},
			{"negative amount", event.ConfirmationRequest{CustomerID: "cust-1", MerchantID: "m-1", Amount: decimal.NewFromInt(-1)}, "amount"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				notifier := new(MockNotifier)
				svc := usecase.NewNotificationService(notifier, true, "USD", nil, zap.NewNop())

				err := svc.SendPaymentConfirmationRequest(ctx, tt.req)
				var invalid *domainErrors.InvalidInputError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.field, invalid.Field)

				svc.Close()
				notifier.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("disabled broadcasting skips delivery", func(t *testing.T) {
		notifier := new(MockNotifier)
		svc := usecase.NewNotificationService(notifier, false, "USD", nil, zap.NewNop())

		err := svc.SendPaymentConfirmationRequest(ctx, event.ConfirmationRequest{
			TransactionID: "txn_1",
			CustomerID:    "cust-1",
			MerchantID:    "m-1",
			Amount:        decimal.NewFromInt(10),
		})
		require.NoError(t, err)

		svc.Close()
		notifier.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNotificationService_SendTransactionStatusUpdate(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockNotifier)
	svc := usecase.NewNotificationService(notifier, true, "USD", nil, zap.NewNop())

	notifier.On("Deliver", mock.Anything, event.NameTransactionStatusUpdated,
		[]string{"customer.cust-1", "merchant.m-1", "transaction.txn_1"},
		mock.MatchedBy(func(p map[string]interface{}) bool {
			return p["status"] == "confirmed" && p["previous_status"] == "pending"
		})).Return(errors.New("broker unavailable")).Once()

	err := svc.SendTransactionStatusUpdate(ctx, event.StatusUpdate{
		TransactionID:  "txn_1",
		CustomerID:     "cust-1",
		MerchantID:     "m-1",
		Status:         "confirmed",
		PreviousStatus: "pending",
	})
	assert.NoError(t, err, "delivery failures are not reported to the caller")

	svc.Close()
	notifier.AssertExpectations(t)
}

func TestNotificationService_SendPaymentCompletion(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockNotifier)
	svc := usecase.NewNotificationService(notifier, true, "EUR", nil, zap.NewNop())

	notifier.On("Deliver", mock.Anything, event.NamePaymentCompleted, []string{"customer.cust-1", "merchant.m-1"},
		mock.MatchedBy(func(p map[string]interface{}) bool {
			return p["currency"] == "EUR" && p["receipt_data"] != nil
		})).Return(nil).Once()

	err := svc.SendPaymentCompletion(ctx, event.Completion{
		TransactionID: "txn_1",
		CustomerID:    "cust-1",
		MerchantID:    "m-1",
		Amount:        decimal.NewFromInt(10),
		Receipt:       map[string]interface{}{"receipt_number": "RCP-1"},
	})
	require.NoError(t, err)

	svc.Close()
	notifier.AssertExpectations(t)
}

func TestNotificationService_LogOnlyChannels(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockNotifier)
	svc := usecase.NewNotificationService(notifier, true, "USD", nil, zap.NewNop())

	assert.NoError(t, svc.SendMerchantWebhook(ctx, "m-1", "transaction.refunded", map[string]interface{}{"amount": "5.00"}))
	assert.NoError(t, svc.SendSMSFallback(ctx, "+15551234567", "Approve payment txn_1"))
	assert.NoError(t, svc.SendEmailReceipt(ctx, "jane@example.com", "txn_1", "10.00"))

	svc.Close()
	notifier.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

type MockReceiptMailer struct {
	mock.Mock
}

func (m *MockReceiptMailer) SendReceipt(ctx context.Context, to, transactionID, amount string) error {
	return m.Called(ctx, to, transactionID, amount).Error(0)
}

func TestNotificationService_SendEmailReceipt_WithMailer(t *testing.T) {
	ctx := context.Background()
	mailer := new(MockReceiptMailer)
	svc := usecase.NewNotificationService(new(MockNotifier), true, "USD", nil, zap.NewNop())
	svc.SetReceiptMailer(mailer)

	mailer.On("SendReceipt", ctx, "jane@example.com", "txn_1", "10.00").Return(nil).Once()
	mailer.On("SendReceipt", ctx, "bob@example.com", "txn_2", "5.00").Return(errors.New("smtp down")).Once()

	assert.NoError(t, svc.SendEmailReceipt(ctx, "jane@example.com", "txn_1", "10.00"))
	assert.ErrorContains(t, svc.SendEmailReceipt(ctx, "bob@example.com", "txn_2", "5.00"), "smtp down")

	svc.Close()
	mailer.AssertExpectations(t)
}
