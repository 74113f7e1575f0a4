package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/event"
	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
	"github.com/wekeepgrowing/qr-payment/internal/domain/provider"
	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/token"
)

const (
	receiptAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	paymentMethodQR = "QR Payment"
)

type TransactionSettings struct {
	Timeout  time.Duration
	Currency string
}

// TransactionService owns the transaction state machine.
type TransactionService struct {
	transactions  repository.TransactionRepository
	sessions      *SessionService
	balance       provider.BalanceProvider
	notifications *NotificationService
	idempotency   *IdempotencyGate
	sealer        crypto.Sealer
	settings      TransactionSettings
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           Clock
}

func NewTransactionService(
	transactions repository.TransactionRepository,
	sessions *SessionService,
	balance provider.BalanceProvider,
	notifications *NotificationService,
	idempotency *IdempotencyGate,
	sealer crypto.Sealer,
	settings TransactionSettings,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		transactions:  transactions,
		sessions:      sessions,
		balance:       balance,
		notifications: notifications,
		idempotency:   idempotency,
		sealer:        sealer,
		settings:      settings,
		metrics:       m,
		logger:        logger,
		now:           systemClock,
	}
}

func (s *TransactionService) SetClock(c Clock) { s.now = c }

// ProcessPayment opens a pending payment and asks the customer to confirm it.
// The session is left untouched. A session holds at most one payment that is
// not cancelled or failed; a second one is rejected as already processed.
func (s *TransactionService) ProcessPayment(ctx context.Context, in dto.ProcessPaymentInput) (*model.Transaction, error) {
	if in.MerchantID == "" {
		return nil, domainErrors.NewInvalidInputError("merchant_id", "is required")
	}
	if !in.Amount.IsPositive() {
		return nil, domainErrors.NewInvalidInputError("amount", "must be a positive number")
	}

	ok, err := s.balance.SufficientFunds(ctx, in.CustomerID, in.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if !ok {
		return nil, domainErrors.NewInsufficientBalanceError(in.CustomerID, in.Amount)
	}

	fees := decimal.Zero
	if in.CalculateFees {
		fees = model.CalculateFees(in.Amount)
	}

	currency := in.Currency
	if currency == "" {
		currency = s.settings.Currency
	}

	now := s.now()
	timeoutAt := now.Add(s.settings.Timeout)
	txn := &model.Transaction{
		TransactionID: token.NewTransactionID(),
		SessionID:     in.SessionID,
		CustomerID:    in.CustomerID,
		MerchantID:    in.MerchantID,
		Amount:        in.Amount,
		Currency:      currency,
		Type:          model.TransactionTypePayment,
		Status:        model.TransactionStatusPending,
		Fees:          fees,
		NetAmount:     in.Amount.Sub(fees),
		ReferenceID:   in.ReferenceID,
		TimeoutAt:     &timeoutAt,
		Metadata: map[string]interface{}{
			"merchant_info":       in.MerchantInfo,
			"transaction_details": in.TransactionDetails,
		},
	}
	if open, err := s.transactions.CreatePayment(ctx, txn); err != nil {
		if errors.Is(err, repository.ErrConflict) && open != nil {
			return nil, domainErrors.NewTransactionAlreadyProcessedError(open.TransactionID, string(open.Status))
		}
		return nil, err
	}
	s.metrics.TransactionTransition(string(model.TransactionStatusPending), nil)

	err = s.notifications.SendPaymentConfirmationRequest(ctx, event.ConfirmationRequest{
		TransactionID:      txn.TransactionID,
		CustomerID:         txn.CustomerID,
		MerchantID:         txn.MerchantID,
		Amount:             txn.Amount,
		Currency:           txn.Currency,
		MerchantInfo:       in.MerchantInfo,
		TransactionDetails: in.TransactionDetails,
	})
	if err != nil {
		s.logger.Warn("Confirmation request not sent",
			zap.String("transaction_id", txn.TransactionID),
			zap.Error(err))
	}

	s.logger.Info("Payment initiated",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("session_id", txn.SessionID),
		zap.String("merchant_id", txn.MerchantID),
		zap.String("amount", txn.Amount.StringFixed(2)))
	return txn, nil
}

// ConfirmTransaction records the customer's approval. A transaction past its
// timeout is rejected whatever its status.
func (s *TransactionService) ConfirmTransaction(ctx context.Context, transactionID, authMethod string, authData map[string]interface{}) (*model.Transaction, error) {
	txn, err := s.mustGet(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if txn.IsTimedOut(now) {
		return nil, domainErrors.NewTransactionTimeoutError(transactionID, *txn.TimeoutAt)
	}
	if txn.Status != model.TransactionStatusPending {
		return nil, domainErrors.NewTransactionAlreadyProcessedError(transactionID, string(txn.Status))
	}

	method, err := model.ParseAuthMethod(authMethod)
	if err != nil {
		return nil, domainErrors.NewInvalidInputError("auth_method", "must be one of pin, biometric, password, pattern")
	}

	sealed, err := s.sealer.Seal(authData)
	if err != nil {
		return nil, fmt.Errorf("failed to seal auth data: %w", err)
	}

	updated, err := s.transactions.Transition(ctx, transactionID, repository.TransactionTransition{
		From:          []model.TransactionStatus{model.TransactionStatusPending},
		To:            model.TransactionStatusConfirmed,
		NotTimedOutAt: &now,
		Mutate: func(next *model.Transaction) {
			next.AuthMethod = &method
			next.AuthData = sealed
			next.ConfirmedAt = &now
		},
	})
	s.metrics.TransactionTransition(string(model.TransactionStatusConfirmed), err)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) && updated != nil &&
			updated.Status == model.TransactionStatusPending && updated.IsTimedOut(now) {
			return nil, domainErrors.NewTransactionTimeoutError(transactionID, *updated.TimeoutAt)
		}
		return nil, s.transitionError(transactionID, updated, err)
	}

	if _, err := s.sessions.ConfirmSession(ctx, updated.SessionID); err != nil {
		s.logger.Warn("Session not confirmed with transaction",
			zap.String("transaction_id", transactionID),
			zap.String("session_id", updated.SessionID),
			zap.Error(err))
	}

	s.statusUpdate(ctx, updated, model.TransactionStatusPending)
	s.logger.Info("Transaction confirmed",
		zap.String("transaction_id", transactionID),
		zap.String("auth_method", string(method)))
	return updated, nil
}

// CancelTransaction cancels a pending or processing transaction.
func (s *TransactionService) CancelTransaction(ctx context.Context, transactionID, reason string) (*model.Transaction, error) {
	txn, err := s.mustGet(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != model.TransactionStatusPending && txn.Status != model.TransactionStatusProcessing {
		return nil, domainErrors.NewTransactionAlreadyProcessedError(transactionID, string(txn.Status))
	}

	now := s.now()
	updated, err := s.transactions.Transition(ctx, transactionID, repository.TransactionTransition{
		From: []model.TransactionStatus{model.TransactionStatusPending, model.TransactionStatusProcessing},
		To:   model.TransactionStatusCancelled,
		Mutate: func(next *model.Transaction) {
			next.CancelledAt = &now
			next.FailureReason = &reason
		},
	})
	s.metrics.TransactionTransition(string(model.TransactionStatusCancelled), err)
	if err != nil {
		return nil, s.transitionError(transactionID, updated, err)
	}

	if _, err := s.sessions.CancelSession(ctx, updated.SessionID); err != nil {
		s.logger.Warn("Session not cancelled with transaction",
			zap.String("transaction_id", transactionID),
			zap.String("session_id", updated.SessionID),
			zap.Error(err))
	}

	s.statusUpdate(ctx, updated, txn.Status)
	s.logger.Info("Transaction cancelled",
		zap.String("transaction_id", transactionID),
		zap.String("reason", reason))
	return updated, nil
}

// RefundTransaction creates a completed refund against a completed payment.
// The refunded total may not exceed the payment's net amount.
func (s *TransactionService) RefundTransaction(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) (*model.Transaction, error) {
	now := s.now()

	refund, err := s.transactions.CreateRefund(ctx, transactionID, func(parent *model.Transaction, refunded decimal.Decimal) (*model.Transaction, error) {
		if parent.Status != model.TransactionStatusCompleted {
			return nil, domainErrors.NewTransactionAlreadyProcessedError(transactionID, string(parent.Status))
		}
		if parent.Type != model.TransactionTypePayment {
			return nil, domainErrors.NewInvalidInputError("transaction_id", "only payments can be refunded")
		}
		if !amount.IsPositive() {
			return nil, domainErrors.NewInvalidInputError("amount", "must be a positive number")
		}
		refundable := parent.NetAmount.Sub(refunded)
		if amount.GreaterThan(refundable) {
			return nil, domainErrors.NewRefundExceedsNetError(transactionID, amount, refundable)
		}

		parentID := parent.TransactionID
		return &model.Transaction{
			TransactionID:       token.NewTransactionID(),
			SessionID:           parent.SessionID,
			CustomerID:          parent.CustomerID,
			MerchantID:          parent.MerchantID,
			Amount:              amount,
			Currency:            parent.Currency,
			Type:                model.TransactionTypeRefund,
			Status:              model.TransactionStatusCompleted,
			Fees:                decimal.Zero,
			NetAmount:           amount,
			ParentTransactionID: &parentID,
			ProcessedAt:         &now,
			ConfirmedAt:         &now,
			FailureReason:       &reason,
		}, nil
	})
	s.metrics.TransactionTransition("refund", err)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domainErrors.NewTransactionNotFoundError(transactionID)
		}
		return nil, err
	}

	_ = s.notifications.SendMerchantWebhook(ctx, refund.MerchantID, "transaction.refunded", map[string]interface{}{
		"refund_transaction_id":   refund.TransactionID,
		"original_transaction_id": transactionID,
		"amount":                  refund.Amount.StringFixed(2),
		"currency":                refund.Currency,
		"reason":                  reason,
	})

	s.logger.Info("Transaction refunded",
		zap.String("transaction_id", transactionID),
		zap.String("refund_transaction_id", refund.TransactionID),
		zap.String("amount", amount.StringFixed(2)))
	return refund, nil
}

// SettleTransaction completes a confirmed payment once the funds have moved.
func (s *TransactionService) SettleTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	now := s.now()
	updated, err := s.transactions.Transition(ctx, transactionID, repository.TransactionTransition{
		From: []model.TransactionStatus{model.TransactionStatusConfirmed},
		To:   model.TransactionStatusCompleted,
		Mutate: func(next *model.Transaction) {
			next.ProcessedAt = &now
		},
	})
	s.metrics.TransactionTransition(string(model.TransactionStatusCompleted), err)
	if err != nil {
		return nil, s.transitionError(transactionID, updated, err)
	}

	receipt, err := s.BuildReceipt(updated)
	if err != nil {
		return nil, err
	}

	s.statusUpdate(ctx, updated, model.TransactionStatusConfirmed)
	_ = s.notifications.SendPaymentCompletion(ctx, event.Completion{
		TransactionID: updated.TransactionID,
		CustomerID:    updated.CustomerID,
		MerchantID:    updated.MerchantID,
		Amount:        updated.Amount,
		Currency:      updated.Currency,
		Receipt:       receipt,
	})
	_ = s.notifications.SendMerchantWebhook(ctx, updated.MerchantID, event.NamePaymentCompleted, map[string]interface{}{
		"transaction_id": updated.TransactionID,
		"amount":         updated.Amount.StringFixed(2),
		"net_amount":     updated.NetAmount.StringFixed(2),
		"currency":       updated.Currency,
	})

	s.logger.Info("Transaction settled", zap.String("transaction_id", transactionID))
	return updated, nil
}

// GetTransaction returns nil, nil when the transaction does not exist.
func (s *TransactionService) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	txn, err := s.transactions.GetByTransactionID(ctx, transactionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return txn, err
}

func (s *TransactionService) GetCustomerTransactions(ctx context.Context, customerID string, filters dto.TransactionFilters) ([]*model.Transaction, error) {
	filters.SetDefaults()
	return s.transactions.ListByCustomer(ctx, customerID, filters)
}

func (s *TransactionService) GetMerchantTransactions(ctx context.Context, merchantID string, filters dto.TransactionFilters) ([]*model.Transaction, error) {
	filters.SetDefaults()
	return s.transactions.ListByMerchant(ctx, merchantID, filters)
}

func (s *TransactionService) IsTimedOut(txn *model.Transaction) bool {
	return txn.IsTimedOut(s.now())
}

func (s *TransactionService) TimeRemaining(txn *model.Transaction) *int64 {
	return txn.TimeRemaining(s.now())
}

// ExecuteIdempotentOperation runs op at most once per key.
func (s *TransactionService) ExecuteIdempotentOperation(ctx context.Context, key string, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return s.idempotency.ExecuteIdempotentOperation(ctx, key, op)
}

// BuildReceipt describes a completed payment. Other statuses have no receipt.
func (s *TransactionService) BuildReceipt(txn *model.Transaction) (*dto.Receipt, error) {
	if !txn.IsCompleted() {
		return nil, domainErrors.NewTransactionAlreadyProcessedError(txn.TransactionID, string(txn.Status))
	}
	number, err := gonanoid.Generate(receiptAlphabet, 12)
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt number: %w", err)
	}

	var authMethod *string
	if txn.AuthMethod != nil {
		m := string(*txn.AuthMethod)
		authMethod = &m
	}
	return &dto.Receipt{
		ReceiptNumber:   "RCP-" + number,
		TransactionID:   txn.TransactionID,
		MerchantID:      txn.MerchantID,
		CustomerID:      txn.CustomerID,
		Amount:          txn.Amount.StringFixed(2),
		Currency:        txn.Currency,
		Fees:            txn.Fees.StringFixed(2),
		NetAmount:       txn.NetAmount.StringFixed(2),
		PaymentMethod:   paymentMethodQR,
		AuthMethod:      authMethod,
		TransactionDate: txn.CreatedAt,
		ConfirmedDate:   txn.ConfirmedAt,
		Metadata:        txn.Metadata,
	}, nil
}

func (s *TransactionService) mustGet(ctx context.Context, transactionID string) (*model.Transaction, error) {
	txn, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domainErrors.NewTransactionNotFoundError(transactionID)
	}
	return txn, nil
}

func (s *TransactionService) statusUpdate(ctx context.Context, txn *model.Transaction, previous model.TransactionStatus) {
	_ = s.notifications.SendTransactionStatusUpdate(ctx, event.StatusUpdate{
		TransactionID:  txn.TransactionID,
		CustomerID:     txn.CustomerID,
		MerchantID:     txn.MerchantID,
		Status:         string(txn.Status),
		PreviousStatus: string(previous),
		Details: map[string]interface{}{
			"customer_id": txn.CustomerID,
			"merchant_id": txn.MerchantID,
			"amount":      txn.Amount.StringFixed(2),
			"currency":    txn.Currency,
		},
	})
}

func (s *TransactionService) transitionError(transactionID string, current *model.Transaction, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domainErrors.NewTransactionNotFoundError(transactionID)
	case errors.Is(err, repository.ErrConflict) && current != nil:
		return domainErrors.NewTransactionAlreadyProcessedError(transactionID, string(current.Status))
	default:
		return fmt.Errorf("failed to update transaction %s: %w", transactionID, err)
	}
}
