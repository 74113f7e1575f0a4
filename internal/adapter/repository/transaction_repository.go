package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/qr-payment/internal/domain/repository"
)

// A session may get a new payment once its earlier ones ended in one of these.
var closedPaymentStatuses = []model.TransactionStatus{
	model.TransactionStatusCancelled,
	model.TransactionStatusFailed,
}

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TransactionRepository {
	return &transactionRepository{db: db, logger: logger}
}

func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		r.logger.Error("Failed to create transaction",
			zap.String("transaction_id", txn.TransactionID),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) CreatePayment(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	var open *model.Transaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The session row lock serializes payment creation per session.
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", txn.SessionID).
			First(&model.Session{}).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to lock session: %w", err)
		}

		var existing model.Transaction
		err = tx.Where("session_id = ? AND type = ? AND status NOT IN ?",
			txn.SessionID, model.TransactionTypePayment, closedPaymentStatuses).
			Order("id").
			First(&existing).Error
		switch {
		case err == nil:
			open = &existing
			return domainRepo.ErrConflict
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to look up session payment: %w", err)
		}

		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		return nil
	})
	if errors.Is(err, domainRepo.ErrConflict) {
		r.logger.Warn("Session already has an open payment",
			zap.String("session_id", txn.SessionID),
			zap.String("transaction_id", open.TransactionID),
			zap.String("status", string(open.Status)))
		return open, err
	}
	if err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("transaction_id", txn.TransactionID),
			zap.Error(err))
		return nil, err
	}
	return txn, nil
}

func (r *transactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainRepo.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *transactionRepository) Transition(ctx context.Context, transactionID string, t domainRepo.TransactionTransition) (*model.Transaction, error) {
	if len(t.From) == 0 {
		return nil, fmt.Errorf("transition to %s has no source status", t.To)
	}
	for _, from := range t.From {
		if !from.CanTransitionTo(t.To) {
			return nil, fmt.Errorf("%w: %s -> %s", domainRepo.ErrInvalidTransition, from, t.To)
		}
	}

	current, err := r.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !containsTransactionStatus(t.From, current.Status) {
		return current, domainRepo.ErrConflict
	}

	next := *current
	next.Status = t.To
	if t.Mutate != nil {
		t.Mutate(&next)
	}
	next.UpdatedAt = time.Now().UTC()

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_id = ? AND status IN ?", transactionID, t.From)
	if t.NotTimedOutAt != nil {
		query = query.Where("(timeout_at IS NULL OR timeout_at >= ?)", *t.NotTimedOutAt)
	}

	result := query.Updates(map[string]interface{}{
		"status":         next.Status,
		"auth_method":    next.AuthMethod,
		"auth_data":      next.AuthData,
		"processed_at":   next.ProcessedAt,
		"confirmed_at":   next.ConfirmedAt,
		"cancelled_at":   next.CancelledAt,
		"failure_reason": next.FailureReason,
		"metadata":       next.Metadata,
		"updated_at":     next.UpdatedAt,
	})
	if result.Error != nil {
		r.logger.Error("Failed to transition transaction",
			zap.String("transaction_id", transactionID),
			zap.String("to", string(t.To)),
			zap.Error(result.Error))
		return nil, fmt.Errorf("failed to transition transaction: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		latest, err := r.GetByTransactionID(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		return latest, domainRepo.ErrConflict
	}

	return &next, nil
}

func (r *transactionRepository) CreateRefund(ctx context.Context, parentID string, build domainRepo.RefundBuilder) (*model.Transaction, error) {
	var refund *model.Transaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent model.Transaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", parentID).
			First(&parent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainRepo.ErrNotFound
			}
			return fmt.Errorf("failed to lock transaction: %w", err)
		}

		var amounts []decimal.Decimal
		err = tx.Model(&model.Transaction{}).
			Where("parent_transaction_id = ? AND type = ? AND status = ?",
				parentID, model.TransactionTypeRefund, model.TransactionStatusCompleted).
			Pluck("amount", &amounts).Error
		if err != nil {
			return fmt.Errorf("failed to sum refunds: %w", err)
		}
		refunded := decimal.Zero
		for _, a := range amounts {
			refunded = refunded.Add(a)
		}

		row, err := build(&parent, refunded)
		if err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create refund: %w", err)
		}
		refund = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Refund recorded",
		zap.String("transaction_id", refund.TransactionID),
		zap.String("parent_transaction_id", parentID),
		zap.String("amount", refund.Amount.StringFixed(2)))
	return refund, nil
}

func (r *transactionRepository) ListByCustomer(ctx context.Context, customerID string, filters dto.TransactionFilters) ([]*model.Transaction, error) {
	return r.list(ctx, "customer_id", customerID, filters)
}

func (r *transactionRepository) ListByMerchant(ctx context.Context, merchantID string, filters dto.TransactionFilters) ([]*model.Transaction, error) {
	return r.list(ctx, "merchant_id", merchantID, filters)
}

func (r *transactionRepository) list(ctx context.Context, column, ownerID string, filters dto.TransactionFilters) ([]*model.Transaction, error) {
	filters.SetDefaults()

	query := r.db.WithContext(ctx).Where(column+" = ?", ownerID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.FromDate != nil {
		query = query.Where("created_at >= ?", *filters.FromDate)
	}
	if filters.ToDate != nil {
		query = query.Where("created_at <= ?", *filters.ToDate)
	}

	var txns []*model.Transaction
	err := query.Order("created_at DESC").Order("id DESC").Limit(filters.Limit).Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

func containsTransactionStatus(list []model.TransactionStatus, s model.TransactionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
