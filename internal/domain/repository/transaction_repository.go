package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
)

// TransactionTransition is the transaction counterpart of SessionTransition.
// When NotTimedOutAt is set the row must have no timeout_at or one at or
// after NotTimedOutAt.
type TransactionTransition struct {
	From          []model.TransactionStatus
	To            model.TransactionStatus
	NotTimedOutAt *time.Time
	Mutate        func(t *model.Transaction)
}

// RefundBuilder builds the refund row from the locked parent and the sum of
// its completed refunds. Returning an error aborts the refund.
type RefundBuilder func(parent *model.Transaction, refundedSoFar decimal.Decimal) (*model.Transaction, error)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error

	// CreatePayment inserts a payment unless its session already has one that
	// is neither cancelled nor failed. In that case the existing payment is
	// returned with ErrConflict.
	CreatePayment(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Transaction, error)
	Transition(ctx context.Context, transactionID string, t TransactionTransition) (*model.Transaction, error)

	// CreateRefund locks the parent, computes its refunded total and inserts
	// the row returned by build in a single database transaction.
	CreateRefund(ctx context.Context, parentID string, build RefundBuilder) (*model.Transaction, error)

	ListByCustomer(ctx context.Context, customerID string, filters dto.TransactionFilters) ([]*model.Transaction, error)
	ListByMerchant(ctx context.Context, merchantID string, filters dto.TransactionFilters) ([]*model.Transaction, error)
}
