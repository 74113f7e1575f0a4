package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction is a payment, refund or settlement with its own lifecycle.
type Transaction struct {
	ID                  uint64            `gorm:"primaryKey;autoIncrement" json:"-"`
	TransactionID       string            `gorm:"size:64;not null;uniqueIndex" json:"transaction_id"`
	SessionID           string            `gorm:"size:64;not null;index" json:"session_id"`
	CustomerID          string            `gorm:"size:255;not null;index:idx_qr_transactions_customer_status,priority:1" json:"customer_id"`
	MerchantID          string            `gorm:"size:255;not null;index:idx_qr_transactions_merchant_status,priority:1" json:"merchant_id"`
	Amount              decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency            string            `gorm:"size:3;not null;default:USD" json:"currency"`
	Type                TransactionType   `gorm:"size:20;not null;default:payment" json:"type"`
	Status              TransactionStatus `gorm:"size:20;not null;index:idx_qr_transactions_customer_status,priority:2;index:idx_qr_transactions_merchant_status,priority:2;index:idx_qr_transactions_status_created,priority:1" json:"status"`
	AuthMethod          *AuthMethod       `gorm:"size:20" json:"auth_method"`
	AuthData            datatypes.JSONMap `json:"-"`
	Fees                decimal.Decimal   `gorm:"type:decimal(8,2);not null;default:0" json:"fees"`
	NetAmount           decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	ReferenceID         *string           `gorm:"size:255" json:"reference_id,omitempty"`
	ParentTransactionID *string           `gorm:"size:64;index" json:"parent_transaction_id,omitempty"`
	ProcessedAt         *time.Time        `json:"processed_at"`
	ConfirmedAt         *time.Time        `json:"confirmed_at"`
	CancelledAt         *time.Time        `json:"cancelled_at"`
	TimeoutAt           *time.Time        `json:"timeout_at"`
	Metadata            datatypes.JSONMap `json:"metadata"`
	FailureReason       *string           `gorm:"type:text" json:"failure_reason"`
	CreatedAt           time.Time         `gorm:"index:idx_qr_transactions_status_created,priority:2" json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// IsTimedOut reports whether confirmation is no longer accepted.
func (t *Transaction) IsTimedOut(now time.Time) bool {
	return t.TimeoutAt != nil && now.After(*t.TimeoutAt)
}

// TimeRemaining returns whole seconds until timeout, or nil when there is
// no timeout or it has passed.
func (t *Transaction) TimeRemaining(now time.Time) *int64 {
	if t.TimeoutAt == nil || t.IsTimedOut(now) {
		return nil
	}
	secs := int64(t.TimeoutAt.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

func (t *Transaction) IsPending() bool   { return t.Status == TransactionStatusPending }
func (t *Transaction) IsCompleted() bool { return t.Status == TransactionStatusCompleted }

// CalculateFees applies the flat-plus-percentage card fee, 2.9% + 0.30,
// rounded half away from zero to cents.
func CalculateFees(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(feeRate).Add(feeFixed).Round(2)
}

var (
	feeRate  = decimal.RequireFromString("0.029")
	feeFixed = decimal.RequireFromString("0.30")
)
