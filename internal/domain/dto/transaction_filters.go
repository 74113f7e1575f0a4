package dto

import (
	"time"

	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
)

const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 200
)

// TransactionFilters narrows a customer or merchant transaction listing.
// Date bounds apply to created_at and are inclusive.
type TransactionFilters struct {
	Status   *model.TransactionStatus
	Type     *model.TransactionType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
}

// SetDefaults sets default values for pagination
func (f *TransactionFilters) SetDefaults() {
	if f.Limit <= 0 {
		f.Limit = DefaultTransactionLimit
	}
	if f.Limit > MaxTransactionLimit {
		f.Limit = MaxTransactionLimit
	}
}
