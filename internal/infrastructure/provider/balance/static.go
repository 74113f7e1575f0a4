// Package balance provides the customer balance check used before a payment
// is opened.
package balance

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StaticProvider approves every amount up to a fixed limit. It stands in
// for a wallet or card-network balance service.
type StaticProvider struct {
	limit  decimal.Decimal
	logger *zap.Logger
}

func NewStaticProvider(limit decimal.Decimal, logger *zap.Logger) *StaticProvider {
	return &StaticProvider{limit: limit, logger: logger}
}

func (p *StaticProvider) SufficientFunds(_ context.Context, customerID string, amount decimal.Decimal) (bool, error) {
	ok := amount.LessThanOrEqual(p.limit)
	if !ok {
		p.logger.Info("Balance check refused",
			zap.String("customer_id", customerID),
			zap.String("amount", amount.StringFixed(2)),
			zap.String("limit", p.limit.StringFixed(2)))
	}
	return ok, nil
}
