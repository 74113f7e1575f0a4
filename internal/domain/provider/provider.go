package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// Notifier forwards a named event to a set of channels.
type Notifier interface {
	Deliver(ctx context.Context, eventName string, channels []string, payload map[string]interface{}) error
}

// BalanceProvider answers whether a customer can cover an amount.
type BalanceProvider interface {
	SufficientFunds(ctx context.Context, customerID string, amount decimal.Decimal) (bool, error)
}

// ReceiptMailer emails a receipt for a completed payment.
type ReceiptMailer interface {
	SendReceipt(ctx context.Context, to, transactionID, amount string) error
}
