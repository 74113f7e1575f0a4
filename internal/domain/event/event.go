// Package event defines the lifecycle notifications broadcast to customers
// and merchants.
package event

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	NamePaymentConfirmationRequested = "payment.confirmation.requested"
	NameTransactionStatusUpdated     = "transaction.status.updated"
	NamePaymentCompleted             = "payment.completed"

	// TimestampLayout is ISO-8601 with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Event is an immutable notification. Payload always carries a timestamp.
type Event struct {
	Name     string
	Channels []string
	Payload  map[string]interface{}
}

func CustomerChannel(id string) string    { return "customer." + id }
func MerchantChannel(id string) string    { return "merchant." + id }
func TransactionChannel(id string) string { return "transaction." + id }

func timestamp(now time.Time) string {
	return now.UTC().Format(TimestampLayout)
}

// ConfirmationRequest asks the customer to approve a pending payment.
type ConfirmationRequest struct {
	TransactionID      string
	CustomerID         string
	MerchantID         string
	Amount             decimal.Decimal
	Currency           string
	MerchantInfo       map[string]interface{}
	TransactionDetails map[string]interface{}
}

func NewConfirmationRequested(r ConfirmationRequest, now time.Time) Event {
	return Event{
		Name:     NamePaymentConfirmationRequested,
		Channels: []string{CustomerChannel(r.CustomerID)},
		Payload: map[string]interface{}{
			"transaction_id":      r.TransactionID,
			"merchant_id":         r.MerchantID,
			"amount":              r.Amount.StringFixed(2),
			"currency":            r.Currency,
			"merchant_info":       orEmpty(r.MerchantInfo),
			"transaction_details": orEmpty(r.TransactionDetails),
			"timestamp":           timestamp(now),
		},
	}
}

type StatusUpdate struct {
	TransactionID  string
	CustomerID     string
	MerchantID     string
	Status         string
	PreviousStatus string
	Details        map[string]interface{}
}

func NewStatusUpdated(u StatusUpdate, now time.Time) Event {
	return Event{
		Name: NameTransactionStatusUpdated,
		Channels: []string{
			CustomerChannel(u.CustomerID),
			MerchantChannel(u.MerchantID),
			TransactionChannel(u.TransactionID),
		},
		Payload: map[string]interface{}{
			"transaction_id":  u.TransactionID,
			"status":          u.Status,
			"previous_status": u.PreviousStatus,
			"payload":         orEmpty(u.Details),
			"timestamp":       timestamp(now),
		},
	}
}

type Completion struct {
	TransactionID string
	CustomerID    string
	MerchantID    string
	Amount        decimal.Decimal
	Currency      string
	Receipt       interface{}
}

func NewPaymentCompleted(c Completion, now time.Time) Event {
	return Event{
		Name:     NamePaymentCompleted,
		Channels: []string{CustomerChannel(c.CustomerID), MerchantChannel(c.MerchantID)},
		Payload: map[string]interface{}{
			"transaction_id": c.TransactionID,
			"amount":         c.Amount.StringFixed(2),
			"currency":       c.Currency,
			"receipt_data":   c.Receipt,
			"timestamp":      timestamp(now),
		},
	}
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
