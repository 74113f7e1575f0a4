package event

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestEventChannels(t *testing.T) {
	tests := []struct {
		name     string
		ev       Event
		channels []string
	}{
		{
			name:     NamePaymentConfirmationRequested,
			ev:       NewConfirmationRequested(ConfirmationRequest{TransactionID: "txn_1", CustomerID: "c-1", MerchantID: "m-1", Amount: decimal.NewFromInt(10)}, now),
			channels: []string{"customer.c-1"},
		},
		{
			name:     NameTransactionStatusUpdated,
			ev:       NewStatusUpdated(StatusUpdate{TransactionID: "txn_1", CustomerID: "c-1", MerchantID: "m-1", Status: "confirmed", PreviousStatus: "pending"}, now),
			channels: []string{"customer.c-1", "merchant.m-1", "transaction.txn_1"},
		},
		{
			name:     NamePaymentCompleted,
			ev:       NewPaymentCompleted(Completion{TransactionID: "txn_1", CustomerID: "c-1", MerchantID: "m-1"}, now),
			channels: []string{"customer.c-1", "merchant.m-1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.ev.Name)
			assert.Equal(t, tt.channels, tt.ev.Channels)
			assert.Equal(t, "2024-05-01T12:00:00.000Z", tt.ev.Payload["timestamp"])
			assert.Equal(t, "txn_1", tt.ev.Payload["transaction_id"])
		})
	}
}

func TestConfirmationRequested_Payload(t *testing.T) {
	ev := NewConfirmationRequested(ConfirmationRequest{
		TransactionID: "txn_1",
		CustomerID:    "c-1",
		MerchantID:    "m-1",
		Amount:        decimal.RequireFromString("25.5"),
		Currency:      "USD",
	}, now)
	assert.Equal(t, "25.50", ev.Payload["amount"])
	assert.Equal(t, map[string]interface{}{}, ev.Payload["merchant_info"])
}
