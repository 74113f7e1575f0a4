package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessPaymentInput is the merchant request that opens a pending payment.
type ProcessPaymentInput struct {
	SessionID          string
	CustomerID         string
	MerchantID         string
	Amount             decimal.Decimal
	Currency           string
	CalculateFees      bool
	ReferenceID        *string
	MerchantInfo       map[string]interface{}
	TransactionDetails map[string]interface{}
}

// Receipt is the customer-facing record of a completed payment.
type Receipt struct {
	ReceiptNumber   string                 `json:"receipt_number"`
	TransactionID   string                 `json:"transaction_id"`
	MerchantID      string                 `json:"merchant_id"`
	CustomerID      string                 `json:"customer_id"`
	Amount          string                 `json:"amount"`
	Currency        string                 `json:"currency"`
	Fees            string                 `json:"fees"`
	NetAmount       string                 `json:"net_amount"`
	PaymentMethod   string                 `json:"payment_method"`
	AuthMethod      *string                `json:"auth_method"`
	TransactionDate time.Time              `json:"transaction_date"`
	ConfirmedDate   *time.Time             `json:"confirmed_date"`
	Metadata        map[string]interface{} `json:"metadata"`
}
