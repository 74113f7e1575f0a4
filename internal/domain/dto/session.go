package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionOptions are the optional inputs of session creation.
type SessionOptions struct {
	Currency string
	Metadata map[string]interface{}
}

// QROptions override the configured rendering for one issuance.
type QROptions struct {
	Size   int
	Format string
}

// QRCode is an issued code ready to be embedded in a page.
type QRCode struct {
	SessionID string    `json:"session_id"`
	DataURI   string    `json:"qr_code"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ScanInput carries a merchant scan.
type ScanInput struct {
	SessionID  string
	MerchantID string
	Amount     *decimal.Decimal
	Metadata   map[string]interface{}
}
