package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Session binds a customer to a scannable code until a merchant claims it.
// Table name comes from the naming strategy (prefix + "sessions").
type Session struct {
	ID            uint64            `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID     string            `gorm:"size:64;not null;uniqueIndex" json:"session_id"`
	CustomerID    string            `gorm:"size:255;not null;index:idx_qr_sessions_customer_status,priority:1" json:"customer_id"`
	MerchantID    *string           `gorm:"size:255;index:idx_qr_sessions_merchant_status,priority:1" json:"merchant_id"`
	Amount        *decimal.Decimal  `gorm:"type:decimal(10,2)" json:"amount"`
	Currency      string            `gorm:"size:3;not null;default:USD" json:"currency"`
	Status        SessionStatus     `gorm:"size:20;not null;index:idx_qr_sessions_customer_status,priority:2;index:idx_qr_sessions_merchant_status,priority:2;index:idx_qr_sessions_status_expires,priority:1" json:"status"`
	SecurityToken string            `gorm:"size:128;not null" json:"-"`
	ExpiresAt     time.Time         `gorm:"not null;index:idx_qr_sessions_status_expires,priority:2" json:"expires_at"`
	ScannedAt     *time.Time        `json:"scanned_at"`
	Metadata      datatypes.JSONMap `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsActive reports whether a merchant may still scan the session.
func (s *Session) IsActive(now time.Time) bool {
	return s.Status == SessionStatusPending && now.Before(s.ExpiresAt)
}

func (s *Session) IsExpired(now time.Time) bool {
	return s.Status == SessionStatusExpired || !now.Before(s.ExpiresAt)
}

// MergeMetadata adds keys from extra that are not already present.
func MergeMetadata(current, extra map[string]interface{}) datatypes.JSONMap {
	merged := make(datatypes.JSONMap, len(current)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range current {
		merged[k] = v
	}
	return merged
}
