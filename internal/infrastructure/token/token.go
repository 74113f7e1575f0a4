// Package token generates session ids, transaction ids and security tokens.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const (
	SessionPrefix     = "qr_"
	TransactionPrefix = "txn_"

	securityTokenBytes = 32
)

func NewSessionID() string {
	return SessionPrefix + uuid.NewString()
}

func NewTransactionID() string {
	return TransactionPrefix + uuid.NewString()
}

// NewSecurityToken returns 32 random bytes as 64 hex characters.
func NewSecurityToken() (string, error) {
	b := make([]byte, securityTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
