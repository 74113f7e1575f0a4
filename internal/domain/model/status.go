package model

import (
	"database/sql/driver"
	"fmt"
)

// SessionStatus is the lifecycle state of a payment session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusScanned   SessionStatus = "scanned"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusExpired   SessionStatus = "expired"
	SessionStatusCancelled SessionStatus = "cancelled"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusPending:   {SessionStatusScanned, SessionStatusExpired, SessionStatusCancelled},
	SessionStatusScanned:   {SessionStatusConfirmed, SessionStatusExpired, SessionStatusCancelled},
	SessionStatusConfirmed: {SessionStatusExpired, SessionStatusCancelled},
	SessionStatusExpired:   nil,
	SessionStatusCancelled: nil,
}

func (s SessionStatus) Valid() bool {
	_, ok := sessionTransitions[s]
	return ok
}

func (s SessionStatus) IsTerminal() bool {
	return s.Valid() && len(sessionTransitions[s]) == 0
}

func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s *SessionStatus) Scan(src interface{}) error {
	return scanEnum(src, (*string)(s))
}

func (s SessionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid session status %q", string(s))
	}
	return string(s), nil
}

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusConfirmed  TransactionStatus = "confirmed"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusRefunded   TransactionStatus = "refunded"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusConfirmed, TransactionStatusCancelled, TransactionStatusFailed},
	TransactionStatusProcessing: {TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled},
	TransactionStatusConfirmed:  {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusCompleted:  nil,
	TransactionStatusFailed:     nil,
	TransactionStatusCancelled:  nil,
	TransactionStatusRefunded:   nil,
}

func ParseTransactionStatus(s string) (TransactionStatus, error) {
	status := TransactionStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
	return status, nil
}

func (s TransactionStatus) Valid() bool {
	_, ok := transactionTransitions[s]
	return ok
}

func (s TransactionStatus) IsTerminal() bool {
	return s.Valid() && len(transactionTransitions[s]) == 0
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transactionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s *TransactionStatus) Scan(src interface{}) error {
	return scanEnum(src, (*string)(s))
}

func (s TransactionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid transaction status %q", string(s))
	}
	return string(s), nil
}

// TransactionType distinguishes payments from refunds and settlements.
type TransactionType string

const (
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeSettlement TransactionType = "settlement"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TransactionTypePayment, TransactionTypeRefund, TransactionTypeSettlement:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

func (t *TransactionType) Scan(src interface{}) error {
	return scanEnum(src, (*string)(t))
}

func (t TransactionType) Value() (driver.Value, error) {
	if _, err := ParseTransactionType(string(t)); err != nil {
		return nil, err
	}
	return string(t), nil
}

// AuthMethod is the second factor a customer used to confirm a payment.
type AuthMethod string

const (
	AuthMethodPIN       AuthMethod = "pin"
	AuthMethodBiometric AuthMethod = "biometric"
	AuthMethodPassword  AuthMethod = "password"
	AuthMethodPattern   AuthMethod = "pattern"
)

func ParseAuthMethod(s string) (AuthMethod, error) {
	switch m := AuthMethod(s); m {
	case AuthMethodPIN, AuthMethodBiometric, AuthMethodPassword, AuthMethodPattern:
		return m, nil
	}
	return "", fmt.Errorf("unknown auth method %q", s)
}

func (m *AuthMethod) Scan(src interface{}) error {
	return scanEnum(src, (*string)(m))
}

func (m AuthMethod) Value() (driver.Value, error) {
	if _, err := ParseAuthMethod(string(m)); err != nil {
		return nil, err
	}
	return string(m), nil
}

func scanEnum(src interface{}, dst *string) error {
	switch v := src.(type) {
	case string:
		*dst = v
	case []byte:
		*dst = string(v)
	case nil:
		*dst = ""
	default:
		return fmt.Errorf("cannot scan %T into enum", src)
	}
	return nil
}
