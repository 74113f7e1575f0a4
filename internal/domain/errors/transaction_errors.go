package errors

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/wekeepgrowing/qr-payment/pkg/errors"
)

// Numeric codes kept for clients of the original payment API.
const (
	CodeInsufficientBalance         = 1001
	CodeTransactionNotFound         = 1002
	CodeTransactionAlreadyProcessed = 1003
	CodeTransactionTimeout          = 1004
)

// InsufficientBalanceError is returned when the balance oracle refuses the amount.
type InsufficientBalanceError struct {
	CustomerID string
	Amount     decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for customer %s: requested %s", e.CustomerID, e.Amount.StringFixed(2))
}

func (e *InsufficientBalanceError) AppCode() string  { return apperrors.ErrInsufficientBalance }
func (e *InsufficientBalanceError) NumericCode() int { return CodeInsufficientBalance }

func NewInsufficientBalanceError(customerID string, amount decimal.Decimal) *InsufficientBalanceError {
	return &InsufficientBalanceError{CustomerID: customerID, Amount: amount}
}

type TransactionNotFoundError struct {
	TransactionID string
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("transaction not found: %s", e.TransactionID)
}

func (e *TransactionNotFoundError) AppCode() string  { return apperrors.ErrNotFound }
func (e *TransactionNotFoundError) NumericCode() int { return CodeTransactionNotFound }

func NewTransactionNotFoundError(transactionID string) *TransactionNotFoundError {
	return &TransactionNotFoundError{TransactionID: transactionID}
}

// TransactionAlreadyProcessedError reports a transaction whose status does
// not allow the requested operation.
type TransactionAlreadyProcessedError struct {
	TransactionID string
	Status        string
}

func (e *TransactionAlreadyProcessedError) Error() string {
	return fmt.Sprintf("transaction %s already processed (status: %s)", e.TransactionID, e.Status)
}

func (e *TransactionAlreadyProcessedError) AppCode() string { return apperrors.ErrUnprocessable }
func (e *TransactionAlreadyProcessedError) NumericCode() int {
	return CodeTransactionAlreadyProcessed
}

func NewTransactionAlreadyProcessedError(transactionID, status string) *TransactionAlreadyProcessedError {
	return &TransactionAlreadyProcessedError{TransactionID: transactionID, Status: status}
}

type TransactionTimeoutError struct {
	TransactionID string
	TimeoutAt     time.Time
}

func (e *TransactionTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s timed out at %s", e.TransactionID, e.TimeoutAt.UTC().Format(time.RFC3339))
}

func (e *TransactionTimeoutError) AppCode() string  { return apperrors.ErrExpired }
func (e *TransactionTimeoutError) NumericCode() int { return CodeTransactionTimeout }

func NewTransactionTimeoutError(transactionID string, timeoutAt time.Time) *TransactionTimeoutError {
	return &TransactionTimeoutError{TransactionID: transactionID, TimeoutAt: timeoutAt}
}

// RefundExceedsNetError is returned when a refund would push the refunded
// total above the original net amount.
type RefundExceedsNetError struct {
	TransactionID string
	Requested     decimal.Decimal
	Refundable    decimal.Decimal
}

func (e *RefundExceedsNetError) Error() string {
	return fmt.Sprintf("refund of %s exceeds refundable amount %s for transaction %s",
		e.Requested.StringFixed(2), e.Refundable.StringFixed(2), e.TransactionID)
}

func (e *RefundExceedsNetError) AppCode() string { return apperrors.ErrValidation }

func NewRefundExceedsNetError(transactionID string, requested, refundable decimal.Decimal) *RefundExceedsNetError {
	return &RefundExceedsNetError{TransactionID: transactionID, Requested: requested, Refundable: refundable}
}
