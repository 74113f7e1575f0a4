package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
)

var minAmount = decimal.RequireFromString("0.01")

type GenerateQRCodeRequest struct {
	CustomerID string                 `json:"customer_id" validate:"required,max=255"`
	Currency   string                 `json:"currency" validate:"omitempty,len=3"`
	Size       int                    `json:"size" validate:"omitempty,min=100,max=1000"`
	Format     string                 `json:"format" validate:"omitempty,oneof=png jpg svg"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type RegenerateQRCodeRequest struct {
	Size   int    `json:"size" validate:"omitempty,min=100,max=1000"`
	Format string `json:"format" validate:"omitempty,oneof=png jpg svg"`
}

type AuthData struct {
	PIN             string `json:"pin,omitempty" validate:"omitempty,min=4,max=6"`
	FingerprintHash string `json:"fingerprint_hash,omitempty"`
	Password        string `json:"password,omitempty" validate:"omitempty,min=6"`
	Pattern         string `json:"pattern,omitempty"`
}

type ConfirmTransactionRequest struct {
	AuthMethod string   `json:"auth_method" validate:"required,oneof=pin biometric password pattern"`
	AuthData   AuthData `json:"auth_data"`
}

// check enforces the credential each auth method needs.
func (r *ConfirmTransactionRequest) check() error {
	var field, value string
	switch model.AuthMethod(r.AuthMethod) {
	case model.AuthMethodPIN:
		field, value = "pin", r.AuthData.PIN
	case model.AuthMethodBiometric:
		field, value = "fingerprint_hash", r.AuthData.FingerprintHash
	case model.AuthMethodPassword:
		field, value = "password", r.AuthData.Password
	case model.AuthMethodPattern:
		field, value = "pattern", r.AuthData.Pattern
	}
	if value == "" {
		return domainErrors.NewInvalidInputError("auth_data."+field, "is required")
	}
	return nil
}

func (r *ConfirmTransactionRequest) authData() map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range map[string]string{
		"pin":              r.AuthData.PIN,
		"fingerprint_hash": r.AuthData.FingerprintHash,
		"password":         r.AuthData.Password,
		"pattern":          r.AuthData.Pattern,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

type CancelTransactionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ScanQRCodeRequest struct {
	QRData     string `json:"qr_data" validate:"required"`
	MerchantID string `json:"merchant_id" validate:"required,max=255"`
}

type ProcessPaymentRequest struct {
	SessionID    string           `json:"session_id" validate:"required"`
	MerchantID   string           `json:"merchant_id" validate:"required,max=255"`
	CustomerID   string           `json:"customer_id" validate:"required,max=255"`
	Amount       decimal.Decimal  `json:"amount"`
	Currency     string           `json:"currency" validate:"omitempty,len=3"`
	MerchantName string           `json:"merchant_name" validate:"max=255"`
	Location     string           `json:"location" validate:"max=255"`
	Description  string           `json:"description" validate:"max=500"`
	Items        []string         `json:"items" validate:"omitempty,dive,max=255"`
	TipAmount    *decimal.Decimal `json:"tip_amount"`
	ReferenceID  *string          `json:"reference_id" validate:"omitempty,max=255"`
}

func (r *ProcessPaymentRequest) check(maxAmount decimal.Decimal) error {
	if r.Amount.LessThan(minAmount) {
		return domainErrors.NewInvalidInputError("amount", "must be at least 0.01")
	}
	if maxAmount.IsPositive() && r.Amount.GreaterThan(maxAmount) {
		return domainErrors.NewInvalidInputError("amount", "exceeds maximum limit")
	}
	if r.TipAmount != nil && r.TipAmount.IsNegative() {
		return domainErrors.NewInvalidInputError("tip_amount", "cannot be negative")
	}
	return nil
}

func (r *ProcessPaymentRequest) details() map[string]interface{} {
	var tip interface{}
	if r.TipAmount != nil {
		tip = r.TipAmount.StringFixed(2)
	}
	return map[string]interface{}{
		"items":       r.Items,
		"description": r.Description,
		"tip_amount":  tip,
	}
}

type RefundTransactionRequest struct {
	Amount              decimal.Decimal `json:"amount"`
	Reason              string          `json:"reason" validate:"max=500"`
	ManagerApprovalCode string          `json:"manager_approval_code" validate:"omitempty,min=6"`
}

func (r *RefundTransactionRequest) check() error {
	if r.Amount.LessThan(minAmount) {
		return domainErrors.NewInvalidInputError("amount", "must be at least 0.01")
	}
	return nil
}

// bindAndValidate decodes the body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(req)
}

// parseFilters reads status, type, from_date, to_date and limit from the
// query string. Dates accept YYYY-MM-DD or RFC 3339; a bare to_date covers
// the whole day.
func parseFilters(c echo.Context) (dto.TransactionFilters, error) {
	var f dto.TransactionFilters

	if v := c.QueryParam("status"); v != "" {
		status, err := model.ParseTransactionStatus(v)
		if err != nil {
			return f, domainErrors.NewInvalidInputError("status", "is not a known transaction status")
		}
		f.Status = &status
	}
	if v := c.QueryParam("type"); v != "" {
		typ, err := model.ParseTransactionType(v)
		if err != nil {
			return f, domainErrors.NewInvalidInputError("type", "must be one of payment, refund, settlement")
		}
		f.Type = &typ
	}
	if v := c.QueryParam("from_date"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return f, domainErrors.NewInvalidInputError("from_date", "must be a date")
		}
		f.FromDate = &t
	}
	if v := c.QueryParam("to_date"); v != "" {
		t, dateOnly, err := parseDate(v)
		if err != nil {
			return f, domainErrors.NewInvalidInputError("to_date", "must be a date")
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.ToDate = &t
	}
	if f.FromDate != nil && f.ToDate != nil && f.ToDate.Before(*f.FromDate) {
		return f, domainErrors.NewInvalidInputError("to_date", "must not be before from_date")
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return f, domainErrors.NewInvalidInputError("limit", "must be a positive integer")
		}
		f.Limit = limit
	}
	f.SetDefaults()
	return f, nil
}

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	return t, false, err
}
