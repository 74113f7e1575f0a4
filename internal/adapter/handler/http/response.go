package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	apperrors "github.com/wekeepgrowing/qr-payment/pkg/errors"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Code    int                 `json:"code,omitempty"`
}

func success(c echo.Context, status int, message string, data interface{}) error {
	if message == "" {
		message = "Success"
	}
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func failure(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

type numericCoded interface {
	NumericCode() int
}

// respondError renders err in the envelope. Validation failures list their
// fields, domain errors use their mapped status, and anything unmapped is
// logged and hidden behind a generic message.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusUnprocessableEntity, Response{
			Message: "Validation failed",
			Errors:  validationMessages(verrs),
		})
	}

	var invalid *domainErrors.InvalidInputError
	if errors.As(err, &invalid) {
		return c.JSON(http.StatusUnprocessableEntity, Response{
			Message: "Validation failed",
			Errors:  map[string][]string{invalid.Field: {invalid.Reason}},
		})
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return failure(c, he.Code, fmt.Sprint(he.Message))
	}

	status := apperrors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		apperrors.LogError(logger, err, "Request failed",
			zap.String("path", c.Path()),
			zap.String("method", c.Request().Method))
		return failure(c, status, "An unexpected error occurred")
	}

	resp := Response{Message: messageFor(err)}
	var nc numericCoded
	if errors.As(err, &nc) {
		resp.Code = nc.NumericCode()
	}
	return c.JSON(status, resp)
}

func messageFor(err error) string {
	var (
		sessionNotFound *domainErrors.SessionNotFoundError
		sessionInactive *domainErrors.SessionNotActiveError
		txnNotFound     *domainErrors.TransactionNotFoundError
		timeout         *domainErrors.TransactionTimeoutError
		balance         *domainErrors.InsufficientBalanceError
	)
	switch {
	case errors.As(err, &sessionNotFound):
		return "Payment session not found"
	case errors.As(err, &sessionInactive):
		return "Payment session has expired or is no longer active"
	case errors.As(err, &txnNotFound):
		return "Transaction not found"
	case errors.As(err, &timeout):
		return "Transaction has timed out"
	case errors.As(err, &balance):
		return "Insufficient balance"
	}
	return err.Error()
}
