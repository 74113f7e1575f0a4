package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
	"github.com/wekeepgrowing/qr-payment/internal/middleware/auth"
	"github.com/wekeepgrowing/qr-payment/internal/usecase"
)

const defaultCancelReason = "Customer cancelled"

type CustomerHandler struct {
	sessions     *usecase.SessionService
	qrCodes      *usecase.QRCodeService
	transactions *usecase.TransactionService
	logger       *zap.Logger
}

func NewCustomerHandler(sessions *usecase.SessionService, qrCodes *usecase.QRCodeService, transactions *usecase.TransactionService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		sessions:     sessions,
		qrCodes:      qrCodes,
		transactions: transactions,
		logger:       logger,
	}
}

func (h *CustomerHandler) Register(g *echo.Group) {
	g.POST("/qr-code", h.GenerateQRCode)
	g.PUT("/qr-code/:sessionId/regenerate", h.RegenerateQRCode)
	g.GET("/session/:sessionId/status", h.GetSessionStatus)
	g.POST("/transaction/:id/confirm", h.ConfirmTransaction)
	g.POST("/transaction/:id/cancel", h.CancelTransaction)
	g.GET("/transactions", h.GetTransactionHistory)
	g.GET("/transaction/:id", h.GetTransaction)
}

func (h *CustomerHandler) GenerateQRCode(c echo.Context) error {
	var req GenerateQRCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := auth.CheckSubject(c, req.CustomerID); err != nil {
		return respondError(c, h.logger, err)
	}

	ctx := c.Request().Context()
	session, err := h.sessions.CreateSession(ctx, req.CustomerID, dto.SessionOptions{
		Currency: req.Currency,
		Metadata: req.Metadata,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	code, err := h.qrCodes.Issue(ctx, session.SessionID, dto.QROptions{Size: req.Size, Format: req.Format})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return success(c, http.StatusOK, "QR code generated successfully", map[string]interface{}{
		"session_id":      session.SessionID,
		"qr_code":         code.DataURI,
		"expires_at":      code.ExpiresAt,
		"timeout_minutes": int(h.qrCodes.ExpiryWindow().Minutes()),
	})
}

func (h *CustomerHandler) RegenerateQRCode(c echo.Context) error {
	var req RegenerateQRCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	ctx := c.Request().Context()
	sessionID := c.Param("sessionId")
	session, err := h.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if session == nil {
		return failure(c, http.StatusNotFound, "Session not found")
	}
	if err := auth.CheckSubject(c, session.CustomerID); err != nil {
		return respondError(c, h.logger, err)
	}

	code, err := h.qrCodes.Reissue(ctx, sessionID, dto.QROptions{Size: req.Size, Format: req.Format})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return success(c, http.StatusOK, "QR code regenerated successfully", map[string]interface{}{
		"session_id":      sessionID,
		"qr_code":         code.DataURI,
		"expires_at":      code.ExpiresAt,
		"timeout_minutes": int(h.qrCodes.ExpiryWindow().Minutes()),
	})
}

func (h *CustomerHandler) GetSessionStatus(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("sessionId")

	session, err := h.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if session == nil {
		return failure(c, http.StatusNotFound, "Session not found")
	}
	if err := auth.CheckSubject(c, session.CustomerID); err != nil {
		return respondError(c, h.logger, err)
	}

	active, err := h.sessions.IsSessionActive(ctx, sessionID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	expiresAt, err := h.qrCodes.Expiry(ctx, sessionID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var amount interface{}
	if session.Amount != nil {
		amount = session.Amount.StringFixed(2)
	}
	return success(c, http.StatusOK, "", map[string]interface{}{
		"session_id":  session.SessionID,
		"status":      session.Status,
		"is_active":   active,
		"expires_at":  expiresAt,
		"merchant_id": session.MerchantID,
		"amount":      amount,
		"scanned_at":  session.ScannedAt,
	})
}

func (h *CustomerHandler) ConfirmTransaction(c echo.Context) error {
	var req ConfirmTransactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := req.check(); err != nil {
		return respondError(c, h.logger, err)
	}

	id := c.Param("id")
	if err := h.authorize(c, id); err != nil {
		return respondError(c, h.logger, err)
	}

	data, err := idempotent(c, h.transactions, "confirm:"+id, func(ctx context.Context) (interface{}, error) {
		txn, err := h.transactions.ConfirmTransaction(ctx, id, req.AuthMethod, req.authData())
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"transaction_id": txn.TransactionID,
			"status":         txn.Status,
			"amount":         txn.Amount.StringFixed(2),
			"currency":       txn.Currency,
			"merchant_id":    txn.MerchantID,
			"confirmed_at":   txn.ConfirmedAt,
			"auth_method":    txn.AuthMethod,
		}, nil
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return success(c, http.StatusOK, "Transaction confirmed successfully", data)
}

func (h *CustomerHandler) CancelTransaction(c echo.Context) error {
	var req CancelTransactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	reason := req.Reason
	if reason == "" {
		reason = defaultCancelReason
	}

	id := c.Param("id")
	if err := h.authorize(c, id); err != nil {
		return respondError(c, h.logger, err)
	}

	data, err := idempotent(c, h.transactions, "cancel:"+id, func(ctx context.Context) (interface{}, error) {
		txn, err := h.transactions.CancelTransaction(ctx, id, reason)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"transaction_id": txn.TransactionID,
			"status":         txn.Status,
			"cancelled_at":   txn.CancelledAt,
			"reason":         reason,
		}, nil
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return success(c, http.StatusOK, "Transaction cancelled successfully", data)
}

func (h *CustomerHandler) GetTransactionHistory(c echo.Context) error {
	customerID := c.QueryParam("customer_id")
	if customerID == "" {
		customerID, _ = auth.GetUserID(c)
	}
	if customerID == "" {
		return respondError(c, h.logger, domainErrors.NewInvalidInputError("customer_id", "is required"))
	}
	if err := auth.CheckSubject(c, customerID); err != nil {
		return respondError(c, h.logger, err)
	}

	filters, err := parseFilters(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	txns, err := h.transactions.GetCustomerTransactions(c.Request().Context(), customerID, filters)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	items := make([]map[string]interface{}, 0, len(txns))
	for _, txn := range txns {
		items = append(items, map[string]interface{}{
			"transaction_id": txn.TransactionID,
			"amount":         txn.Amount.StringFixed(2),
			"currency":       txn.Currency,
			"status":         txn.Status,
			"type":           txn.Type,
			"merchant_id":    txn.MerchantID,
			"created_at":     txn.CreatedAt,
			"confirmed_at":   txn.ConfirmedAt,
		})
	}
	return success(c, http.StatusOK, "", map[string]interface{}{
		"transactions": items,
		"count":        len(items),
	})
}

func (h *CustomerHandler) GetTransaction(c echo.Context) error {
	txn, err := h.transactions.GetTransaction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if txn == nil {
		return failure(c, http.StatusNotFound, "Transaction not found")
	}
	if err := auth.CheckSubject(c, txn.CustomerID); err != nil {
		return respondError(c, h.logger, err)
	}
	return success(c, http.StatusOK, "", transactionDetail(txn))
}

// authorize loads the transaction so the caller can be matched against its
// customer. Missing transactions surface from the operation itself.
func (h *CustomerHandler) authorize(c echo.Context, id string) error {
	txn, err := h.transactions.GetTransaction(c.Request().Context(), id)
	if err != nil || txn == nil {
		return err
	}
	return auth.CheckSubject(c, txn.CustomerID)
}

func transactionDetail(txn *model.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"transaction_id": txn.TransactionID,
		"session_id":     txn.SessionID,
		"amount":         txn.Amount.StringFixed(2),
		"currency":       txn.Currency,
		"fees":           txn.Fees.StringFixed(2),
		"net_amount":     txn.NetAmount.StringFixed(2),
		"status":         txn.Status,
		"type":           txn.Type,
		"merchant_id":    txn.MerchantID,
		"auth_method":    txn.AuthMethod,
		"created_at":     txn.CreatedAt,
		"processed_at":   txn.ProcessedAt,
		"confirmed_at":   txn.ConfirmedAt,
		"timeout_at":     txn.TimeoutAt,
		"metadata":       txn.Metadata,
	}
}
