package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
	"github.com/wekeepgrowing/qr-payment/internal/middleware/auth"
	"github.com/wekeepgrowing/qr-payment/internal/usecase"
)

const (
	defaultRefundReason = "Merchant refund"
	memberVerified      = "verified"
)

type MerchantSettings struct {
	MaxAmount decimal.Decimal
	Currency  string
}

type MerchantHandler struct {
	sessions      *usecase.SessionService
	transactions  *usecase.TransactionService
	notifications *usecase.NotificationService
	settings      MerchantSettings
	logger        *zap.Logger
}

func NewMerchantHandler(
	sessions *usecase.SessionService,
	transactions *usecase.TransactionService,
	notifications *usecase.NotificationService,
	settings MerchantSettings,
	logger *zap.Logger,
) *MerchantHandler {
	if settings.Currency == "" {
		settings.Currency = "USD"
	}
	return &MerchantHandler{
		sessions:      sessions,
		transactions:  transactions,
		notifications: notifications,
		settings:      settings,
		logger:        logger,
	}
}

func (h *MerchantHandler) Register(g *echo.Group) {
	g.POST("/qr-code/scan", h.ScanQRCode)
	g.POST("/payment/process", h.ProcessPayment)
	g.GET("/payment/:id/status", h.GetPaymentStatus)
	g.GET("/transactions", h.GetTransactionHistory)
	g.POST("/transaction/:id/refund", h.RefundTransaction)
	g.GET("/transaction/:id/receipt", h.GetReceipt)
}

// ScanQRCode claims the customer's session for the merchant.
func (h *MerchantHandler) ScanQRCode(c echo.Context) error {
	var req ScanQRCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := auth.CheckSubject(c, req.MerchantID); err != nil {
		return respondError(c, h.logger, err)
	}

	payload, err := usecase.DecodeQRPayload(req.QRData)
	if err != nil {
		return failure(c, http.StatusBadRequest, "Invalid QR code format")
	}

	session, err := h.sessions.UpdateWithMerchantScan(c.Request().Context(), dto.ScanInput{
		SessionID:  payload.SessionID,
		MerchantID: req.MerchantID,
	})
	if err != nil {
		return h.scanError(c, err)
	}

	h.logger.Info("QR code scanned",
		zap.String("session_id", session.SessionID),
		zap.String("merchant_id", req.MerchantID))

	return success(c, http.StatusOK, "QR code scanned successfully", map[string]interface{}{
		"session_id":     session.SessionID,
		"customer_id":    session.CustomerID,
		"session_status": session.Status,
		"expires_at":     session.ExpiresAt,
		"customer_info": map[string]interface{}{
			"id":            session.CustomerID,
			"member_status": memberVerified,
		},
	})
}

func (h *MerchantHandler) scanError(c echo.Context, err error) error {
	var (
		notFound *domainErrors.SessionNotFoundError
		inactive *domainErrors.SessionNotActiveError
	)
	switch {
	case errors.As(err, &notFound):
		return failure(c, http.StatusNotFound, "Payment session not found")
	case errors.As(err, &inactive):
		switch model.SessionStatus(inactive.Status) {
		case model.SessionStatusScanned, model.SessionStatusConfirmed:
			return failure(c, http.StatusBadRequest, "QR code has already been scanned")
		}
		return failure(c, http.StatusBadRequest, "Payment session has expired or is no longer active")
	}
	return respondError(c, h.logger, err)
}

// ProcessPayment opens a pending payment against the session. A pending
// session is scanned first; one already scanned by the same merchant is
// accepted as is.
func (h *MerchantHandler) ProcessPayment(c echo.Context) error {
	var req ProcessPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := req.check(h.settings.MaxAmount); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := auth.CheckSubject(c, req.MerchantID); err != nil {
		return respondError(c, h.logger, err)
	}

	data, err := idempotent(c, h.transactions, "process-payment:"+req.MerchantID, func(ctx context.Context) (interface{}, error) {
		if err := h.claimSession(ctx, &req); err != nil {
			return nil, err
		}

		txn, err := h.transactions.ProcessPayment(ctx, dto.ProcessPaymentInput{
			SessionID:     req.SessionID,
			CustomerID:    req.CustomerID,
			MerchantID:    req.MerchantID,
			Amount:        req.Amount,
			Currency:      req.Currency,
			CalculateFees: true,
			ReferenceID:   req.ReferenceID,
			MerchantInfo: map[string]interface{}{
				"name":                req.MerchantName,
				"location":            req.Location,
				"verification_status": memberVerified,
			},
			TransactionDetails: req.details(),
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"transaction_id": txn.TransactionID,
			"session_id":     txn.SessionID,
			"amount":         txn.Amount.StringFixed(2),
			"currency":       txn.Currency,
			"fees":           txn.Fees.StringFixed(2),
			"net_amount":     txn.NetAmount.StringFixed(2),
			"status":         txn.Status,
			"timeout_at":     txn.TimeoutAt,
			"customer_id":    txn.CustomerID,
		}, nil
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return success(c, http.StatusOK, "Payment initiated successfully", data)
}

func (h *MerchantHandler) claimSession(ctx context.Context, req *ProcessPaymentRequest) error {
	invalid := echo.NewHTTPError(http.StatusBadRequest, "Invalid or expired payment session")

	session, err := h.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if session == nil || session.CustomerID != req.CustomerID {
		return invalid
	}

	switch session.Status {
	case model.SessionStatusPending:
		amount := req.Amount
		details := req.details()
		details["location"] = req.Location
		_, err := h.sessions.UpdateWithMerchantScan(ctx, dto.ScanInput{
			SessionID:  req.SessionID,
			MerchantID: req.MerchantID,
			Amount:     &amount,
			Metadata:   details,
		})
		var inactive *domainErrors.SessionNotActiveError
		if errors.As(err, &inactive) {
			return invalid
		}
		return err
	case model.SessionStatusScanned:
		if session.MerchantID != nil && *session.MerchantID == req.MerchantID {
			return nil
		}
	}
	return invalid
}

func (h *MerchantHandler) GetPaymentStatus(c echo.Context) error {
	txn, err := h.transactions.GetTransaction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if txn == nil {
		return failure(c, http.StatusNotFound, "Transaction not found")
	}
	if err := auth.CheckSubject(c, txn.MerchantID); err != nil {
		return respondError(c, h.logger, err)
	}

	return success(c, http.StatusOK, "", map[string]interface{}{
		"transaction_id":         txn.TransactionID,
		"status":                 txn.Status,
		"amount":                 txn.Amount.StringFixed(2),
		"currency":               txn.Currency,
		"customer_id":            txn.CustomerID,
		"is_timed_out":           h.transactions.IsTimedOut(txn),
		"time_remaining_seconds": h.transactions.TimeRemaining(txn),
		"processed_at":           txn.ProcessedAt,
		"confirmed_at":           txn.ConfirmedAt,
		"auth_method":            txn.AuthMethod,
	})
}

func (h *MerchantHandler) GetTransactionHistory(c echo.Context) error {
	merchantID := c.QueryParam("merchant_id")
	if merchantID == "" {
		merchantID, _ = auth.GetUserID(c)
	}
	if merchantID == "" {
		return respondError(c, h.logger, domainErrors.NewInvalidInputError("merchant_id", "is required"))
	}
	if err := auth.CheckSubject(c, merchantID); err != nil {
		return respondError(c, h.logger, err)
	}

	filters, err := parseFilters(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	txns, err := h.transactions.GetMerchantTransactions(c.Request().Context(), merchantID, filters)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	total := decimal.Zero
	currency := h.settings.Currency
	if len(txns) > 0 {
		currency = txns[0].Currency
	}
	items := make([]map[string]interface{}, 0, len(txns))
	for _, txn := range txns {
		if txn.IsCompleted() {
			total = total.Add(txn.Amount)
		}
		items = append(items, map[string]interface{}{
			"transaction_id": txn.TransactionID,
			"amount":         txn.Amount.StringFixed(2),
			"currency":       txn.Currency,
			"status":         txn.Status,
			"type":           txn.Type,
			"customer_id":    txn.CustomerID,
			"created_at":     txn.CreatedAt,
			"confirmed_at":   txn.ConfirmedAt,
		})
	}

	return success(c, http.StatusOK, "", map[string]interface{}{
		"transactions": items,
		"summary": map[string]interface{}{
			"total_count":  len(items),
			"total_amount": total.StringFixed(2),
			"currency":     currency,
		},
	})
}

func (h *MerchantHandler) RefundTransaction(c echo.Context) error {
	var req RefundTransactionRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.ManagerApprovalCode == "" {
		return failure(c, http.StatusForbidden, "Manager approval required for refunds")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := req.check(); err != nil {
		return respondError(c, h.logger, err)
	}
	reason := req.Reason
	if reason == "" {
		reason = defaultRefundReason
	}

	id := c.Param("id")
	original, err := h.transactions.GetTransaction(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if original == nil {
		return failure(c, http.StatusNotFound, "Transaction not found")
	}
	if err := auth.CheckSubject(c, original.MerchantID); err != nil {
		return respondError(c, h.logger, err)
	}

	data, err := idempotent(c, h.transactions, "refund:"+id, func(ctx context.Context) (interface{}, error) {
		refund, err := h.transactions.RefundTransaction(ctx, id, req.Amount, reason)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"refund_transaction_id":   refund.TransactionID,
			"original_transaction_id": id,
			"refund_amount":           refund.Amount.StringFixed(2),
			"currency":                refund.Currency,
			"status":                  refund.Status,
			"reason":                  reason,
			"processed_at":            refund.ProcessedAt,
		}, nil
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return success(c, http.StatusOK, "Refund processed successfully", data)
}

// GetReceipt returns the receipt of a completed payment and optionally
// emails it to ?email=.
func (h *MerchantHandler) GetReceipt(c echo.Context) error {
	ctx := c.Request().Context()
	txn, err := h.transactions.GetTransaction(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if txn == nil {
		return failure(c, http.StatusNotFound, "Transaction not found")
	}
	if err := auth.CheckSubject(c, txn.MerchantID); err != nil {
		return respondError(c, h.logger, err)
	}
	if !txn.IsCompleted() {
		return failure(c, http.StatusBadRequest, "Receipt only available for completed transactions")
	}

	receipt, err := h.transactions.BuildReceipt(txn)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if email := c.QueryParam("email"); email != "" {
		if err := h.notifications.SendEmailReceipt(ctx, email, txn.TransactionID, receipt.Amount); err != nil {
			h.logger.Warn("Email receipt not sent",
				zap.String("transaction_id", txn.TransactionID),
				zap.Error(err))
		}
	}

	return success(c, http.StatusOK, "", map[string]interface{}{"receipt": receipt})
}
