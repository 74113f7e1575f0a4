package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/usecase"
)

// InternalHandler exposes operator-only operations. It is mounted outside
// production only.
type InternalHandler struct {
	transactions *usecase.TransactionService
	logger       *zap.Logger
}

func NewInternalHandler(transactions *usecase.TransactionService, logger *zap.Logger) *InternalHandler {
	return &InternalHandler{transactions: transactions, logger: logger}
}

func (h *InternalHandler) Register(g *echo.Group) {
	g.POST("/transaction/:id/settle", h.SettleTransaction)
}

func (h *InternalHandler) SettleTransaction(c echo.Context) error {
	id := c.Param("id")
	data, err := idempotent(c, h.transactions, "settle:"+id, func(ctx context.Context) (interface{}, error) {
		txn, err := h.transactions.SettleTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		return transactionDetail(txn), nil
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return success(c, http.StatusOK, "Transaction settled successfully", data)
}
