package http

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/wekeepgrowing/qr-payment/internal/usecase"
)

// IdempotencyKeyHeader carries the client's retry key on mutating requests.
const IdempotencyKeyHeader = "Idempotency-Key"

// idempotent runs op at most once per (scope, Idempotency-Key). Requests
// without the header always run op. A replayed result comes back as the
// decoded JSON of the first response data.
func idempotent(c echo.Context, txns *usecase.TransactionService, scope string, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ctx := c.Request().Context()
	key := c.Request().Header.Get(IdempotencyKeyHeader)
	if key == "" {
		return op(ctx)
	}
	return txns.ExecuteIdempotentOperation(ctx, scope+":"+key, op)
}
