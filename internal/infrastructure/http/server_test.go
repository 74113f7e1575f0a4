package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/config"
)

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_HealthAndMetrics(t *testing.T) {
	cfg := config.Default()
	s := NewServer(cfg, zap.NewNop(), Services{}, prometheus.NewRegistry())

	rec := serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"qr-payment","version":"dev"}`, rec.Body.String())

	rec = serve(s, http.MethodGet, "/qr-payment/customer/transactions")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = serve(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_RateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.QRPayment.Security.RateLimit = 2
	s := NewServer(cfg, zap.NewNop(), Services{}, nil)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnprocessableEntity, serve(s, http.MethodGet, "/qr-payment/customer/transactions").Code)
	}
	rec := serve(s, http.MethodGet, "/qr-payment/customer/transactions")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health").Code, "health is never limited")
}

func TestServer_InternalRoutesDisabledInProduction(t *testing.T) {
	cfg := config.Default()
	cfg.Service.Environment = "production"
	s := NewServer(cfg, zap.NewNop(), Services{}, nil)

	rec := serve(s, http.MethodPost, "/qr-payment/internal/transaction/txn_1/settle")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_JWTEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	s := NewServer(cfg, zap.NewNop(), Services{}, nil)

	rec := serve(s, http.MethodGet, "/qr-payment/customer/transactions?customer_id=c")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH_HEADER")

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health").Code)
}

func TestAllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, allowedOrigins(""))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, allowedOrigins("https://a.example, https://b.example"))
}
