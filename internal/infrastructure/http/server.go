package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	handlers "github.com/wekeepgrowing/qr-payment/internal/adapter/handler/http"
	"github.com/wekeepgrowing/qr-payment/internal/config"
	"github.com/wekeepgrowing/qr-payment/internal/middleware/auth"
	"github.com/wekeepgrowing/qr-payment/internal/usecase"
	pkglogger "github.com/wekeepgrowing/qr-payment/pkg/logger"
)

// Services are the use cases the HTTP surface exposes.
type Services struct {
	Sessions      *usecase.SessionService
	QRCodes       *usecase.QRCodeService
	Transactions  *usecase.TransactionService
	Notifications *usecase.NotificationService
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
	gatherer prometheus.Gatherer
}

// NewServer builds the echo instance. reg receives the HTTP request metrics
// and is served on /metrics; pass nil to disable both.
func NewServer(cfg *config.Config, logger *zap.Logger, services Services, reg *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	pkglogger.WithEchoLogger(e, logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			id, err := gonanoid.New()
			if err != nil {
				return fmt.Sprintf("req-%d", time.Now().UnixNano())
			}
			return id
		},
	}))
	e.Use(pkglogger.NewEchoRequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins(cfg.Service.ClientURL),
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, handlers.IdempotencyKeyHeader},
	}))

	s := &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		services: services,
	}
	if reg != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "http",
			Registerer: reg,
			Skipper:    skipOperational,
		}))
		s.gatherer = reg
	}
	if perMinute := cfg.QRPayment.Security.RateLimit; perMinute > 0 {
		e.Use(rateLimiter(perMinute))
	}

	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
			"version": s.config.Service.Version,
		})
	})
	if s.gatherer != nil {
		s.echo.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: s.gatherer}))
	}

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Issuer: s.config.JWT.Issuer,
		Logger: s.logger,
	}
	if !jwtConfig.Enabled() {
		s.logger.Warn("JWT secret not configured, actor routes are unauthenticated")
	}

	root := s.echo.Group(s.config.Service.RoutePrefix, auth.JWTMiddleware(jwtConfig))

	customer := handlers.NewCustomerHandler(s.services.Sessions, s.services.QRCodes, s.services.Transactions, s.logger)
	customer.Register(root.Group("/customer", auth.RequireRole(auth.RoleCustomer)))

	merchant := handlers.NewMerchantHandler(
		s.services.Sessions,
		s.services.Transactions,
		s.services.Notifications,
		handlers.MerchantSettings{
			MaxAmount: s.config.QRPayment.MaxAmount(),
			Currency:  s.config.QRPayment.Transaction.Currency,
		},
		s.logger,
	)
	merchant.Register(root.Group("/merchant", auth.RequireRole(auth.RoleMerchant)))

	if !s.config.IsProduction() {
		internal := handlers.NewInternalHandler(s.services.Transactions, s.logger)
		internal.Register(root.Group("/internal", auth.RequireRole(auth.RoleAdmin)))
	}
}

func rateLimiter(perMinute int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: skipOperational,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(perMinute) / 60),
			Burst:     perMinute,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"success": false,
				"message": "Unable to identify client",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"success": false,
				"message": "Too many requests",
			})
		},
	})
}

func skipOperational(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/health" || p == "/metrics"
}

func allowedOrigins(clientURL string) []string {
	var out []string
	for _, o := range strings.Split(clientURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
