package logger

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maskedHeaders are logged with their value truncated.
var maskedHeaders = map[string]bool{
	"Authorization":   true,
	"Idempotency-Key": false,
}

// NewEchoRequestLogger logs one structured entry per HTTP request.
// 4xx responses are logged at warn, 5xx and handler errors at error.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || p == "/metrics"
		},
		HandleError:     true,
		LogLatency:      true,
		LogRemoteIP:     true,
		LogMethod:       true,
		LogURI:          true,
		LogRoutePath:    true,
		LogRequestID:    true,
		LogUserAgent:    true,
		LogStatus:       true,
		LogError:        true,
		LogResponseSize: true,
		LogHeaders:      []string{"Content-Type", "Authorization", "Idempotency-Key"},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.request_id", v.RequestID),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
				zap.Int64("response.size", v.ResponseSize),
			}
			if len(v.Headers) > 0 {
				fields = append(fields, zap.Any("request.headers", maskHeaders(v.Headers)))
			}

			switch {
			case v.Error != nil:
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
			case v.Status >= http.StatusInternalServerError:
				logger.Error("Server error", fields...)
			case v.Status >= http.StatusBadRequest:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	})
}

func maskHeaders(headers map[string][]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, values := range headers {
		if len(values) == 0 {
			continue
		}
		val := values[0]
		if maskedHeaders[k] {
			if len(val) > 15 {
				val = val[:10] + "..." + val[len(val)-5:]
			} else {
				val = "[MASKED]"
			}
		}
		out[k] = val
	}
	return out
}

// WithEchoLogger swaps echo's logger for zap and installs an error handler
// that renders the {success, message} envelope used by the API.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := http.StatusText(code)
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error("HTTP error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
			)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{
				"success": false,
				"message": message,
			})
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// EchoZapLogger adapts zap to echo.Logger.
type EchoZapLogger struct {
	Logger *zap.Logger
	level  log.Lvl
	prefix string
}

func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{Logger: logger, level: log.INFO}
}

func (l *EchoZapLogger) sugar() *zap.SugaredLogger {
	if l.prefix != "" {
		return l.Logger.Sugar().With("prefix", l.prefix)
	}
	return l.Logger.Sugar()
}

func (l *EchoZapLogger) enabled(lvl log.Lvl) bool {
	return lvl >= l.level
}

func (l *EchoZapLogger) Output() io.Writer      { return &zapWriter{logger: l.Logger} }
func (l *EchoZapLogger) SetOutput(io.Writer)    {}
func (l *EchoZapLogger) Level() log.Lvl         { return l.level }
func (l *EchoZapLogger) SetLevel(v log.Lvl)     { l.level = v }
func (l *EchoZapLogger) SetHeader(string)       {}
func (l *EchoZapLogger) Prefix() string         { return l.prefix }
func (l *EchoZapLogger) SetPrefix(p string)     { l.prefix = p }
func (l *EchoZapLogger) Print(i ...interface{}) { l.sugar().Info(i...) }
func (l *EchoZapLogger) Printf(format string, i ...interface{}) {
	l.sugar().Infof(format, i...)
}
func (l *EchoZapLogger) Printj(j log.JSON) { l.logJSON(zapcore.InfoLevel, j) }

func (l *EchoZapLogger) Debug(i ...interface{}) {
	if l.enabled(log.DEBUG) {
		l.sugar().Debug(i...)
	}
}
func (l *EchoZapLogger) Debugf(format string, i ...interface{}) {
	if l.enabled(log.DEBUG) {
		l.sugar().Debugf(format, i...)
	}
}
func (l *EchoZapLogger) Debugj(j log.JSON) {
	if l.enabled(log.DEBUG) {
		l.logJSON(zapcore.DebugLevel, j)
	}
}

func (l *EchoZapLogger) Info(i ...interface{}) {
	if l.enabled(log.INFO) {
		l.sugar().Info(i...)
	}
}
func (l *EchoZapLogger) Infof(format string, i ...interface{}) {
	if l.enabled(log.INFO) {
		l.sugar().Infof(format, i...)
	}
}
func (l *EchoZapLogger) Infoj(j log.JSON) {
	if l.enabled(log.INFO) {
		l.logJSON(zapcore.InfoLevel, j)
	}
}

func (l *EchoZapLogger) Warn(i ...interface{}) {
	if l.enabled(log.WARN) {
		l.sugar().Warn(i...)
	}
}
func (l *EchoZapLogger) Warnf(format string, i ...interface{}) {
	if l.enabled(log.WARN) {
		l.sugar().Warnf(format, i...)
	}
}
func (l *EchoZapLogger) Warnj(j log.JSON) {
	if l.enabled(log.WARN) {
		l.logJSON(zapcore.WarnLevel, j)
	}
}

func (l *EchoZapLogger) Error(i ...interface{})                 { l.sugar().Error(i...) }
func (l *EchoZapLogger) Errorf(format string, i ...interface{}) { l.sugar().Errorf(format, i...) }
func (l *EchoZapLogger) Errorj(j log.JSON)                      { l.logJSON(zapcore.ErrorLevel, j) }
func (l *EchoZapLogger) Fatal(i ...interface{})                 { l.sugar().Fatal(i...) }
func (l *EchoZapLogger) Fatalf(format string, i ...interface{}) { l.sugar().Fatalf(format, i...) }
func (l *EchoZapLogger) Fatalj(j log.JSON)                      { l.logJSON(zapcore.FatalLevel, j) }
func (l *EchoZapLogger) Panic(i ...interface{})                 { l.sugar().Panic(i...) }
func (l *EchoZapLogger) Panicf(format string, i ...interface{}) { l.sugar().Panicf(format, i...) }
func (l *EchoZapLogger) Panicj(j log.JSON)                      { l.logJSON(zapcore.PanicLevel, j) }

func (l *EchoZapLogger) logJSON(lvl zapcore.Level, j log.JSON) {
	if ce := l.Logger.Check(lvl, "echo"); ce != nil {
		ce.Write(zap.Any("json", j))
	}
}

type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
