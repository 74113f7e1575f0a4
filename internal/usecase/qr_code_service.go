package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/qrcode"
)

const (
	qrSessionKeyPrefix = "qr_payment_session:"
	qrPayloadType      = "payment_request"
	qrPayloadVersion   = "1.0"
)

// QRPayload is the JSON encoded into every code.
type QRPayload struct {
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Version   string `json:"version"`
}

// DecodeQRPayload parses scanned code content.
func DecodeQRPayload(data string) (*QRPayload, error) {
	var p QRPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil || p.SessionID == "" {
		return nil, domainErrors.NewInvalidInputError("qr_data", "invalid QR code format")
	}
	if p.Type != "" && p.Type != qrPayloadType {
		return nil, domainErrors.NewInvalidInputError("qr_data", "not a payment request")
	}
	return &p, nil
}

type QRSettings struct {
	ExpiryWindow time.Duration
	Size         int
	Format       string
}

// QRCodeService issues codes and tracks their expiry in the cache. The
// tracked expiry is independent of the session row.
type QRCodeService struct {
	cache    repository.CacheRepository
	renderer *qrcode.Renderer
	settings QRSettings
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      Clock
}

func NewQRCodeService(
	cache repository.CacheRepository,
	renderer *qrcode.Renderer,
	settings QRSettings,
	m *metrics.Metrics,
	logger *zap.Logger,
) *QRCodeService {
	return &QRCodeService{
		cache:    cache,
		renderer: renderer,
		settings: settings,
		metrics:  m,
		logger:   logger,
		now:      systemClock,
	}
}

func (s *QRCodeService) SetClock(c Clock) { s.now = c }

// ExpiryWindow is how long an issued code stays valid.
func (s *QRCodeService) ExpiryWindow() time.Duration { return s.settings.ExpiryWindow }

// Issue renders a code for the session and starts its expiry window.
func (s *QRCodeService) Issue(ctx context.Context, sessionID string, opts dto.QROptions) (*dto.QRCode, error) {
	return s.issue(ctx, sessionID, opts, nil)
}

// Reissue replaces the code. The new expiry is strictly later than the
// previous one even if the clock has not advanced.
func (s *QRCodeService) Reissue(ctx context.Context, sessionID string, opts dto.QROptions) (*dto.QRCode, error) {
	prior, err := s.Expiry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, qrSessionKeyPrefix+sessionID); err != nil {
		return nil, fmt.Errorf("failed to clear qr expiry: %w", err)
	}
	return s.issue(ctx, sessionID, opts, prior)
}

func (s *QRCodeService) issue(ctx context.Context, sessionID string, opts dto.QROptions, prior *time.Time) (*dto.QRCode, error) {
	size := opts.Size
	if size == 0 {
		size = s.settings.Size
	}
	format := opts.Format
	if format == "" {
		format = s.settings.Format
	}
	if size < qrcode.MinSize || size > qrcode.MaxSize {
		return nil, domainErrors.NewInvalidInputError("size", fmt.Sprintf("must be between %d and %d", qrcode.MinSize, qrcode.MaxSize))
	}
	if _, err := qrcode.NormalizeFormat(format); err != nil {
		return nil, domainErrors.NewInvalidInputError("format", "must be one of png, jpg, svg")
	}

	now := s.now()
	payload, err := json.Marshal(QRPayload{
		SessionID: sessionID,
		Timestamp: now.Unix(),
		Type:      qrPayloadType,
		Version:   qrPayloadVersion,
	})
	if err != nil {
		return nil, err
	}

	img, err := s.renderer.Render(string(payload), size, format)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}

	expiresAt := now.Add(s.settings.ExpiryWindow)
	if prior != nil && !expiresAt.After(*prior) {
		expiresAt = prior.Add(time.Millisecond)
	}

	ttl := expiresAt.Sub(now)
	value := []byte(expiresAt.UTC().Format(time.RFC3339Nano))
	if err := s.cache.Set(ctx, qrSessionKeyPrefix+sessionID, value, ttl); err != nil {
		return nil, fmt.Errorf("failed to store qr expiry: %w", err)
	}

	s.metrics.QRIssued(img.Format)
	s.logger.Info("QR code issued",
		zap.String("session_id", sessionID),
		zap.String("format", img.Format),
		zap.Time("expires_at", expiresAt))

	return &dto.QRCode{
		SessionID: sessionID,
		DataURI:   img.DataURI(),
		Format:    img.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// Expiry returns the tracked expiry, or nil when the code was never issued
// or has been evicted.
func (s *QRCodeService) Expiry(ctx context.Context, sessionID string) (*time.Time, error) {
	raw, err := s.cache.Get(ctx, qrSessionKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read qr expiry: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse qr expiry: %w", err)
	}
	return &t, nil
}

// Valid reports whether the code exists and has not expired.
func (s *QRCodeService) Valid(ctx context.Context, sessionID string) (bool, error) {
	exp, err := s.Expiry(ctx, sessionID)
	if err != nil || exp == nil {
		return false, err
	}
	return s.now().Before(*exp), nil
}
