package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/token"
)

type SessionSettings struct {
	ExpiryWindow time.Duration
	Currency     string
}

// SessionService owns the session state machine.
type SessionService struct {
	sessions repository.SessionRepository
	settings SessionSettings
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      Clock
}

func NewSessionService(sessions repository.SessionRepository, settings SessionSettings, m *metrics.Metrics, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		settings: settings,
		metrics:  m,
		logger:   logger,
		now:      systemClock,
	}
}

func (s *SessionService) SetClock(c Clock) { s.now = c }

func (s *SessionService) CreateSession(ctx context.Context, customerID string, opts dto.SessionOptions) (*model.Session, error) {
	if customerID == "" {
		return nil, domainErrors.NewInvalidInputError("customer_id", "is required")
	}

	securityToken, err := token.NewSecurityToken()
	if err != nil {
		return nil, err
	}

	currency := opts.Currency
	if currency == "" {
		currency = s.settings.Currency
	}

	session := &model.Session{
		SessionID:     token.NewSessionID(),
		CustomerID:    customerID,
		Currency:      currency,
		Status:        model.SessionStatusPending,
		SecurityToken: securityToken,
		ExpiresAt:     s.now().Add(s.settings.ExpiryWindow),
		Metadata:      opts.Metadata,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Payment session created",
		zap.String("session_id", session.SessionID),
		zap.String("customer_id", customerID),
		zap.Time("expires_at", session.ExpiresAt))
	return session, nil
}

// GetSession returns nil, nil when the session does not exist.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessions.GetBySessionID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return session, err
}

func (s *SessionService) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return false, err
	}
	return session.IsActive(s.now()), nil
}

// UpdateWithMerchantScan claims a pending session for a merchant. Only one
// concurrent scanner wins; the others see the session as not active.
func (s *SessionService) UpdateWithMerchantScan(ctx context.Context, in dto.ScanInput) (*model.Session, error) {
	session, err := s.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domainErrors.NewSessionNotFoundError(in.SessionID)
	}
	now := s.now()
	if !session.IsActive(now) {
		return nil, domainErrors.NewSessionNotActiveError(in.SessionID, string(session.Status))
	}

	merchantID := in.MerchantID
	updated, err := s.sessions.Transition(ctx, in.SessionID, repository.SessionTransition{
		From:     []model.SessionStatus{model.SessionStatusPending},
		To:       model.SessionStatusScanned,
		ActiveAt: &now,
		Mutate: func(next *model.Session) {
			next.MerchantID = &merchantID
			next.Amount = in.Amount
			next.ScannedAt = &now
			next.Metadata = model.MergeMetadata(next.Metadata, in.Metadata)
		},
	})
	s.metrics.SessionTransition(string(model.SessionStatusScanned), err)
	if err != nil {
		return nil, s.transitionError(in.SessionID, updated, err)
	}

	s.logger.Info("Session scanned",
		zap.String("session_id", in.SessionID),
		zap.String("merchant_id", merchantID))
	return updated, nil
}

func (s *SessionService) ConfirmSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.transition(ctx, sessionID, []model.SessionStatus{model.SessionStatusScanned}, model.SessionStatusConfirmed)
}

func (s *SessionService) CancelSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.transition(ctx, sessionID, []model.SessionStatus{
		model.SessionStatusPending,
		model.SessionStatusScanned,
		model.SessionStatusConfirmed,
	}, model.SessionStatusCancelled)
}

// ExpireSession marks the session expired. It reports true when the session
// is expired afterwards, including when it already was, and false when the
// session is absent or cancelled.
func (s *SessionService) ExpireSession(ctx context.Context, sessionID string) (bool, error) {
	updated, err := s.sessions.Transition(ctx, sessionID, repository.SessionTransition{
		From: []model.SessionStatus{
			model.SessionStatusPending,
			model.SessionStatusScanned,
			model.SessionStatusConfirmed,
		},
		To: model.SessionStatusExpired,
	})
	switch {
	case err == nil:
		s.metrics.SessionTransition(string(model.SessionStatusExpired), nil)
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	case errors.Is(err, repository.ErrConflict):
		return updated.Status == model.SessionStatusExpired, nil
	default:
		return false, err
	}
}

// CleanupExpiredSessions deletes pending and scanned sessions whose expiry
// has passed and returns how many were removed.
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, []model.SessionStatus{
		model.SessionStatusPending,
		model.SessionStatusScanned,
	}, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.SessionsSwept(n)
	if n > 0 {
		s.logger.Info("Expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}

func (s *SessionService) GetCustomerActiveSessions(ctx context.Context, customerID string) ([]*model.Session, error) {
	return s.sessions.ListActiveByCustomer(ctx, customerID, s.now())
}

func (s *SessionService) ValidateSessionToken(ctx context.Context, sessionID, securityToken string) (bool, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return false, err
	}
	return token.Equal(session.SecurityToken, securityToken), nil
}

func (s *SessionService) transition(ctx context.Context, sessionID string, from []model.SessionStatus, to model.SessionStatus) (*model.Session, error) {
	updated, err := s.sessions.Transition(ctx, sessionID, repository.SessionTransition{From: from, To: to})
	s.metrics.SessionTransition(string(to), err)
	if err != nil {
		return nil, s.transitionError(sessionID, updated, err)
	}
	s.logger.Info("Session status changed",
		zap.String("session_id", sessionID),
		zap.String("status", string(to)))
	return updated, nil
}

func (s *SessionService) transitionError(sessionID string, current *model.Session, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domainErrors.NewSessionNotFoundError(sessionID)
	case errors.Is(err, repository.ErrConflict) && current != nil:
		return domainErrors.NewSessionNotActiveError(sessionID, string(current.Status))
	default:
		return fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}
}
