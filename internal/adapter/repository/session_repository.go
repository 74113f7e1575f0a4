package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/qr-payment/internal/domain/repository"
)

type sessionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository instance
func NewSessionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SessionRepository {
	return &sessionRepository{db: db, logger: logger}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		r.logger.Error("Failed to create session",
			zap.String("session_id", session.SessionID),
			zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainRepo.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Transition performs the compare-and-swap as a single conditional UPDATE.
// The pre-read only serves to build the new column values and to report the
// observed status on conflict.
func (r *sessionRepository) Transition(ctx context.Context, sessionID string, t domainRepo.SessionTransition) (*model.Session, error) {
	if len(t.From) == 0 {
		return nil, fmt.Errorf("transition to %s has no source status", t.To)
	}
	for _, from := range t.From {
		if !from.CanTransitionTo(t.To) {
			return nil, fmt.Errorf("%w: %s -> %s", domainRepo.ErrInvalidTransition, from, t.To)
		}
	}

	current, err := r.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !containsSessionStatus(t.From, current.Status) {
		return current, domainRepo.ErrConflict
	}

	next := *current
	next.Status = t.To
	if t.Mutate != nil {
		t.Mutate(&next)
	}
	next.UpdatedAt = time.Now().UTC()

	query := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("session_id = ? AND status IN ?", sessionID, t.From)
	if t.ActiveAt != nil {
		query = query.Where("expires_at > ?", *t.ActiveAt)
	}

	result := query.Updates(map[string]interface{}{
		"status":      next.Status,
		"merchant_id": next.MerchantID,
		"amount":      next.Amount,
		"scanned_at":  next.ScannedAt,
		"metadata":    next.Metadata,
		"updated_at":  next.UpdatedAt,
	})
	if result.Error != nil {
		r.logger.Error("Failed to transition session",
			zap.String("session_id", sessionID),
			zap.String("to", string(t.To)),
			zap.Error(result.Error))
		return nil, fmt.Errorf("failed to transition session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		latest, err := r.GetBySessionID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("Session transition lost",
			zap.String("session_id", sessionID),
			zap.String("to", string(t.To)),
			zap.String("status", string(latest.Status)))
		return latest, domainRepo.ErrConflict
	}

	return &next, nil
}

func (r *sessionRepository) ListActiveByCustomer(ctx context.Context, customerID string, now time.Time) ([]*model.Session, error) {
	var sessions []*model.Session
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status = ? AND expires_at > ?", customerID, model.SessionStatusPending, now).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, statuses []model.SessionStatus, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", statuses, now).
		Delete(&model.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func containsSessionStatus(list []model.SessionStatus, s model.SessionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
