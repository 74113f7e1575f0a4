package repository

import (
	"context"
	"time"

	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
)

// SessionTransition describes a compare-and-swap status change. The row is
// updated only if its status is in From and, when ActiveAt is set, its
// expires_at is after ActiveAt. Mutate runs on a copy before the write.
type SessionTransition struct {
	From     []model.SessionStatus
	To       model.SessionStatus
	ActiveAt *time.Time
	Mutate   func(s *model.Session)
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.Session, error)

	// Transition applies t atomically. On a lost race it returns the current
	// row together with ErrConflict.
	Transition(ctx context.Context, sessionID string, t SessionTransition) (*model.Session, error)

	ListActiveByCustomer(ctx context.Context, customerID string, now time.Time) ([]*model.Session, error)

	// DeleteExpired removes sessions in the given statuses that expired before now.
	DeleteExpired(ctx context.Context, statuses []model.SessionStatus, now time.Time) (int64, error)
}
