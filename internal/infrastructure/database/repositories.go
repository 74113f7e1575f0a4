package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/qr-payment/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/qr-payment/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Session     domainRepo.SessionRepository
	Transaction domainRepo.TransactionRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Session:     repository.NewSessionRepository(db, logger),
		Transaction: repository.NewTransactionRepository(db, logger),
	}
}
