package unitofwork

import (
	"context"

	"event-deletion-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DeletionRequestRepository() contract.DeletionRequestRepository
	AuditLogRepository() contract.AuditLogRepository
}
