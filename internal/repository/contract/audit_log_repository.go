// FILE: internal/repository/contract/audit_log_repository.go
package contract

import (
	"context"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/repository/specification"
)

// AuditLogRepository is append-only: there is no update or delete
type AuditLogRepository interface {
	Create(ctx context.Context, entry *entity.AuditEntry) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AuditEntry, error)
	CountByAction(ctx context.Context, specs ...specification.Specification) (map[entity.AuditAction]int64, error)
}
