// FILE: internal/repository/contract/deletion_request_repository.go
package contract

import (
	"context"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/repository/specification"

	"github.com/google/uuid"
)

// DeletionRequestRepository persists the deletion state machine
type DeletionRequestRepository interface {
	Create(ctx context.Context, request *entity.DeletionRequest) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DeletionRequest, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DeletionRequest, error)
	// Transition writes every mutable field except the notification flags, and
	// only if the stored status still equals from. It reports false when another
	// writer moved the request first.
	Transition(ctx context.Context, request *entity.DeletionRequest, from entity.DeletionStatus) (bool, error)
	// MarkNotificationSent sets one flag on the stored flags and returns the merged set
	MarkNotificationSent(ctx context.Context, id uuid.UUID, kind entity.NotificationKind) (entity.NotificationFlags, error)
	MarkDeleted(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteUnscoped(ctx context.Context, specs ...specification.Specification) (int64, error) // Hard delete
}
