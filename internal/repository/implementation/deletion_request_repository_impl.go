// FILE: internal/repository/implementation/deletion_request_repository_impl.go
package implementation

import (
	"context"
	"errors"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/model"
	"event-deletion-be/internal/repository/contract"
	"event-deletion-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type deletionRequestRepositoryImpl struct {
	db *gorm.DB
}

// NewDeletionRequestRepository creates a new deletion request repository
func NewDeletionRequestRepository(db *gorm.DB) contract.DeletionRequestRepository {
	return &deletionRequestRepositoryImpl{db: db}
}

func (r *deletionRequestRepositoryImpl) Create(ctx context.Context, request *entity.DeletionRequest) error {
	return r.db.WithContext(ctx).Create(r.mapToModel(request)).Error
}

func (r *deletionRequestRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DeletionRequest, error) {
	var m model.DeletionRequest
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapToEntity(&m), nil
}

func (r *deletionRequestRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DeletionRequest, error) {
	var models []*model.DeletionRequest
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	requests := make([]*entity.DeletionRequest, 0, len(models))
	for _, m := range models {
		requests = append(requests, r.mapToEntity(m))
	}

	return requests, nil
}

func (r *deletionRequestRepositoryImpl) Transition(ctx context.Context, request *entity.DeletionRequest, from entity.DeletionStatus) (bool, error) {
	m := r.mapToModel(request)
	result := r.db.WithContext(ctx).Model(&model.DeletionRequest{}).
		Where("id = ? AND status = ?", request.ID, string(from)).
		Updates(map[string]interface{}{
			"status":                 m.Status,
			"cancelled_by":           m.CancelledBy,
			"cancelled_at":           m.CancelledAt,
			"cancel_reason":          m.CancelReason,
			"execution_started_at":   m.ExecutionStartedAt,
			"execution_completed_at": m.ExecutionCompletedAt,
			"execution_failed_at":    m.ExecutionFailedAt,
			"finished_at":            m.FinishedAt,
			"error_message":          m.ErrorMessage,
			"error_detail":           m.ErrorDetail,
			"statistics":             m.Statistics,
			"backup_artifact_id":     m.BackupArtifactID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *deletionRequestRepositoryImpl) MarkNotificationSent(ctx context.Context, id uuid.UUID, kind entity.NotificationKind) (entity.NotificationFlags, error) {
	var flags entity.NotificationFlags
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.DeletionRequest
		if err := tx.Select("id", "notifications").Where("id = ?", id).First(&m).Error; err != nil {
			return err
		}
		flags = m.Notifications.Data()
		flags.MarkSent(kind)
		return tx.Model(&model.DeletionRequest{}).
			Where("id = ?", id).
			Update("notifications", datatypes.NewJSONType(flags)).Error
	})
	return flags, err
}

func (r *deletionRequestRepositoryImpl) MarkDeleted(ctx context.Context, specs ...specification.Specification) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.DeletionRequest{})
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	result := query.Update("is_deleted", true)
	return result.RowsAffected, result.Error
}

func (r *deletionRequestRepositoryImpl) DeleteUnscoped(ctx context.Context, specs ...specification.Specification) (int64, error) {
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	result := query.Delete(&model.DeletionRequest{})
	return result.RowsAffected, result.Error
}

func (r *deletionRequestRepositoryImpl) mapToModel(e *entity.DeletionRequest) *model.DeletionRequest {
	return &model.DeletionRequest{
		ID:                   e.ID,
		EventID:              e.EventID,
		EventSnapshot:        datatypes.NewJSONType(e.Event),
		ScheduledAt:          e.ScheduledAt,
		GraceHours:           e.GraceHours,
		ExecuteAt:            e.ExecuteAt,
		Status:               string(e.Status),
		InitiatedBy:          datatypes.NewJSONType(e.InitiatedBy),
		CancelledBy:          datatypes.NewJSONType(e.CancelledBy),
		CancelledAt:          e.CancelledAt,
		CancelReason:         e.CancelReason,
		ExecutionStartedAt:   e.ExecutionStartedAt,
		ExecutionCompletedAt: e.ExecutionCompletedAt,
		ExecutionFailedAt:    e.ExecutionFailedAt,
		FinishedAt:           e.FinishedAt,
		ErrorMessage:         e.ErrorMessage,
		ErrorDetail:          e.ErrorDetail,
		Statistics:           datatypes.NewJSONType(e.Statistics),
		SecurityCheck:        datatypes.NewJSONType(e.SecurityCheck),
		BackupArtifactID:     e.BackupArtifactID,
		SkipBackup:           e.SkipBackup,
		Notifications:        datatypes.NewJSONType(e.Notifications),
		IsDeleted:            e.IsDeleted,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// mapToEntity converts model.DeletionRequest to entity.DeletionRequest
func (r *deletionRequestRepositoryImpl) mapToEntity(m *model.DeletionRequest) *entity.DeletionRequest {
	return &entity.DeletionRequest{
		ID:                   m.ID,
		EventID:              m.EventID,
		Event:                m.EventSnapshot.Data(),
		ScheduledAt:          m.ScheduledAt,
		GraceHours:           m.GraceHours,
		ExecuteAt:            m.ExecuteAt,
		Status:               entity.DeletionStatus(m.Status),
		InitiatedBy:          m.InitiatedBy.Data(),
		CancelledBy:          m.CancelledBy.Data(),
		CancelledAt:          m.CancelledAt,
		CancelReason:         m.CancelReason,
		ExecutionStartedAt:   m.ExecutionStartedAt,
		ExecutionCompletedAt: m.ExecutionCompletedAt,
		ExecutionFailedAt:    m.ExecutionFailedAt,
		FinishedAt:           m.FinishedAt,
		ErrorMessage:         m.ErrorMessage,
		ErrorDetail:          m.ErrorDetail,
		Statistics:           m.Statistics.Data(),
		SecurityCheck:        m.SecurityCheck.Data(),
		BackupArtifactID:     m.BackupArtifactID,
		SkipBackup:           m.SkipBackup,
		Notifications:        m.Notifications.Data(),
		IsDeleted:            m.IsDeleted,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
