// FILE: internal/repository/implementation/audit_log_repository_impl.go
package implementation

import (
	"context"
	"encoding/json"
	"fmt"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/model"
	"event-deletion-be/internal/repository/contract"
	"event-deletion-be/internal/repository/specification"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type auditLogRepositoryImpl struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) contract.AuditLogRepository {
	return &auditLogRepositoryImpl{db: db}
}

func (r *auditLogRepositoryImpl) Create(ctx context.Context, entry *entity.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	m := &model.DeletionAuditLog{
		ID:        entry.ID,
		Action:    string(entry.Action),
		EventID:   entry.EventID,
		RequestID: entry.RequestID,
		ActorID:   entry.Actor.ID,
		Actor:     datatypes.NewJSONType(entry.Actor),
		Timestamp: entry.Timestamp,
		Severity:  string(entry.Severity),
		Category:  string(entry.Category),
		Details:   datatypes.JSON(details),
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *auditLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AuditEntry, error) {
	var models []*model.DeletionAuditLog
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]*entity.AuditEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, r.mapToEntity(m))
	}
	return entries, nil
}

func (r *auditLogRepositoryImpl) CountByAction(ctx context.Context, specs ...specification.Specification) (map[entity.AuditAction]int64, error) {
	type row struct {
		Action string
		Total  int64
	}
	var rows []row

	query := r.db.WithContext(ctx).Model(&model.DeletionAuditLog{})
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Select("action, COUNT(*) AS total").Group("action").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[entity.AuditAction]int64, len(rows))
	for _, rw := range rows {
		counts[entity.AuditAction(rw.Action)] = rw.Total
	}
	return counts, nil
}

func (r *auditLogRepositoryImpl) mapToEntity(m *model.DeletionAuditLog) *entity.AuditEntry {
	details := map[string]interface{}{}
	if len(m.Details) > 0 {
		_ = json.Unmarshal(m.Details, &details)
	}
	return &entity.AuditEntry{
		ID:        m.ID,
		Action:    entity.AuditAction(m.Action),
		EventID:   m.EventID,
		RequestID: m.RequestID,
		Actor:     m.Actor.Data(),
		Timestamp: m.Timestamp,
		Severity:  entity.AuditSeverity(m.Severity),
		Category:  entity.AuditCategory(m.Category),
		Details:   details,
	}
}
