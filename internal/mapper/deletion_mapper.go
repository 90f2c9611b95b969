package mapper

import (
	"event-deletion-be/internal/dto"
	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/service"
)

type DeletionMapper struct{}

func NewDeletionMapper() *DeletionMapper {
	return &DeletionMapper{}
}

func (m *DeletionMapper) ToResponse(r *entity.DeletionRequest, remaining service.RemainingTime) *dto.DeletionRequestResponse {
	if r == nil {
		return nil
	}
	return &dto.DeletionRequestResponse{
		Id:          r.ID,
		EventId:     r.EventID,
		Event:       r.Event,
		Status:      r.Status,
		ScheduledAt: r.ScheduledAt,
		GraceHours:  r.GraceHours,
		ExecuteAt:   r.ExecuteAt,
		Remaining: dto.RemainingTimeResponse{
			Seconds: remaining.Seconds,
			Expired: remaining.Expired,
			Display: remaining.Display,
		},
		InitiatedBy:      r.InitiatedBy,
		CancelledBy:      r.CancelledBy,
		CancelledAt:      r.CancelledAt,
		CancelReason:     r.CancelReason,
		StartedAt:        r.ExecutionStartedAt,
		CompletedAt:      r.ExecutionCompletedAt,
		FailedAt:         r.ExecutionFailedAt,
		ErrorMessage:     r.ErrorMessage,
		Statistics:       r.Statistics,
		SecurityCheck:    r.SecurityCheck,
		BackupArtifactId: r.BackupArtifactID,
		SkipBackup:       r.SkipBackup,
		Notifications:    r.Notifications,
	}
}

func (m *DeletionMapper) ToAuditResponses(entries []*entity.AuditEntry) []*dto.AuditEntryResponse {
	res := make([]*dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, &dto.AuditEntryResponse{
			Id:        e.ID,
			Action:    e.Action,
			EventId:   e.EventID,
			RequestId: e.RequestID,
			Actor:     e.Actor,
			Timestamp: e.Timestamp,
			Severity:  e.Severity,
			Category:  e.Category,
			Details:   e.Details,
		})
	}
	return res
}
