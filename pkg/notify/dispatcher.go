// Package notify fans deletion lifecycle notices out to external channels.
// Delivery is best effort: a failed notice never aborts the deletion pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/pkg/logger"
)

// Dispatcher delivers one notice about a deletion request
type Dispatcher interface {
	Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error
}

// DispatcherFunc adapts a function to Dispatcher
type DispatcherFunc func(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error

func (f DispatcherFunc) Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error {
	return f(ctx, kind, req)
}

// Nop drops every notice
var Nop Dispatcher = DispatcherFunc(func(context.Context, entity.NotificationKind, *entity.DeletionRequest) error {
	return nil
})

// Multi sends to every dispatcher and joins their errors
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Notify(ctx, kind, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FailureHook is told about every notice that could not be delivered
type FailureHook func(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest, err error)

// Guard wraps a dispatcher so callers never see its errors or panics
type Guard struct {
	dispatcher Dispatcher
	logger     logger.ILogger
	onFailure  FailureHook
}

func NewGuard(d Dispatcher, log logger.ILogger, onFailure FailureHook) *Guard {
	if d == nil {
		d = Nop
	}
	return &Guard{dispatcher: d, logger: log, onFailure: onFailure}
}

// Send reports whether the notice was delivered
func (g *Guard) Send(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			delivered = false
			g.fail(ctx, kind, req, fmt.Errorf("dispatcher panic: %v", r))
		}
	}()

	if err := g.dispatcher.Notify(ctx, kind, req); err != nil {
		g.fail(ctx, kind, req, err)
		return false
	}
	return true
}

func (g *Guard) fail(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest, err error) {
	g.logger.Warn("NOTIFY", "Notification delivery failed", map[string]interface{}{
		"kind":       string(kind),
		"request_id": req.ID.String(),
		"event_id":   req.EventID.String(),
		"error":      err.Error(),
	})
	if g.onFailure != nil {
		g.onFailure(ctx, kind, req, err)
	}
}

// Payload is the channel independent body of a notice
func Payload(kind entity.NotificationKind, req *entity.DeletionRequest, now time.Time) map[string]interface{} {
	payload := map[string]interface{}{
		"kind":              string(kind),
		"request_id":        req.ID.String(),
		"event_id":          req.EventID.String(),
		"event_name":        req.Event.Name,
		"status":            string(req.Status),
		"scheduled_at":      req.ScheduledAt.UTC().Format(time.RFC3339),
		"execute_at":        req.ExecuteAt.UTC().Format(time.RFC3339),
		"remaining_seconds": int64(req.Remaining(now).Seconds()),
		"requires_approval": req.SecurityCheck.RequiresApproval,
		"initiated_by": map[string]interface{}{
			"id":    req.InitiatedBy.ID,
			"name":  req.InitiatedBy.Name,
			"email": req.InitiatedBy.Email,
			"role":  req.InitiatedBy.Role,
		},
	}
	if req.Statistics != nil {
		payload["total_records"] = req.Statistics.TotalRecords
		payload["collections"] = req.Statistics.Collections
	}
	if req.ErrorMessage != "" {
		payload["error"] = req.ErrorMessage
	}
	if req.CancelReason != "" {
		payload["cancel_reason"] = req.CancelReason
	}
	if req.BackupArtifactID != "" {
		payload["backup_artifact_id"] = req.BackupArtifactID
	}
	return payload
}
