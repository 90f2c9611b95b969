// FILE: internal/controller/deletion_controller.go
// Controller for scheduled event deletion and its audit trail
package controller

import (
	"context"
	"time"

	"event-deletion-be/internal/dto"
	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/mapper"
	"event-deletion-be/internal/pkg/serverutils"
	"event-deletion-be/internal/service"
	"event-deletion-be/pkg/deletion/executor"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// DeletionExecutor is the operator surface of *executor.Executor
type DeletionExecutor interface {
	ForceProcess(ctx context.Context, requestID uuid.UUID, actor entity.Actor) (*entity.DeletionRequest, error)
	ForceDelete(ctx context.Context, eventID uuid.UUID, actor entity.Actor, opts executor.ForceOptions) (*executor.ForceResult, error)
}

type AnomalyPolicy struct {
	Window    time.Duration
	Threshold int
}

type IDeletionController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Schedule(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	ListForEvent(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	ForceDelete(ctx *fiber.Ctx) error
	ForceProcess(ctx *fiber.Ctx) error
	MarkStuckFailed(ctx *fiber.Ctx) error
	AuditTrail(ctx *fiber.Ctx) error
	AuditSummary(ctx *fiber.Ctx) error
	Anomalies(ctx *fiber.Ctx) error
}

type deletionController struct {
	deletionService service.IDeletionService
	auditService    service.IAuditService
	executor        DeletionExecutor
	anomalies       AnomalyPolicy
	mapper          *mapper.DeletionMapper
}

func NewDeletionController(
	deletionService service.IDeletionService,
	auditService service.IAuditService,
	exec DeletionExecutor,
	anomalies AnomalyPolicy,
) IDeletionController {
	return &deletionController{
		deletionService: deletionService,
		auditService:    auditService,
		executor:        exec,
		anomalies:       anomalies,
		mapper:          mapper.NewDeletionMapper(),
	}
}

func (c *deletionController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/deletion/v1", jwtMiddleware)
	h.Post("events/:eventId", c.Schedule)
	h.Get("events/:eventId", c.Status)
	h.Get("events/:eventId/requests", c.ListForEvent)
	h.Get("events/:eventId/audit", c.AuditTrail)
	h.Get("requests/:id", c.Show)
	h.Post("requests/:id/cancel", c.Cancel)

	adminOnly := serverutils.RequireRole("admin")
	h.Post("events/:eventId/force", adminOnly, c.ForceDelete)
	h.Post("requests/:id/execute", adminOnly, c.ForceProcess)
	h.Post("requests/:id/mark-failed", adminOnly, c.MarkStuckFailed)
	h.Get("audit/summary", adminOnly, c.AuditSummary)
	h.Get("audit/anomalies", adminOnly, c.Anomalies)
}

func parseID(ctx *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+param)
	}
	return id, nil
}

func (c *deletionController) respond(ctx *fiber.Ctx, message string, req *entity.DeletionRequest) error {
	return ctx.JSON(serverutils.SuccessResponse(message, c.mapper.ToResponse(req, c.deletionService.RemainingTime(req))))
}

func (c *deletionController) Schedule(ctx *fiber.Ctx) error {
	eventId, err := parseID(ctx, "eventId")
	if err != nil {
		return err
	}

	var req dto.ScheduleDeletionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.deletionService.Schedule(ctx.Context(), service.ScheduleInput{
		EventID:    eventId,
		Initiator:  serverutils.ActorFromContext(ctx),
		GraceHours: req.GraceHours,
		SkipBackup: req.SkipBackup,
	})
	if err != nil {
		return err
	}

	ctx.Status(fiber.StatusCreated)
	return c.respond(ctx, "Deletion scheduled", res)
}

func (c *deletionController) Status(ctx *fiber.Ctx) error {
	eventId, err := parseID(ctx, "eventId")
	if err != nil {
		return err
	}

	res, err := c.deletionService.Status(ctx.Context(), eventId, serverutils.ActorFromContext(ctx))
	if err != nil {
		return err
	}
	return c.respond(ctx, "Deletion status retrieved", res)
}

func (c *deletionController) ListForEvent(ctx *fiber.Ctx) error {
	eventId, err := parseID(ctx, "eventId")
	if err != nil {
		return err
	}

	requests, err := c.deletionService.ListForEvent(ctx.Context(), eventId)
	if err != nil {
		return err
	}

	res := make([]*dto.DeletionRequestResponse, 0, len(requests))
	for _, r := range requests {
		res = append(res, c.mapper.ToResponse(r, c.deletionService.RemainingTime(r)))
	}
	return ctx.JSON(serverutils.SuccessResponse("Deletion requests retrieved", res))
}

func (c *deletionController) Show(ctx *fiber.Ctx) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.deletionService.Get(ctx.Context(), id)
	if err != nil {
		return err
	}
	return c.respond(ctx, "Deletion request retrieved", res)
}

func (c *deletionController) Cancel(ctx *fiber.Ctx) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.CancelDeletionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.deletionService.Cancel(ctx.Context(), id, serverutils.ActorFromContext(ctx), req.Reason)
	if err != nil {
		return err
	}
	return c.respond(ctx, "Deletion cancelled", res)
}

func (c *deletionController) ForceDelete(ctx *fiber.Ctx) error {
	eventId, err := parseID(ctx, "eventId")
	if err != nil {
		return err
	}

	var req dto.ForceDeleteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	result, err := c.executor.ForceDelete(ctx.Context(), eventId, serverutils.ActorFromContext(ctx), executor.ForceOptions{
		SkipBackup: req.SkipBackup,
		Reason:     req.Reason,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Event deleted", &dto.ForceDeleteResponse{
		EventId:          result.EventID,
		Statistics:       result.Statistics,
		BackupArtifactId: result.BackupArtifactID,
	}))
}

func (c *deletionController) ForceProcess(ctx *fiber.Ctx) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.executor.ForceProcess(ctx.Context(), id, serverutils.ActorFromContext(ctx))
	if err != nil {
		return err
	}
	return c.respond(ctx, "Deletion executed", res)
}

func (c *deletionController) MarkStuckFailed(ctx *fiber.Ctx) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.MarkStuckFailedRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.deletionService.MarkStuckFailed(ctx.Context(), id, serverutils.ActorFromContext(ctx), req.Reason)
	if err != nil {
		return err
	}
	return c.respond(ctx, "Deletion marked failed", res)
}

func (c *deletionController) AuditTrail(ctx *fiber.Ctx) error {
	eventId, err := parseID(ctx, "eventId")
	if err != nil {
		return err
	}

	entries, err := c.auditService.AuditTrail(ctx.Context(), eventId, ctx.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Audit trail retrieved", c.mapper.ToAuditResponses(entries)))
}

func (c *deletionController) AuditSummary(ctx *fiber.Ctx) error {
	summary, err := c.auditService.Summary(ctx.Context(), ctx.QueryInt("days", 30))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Audit summary retrieved", summary))
}

func (c *deletionController) Anomalies(ctx *fiber.Ctx) error {
	window := c.anomalies.Window
	if hours := ctx.QueryInt("window_hours", 0); hours > 0 {
		window = time.Duration(hours) * time.Hour
	}
	threshold := ctx.QueryInt("threshold", c.anomalies.Threshold)

	alerts, err := c.auditService.DetectAnomalies(ctx.Context(), window, threshold)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Anomalies retrieved", alerts))
}
