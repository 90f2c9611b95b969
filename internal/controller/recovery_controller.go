// FILE: internal/controller/recovery_controller.go
// Admin surface over stored backup artifacts
package controller

import (
	"context"

	"event-deletion-be/internal/dto"
	"event-deletion-be/internal/pkg/serverutils"
	"event-deletion-be/pkg/deletion/recovery"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// BackupRecovery is satisfied by *recovery.Service
type BackupRecovery interface {
	List(ctx context.Context) ([]recovery.Summary, error)
	Details(ctx context.Context, id string) (*recovery.Details, error)
	Restore(ctx context.Context, id string, opts recovery.RestoreOptions) (*recovery.RestoreResult, error)
}

type IRecoveryController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	ListBackups(ctx *fiber.Ctx) error
	ShowBackup(ctx *fiber.Ctx) error
	RestoreBackup(ctx *fiber.Ctx) error
}

type recoveryController struct {
	recovery BackupRecovery
}

func NewRecoveryController(svc BackupRecovery) IRecoveryController {
	return &recoveryController{recovery: svc}
}

func (c *recoveryController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/recovery/v1", jwtMiddleware, serverutils.RequireRole("admin"))
	h.Get("backups", c.ListBackups)
	h.Get("backups/:id", c.ShowBackup)
	h.Post("backups/:id/restore", c.RestoreBackup)
}

func (c *recoveryController) ListBackups(ctx *fiber.Ctx) error {
	summaries, err := c.recovery.List(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Backups retrieved", summaries))
}

func (c *recoveryController) ShowBackup(ctx *fiber.Ctx) error {
	details, err := c.recovery.Details(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Backup retrieved", details))
}

func (c *recoveryController) RestoreBackup(ctx *fiber.Ctx) error {
	var req dto.RestoreBackupRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	opts := recovery.RestoreOptions{
		DryRun:       req.DryRun,
		Collections:  req.Collections,
		SkipExisting: req.SkipExisting,
		Actor:        serverutils.ActorFromContext(ctx),
	}
	if req.NewEventId != "" {
		id, err := uuid.Parse(req.NewEventId)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid new_event_id")
		}
		opts.NewEventID = &id
	}

	result, err := c.recovery.Restore(ctx.Context(), ctx.Params("id"), opts)
	if err != nil {
		return err
	}

	message := "Backup restored"
	if result.DryRun {
		message = "Restore dry run finished"
	}
	return ctx.JSON(serverutils.SuccessResponse(message, result))
}
