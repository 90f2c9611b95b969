// FILE: internal/pkg/serverutils/error_middleware.go
package serverutils

import (
	"errors"

	"event-deletion-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON responses
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, body := MapError(err)
		return ctx.Status(code).JSON(body)
	}
}

// MapError picks the status code for an error
func MapError(err error) (int, *BaseResponse[any]) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		res := ErrorResponse(fiber.StatusBadRequest, "Validation failed")
		res.Errors = validationErr.Fields
		return fiber.StatusBadRequest, res
	}

	var conflict *apperror.ConflictError
	if errors.As(err, &conflict) {
		res := ErrorResponse(fiber.StatusConflict, err.Error())
		res.Errors = fiber.Map{
			"existing_request_id": conflict.ExistingRequestID,
			"existing_status":     conflict.ExistingStatus,
		}
		return fiber.StatusConflict, res
	}

	var partial *apperror.PartialFailureError
	if errors.As(err, &partial) {
		res := ErrorResponse(fiber.StatusMultiStatus, err.Error())
		res.Errors = partial.Failures
		return fiber.StatusMultiStatus, res
	}

	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, apperror.ErrInvalidState):
		return fiber.StatusUnprocessableEntity, ErrorResponse(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound, ErrorResponse(fiber.StatusNotFound, err.Error())
	case errors.As(err, &fiberErr):
		return fiberErr.Code, ErrorResponse(fiberErr.Code, fiberErr.Message)
	}
	return fiber.StatusInternalServerError, ErrorResponse(fiber.StatusInternalServerError, err.Error())
}
