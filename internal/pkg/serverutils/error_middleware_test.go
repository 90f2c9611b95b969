package serverutils

import (
	"errors"
	"fmt"
	"testing"

	"event-deletion-be/internal/apperror"
	"event-deletion-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"conflict", &apperror.ConflictError{EventID: "e1", ExistingRequestID: "r1", ExistingStatus: entity.DeletionStatusScheduled}, fiber.StatusConflict},
		{"wrapped invalid state", fmt.Errorf("cancel: %w", &apperror.InvalidStateError{RequestID: "r1", Attempted: "cancel"}), fiber.StatusUnprocessableEntity},
		{"not found", apperror.NewNotFound("deletion request", "r1"), fiber.StatusNotFound},
		{"partial", &apperror.PartialFailureError{Failures: []apperror.CollectionFailure{{Collection: "tickets", Error: "boom"}}}, fiber.StatusMultiStatus},
		{"validation", &ValidationError{Fields: map[string]string{"reason": "is required"}}, fiber.StatusBadRequest},
		{"fiber", fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{"unknown", errors.New("disk on fire"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := MapError(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.code, body.Code)
			assert.False(t, body.Success)
		})
	}
}

func TestMapErrorCarriesConflictDetails(t *testing.T) {
	_, body := MapError(&apperror.ConflictError{EventID: "e1", ExistingRequestID: "r1", ExistingStatus: entity.DeletionStatusExecuting})

	details, ok := body.Errors.(fiber.Map)
	assert.True(t, ok)
	assert.Equal(t, "r1", details["existing_request_id"])
	assert.Equal(t, entity.DeletionStatusExecuting, details["existing_status"])
}
