// Package apperror holds the error taxonomy shared by the deletion core.
// Use errors.Is against the sentinels for simple checks, or errors.As to reach
// the typed error and its context.
package apperror

import (
	"errors"
	"fmt"
	"strings"

	"event-deletion-be/internal/entity"
)

var (
	ErrConflict       = errors.New("conflict")
	ErrInvalidState   = errors.New("invalid state")
	ErrNotFound       = errors.New("not found")
	ErrExecution      = errors.New("execution failed")
	ErrPartialFailure = errors.New("partial failure")
)

// ConflictError is returned when a non-terminal deletion request already exists
type ConflictError struct {
	EventID           string
	ExistingRequestID string
	ExistingStatus    entity.DeletionStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: event %s already has a %s deletion request (%s)",
		ErrConflict.Error(), e.EventID, e.ExistingStatus, e.ExistingRequestID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InvalidStateError is returned for an illegal transition such as a late cancel
type InvalidStateError struct {
	RequestID string
	Current   entity.DeletionStatus
	Attempted string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("%s: cannot %s request %s in status %s", ErrInvalidState.Error(), e.Attempted, e.RequestID, e.Current)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NotFoundError is returned for an unknown request, event or artifact id
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s %s", e.Kind, e.ID, ErrNotFound.Error())
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ExecutionError wraps a backup or cascade failure after execution started.
// Stats carries whatever was accumulated before the failure.
type ExecutionError struct {
	Stage string
	Stats *entity.DeletionStatistics
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s during %s: %v", ErrExecution.Error(), e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() []error { return []error{ErrExecution, e.Err} }

// CollectionFailure is one per-collection error collected during restore
type CollectionFailure struct {
	Collection string `json:"collection"`
	Error      string `json:"error"`
}

// PartialFailureError reports restore failures while other collections proceeded
type PartialFailureError struct {
	Failures []CollectionFailure
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Collection+": "+f.Error)
	}
	return fmt.Sprintf("%s: %s", ErrPartialFailure.Error(), strings.Join(parts, "; "))
}

func (e *PartialFailureError) Unwrap() error { return ErrPartialFailure }

func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
