package entity

import (
	"time"

	"github.com/google/uuid"
)

// Event is the read-only view of the root entity the deletion core needs
type Event struct {
	ID        uuid.UUID
	Name      string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}

// IsLiveAt reports whether the event's date window overlaps now
func (e *Event) IsLiveAt(now time.Time) bool {
	if e.StartDate == nil {
		return false
	}
	if now.Before(*e.StartDate) {
		return false
	}
	if e.EndDate == nil {
		return true
	}
	return !now.After(*e.EndDate)
}
