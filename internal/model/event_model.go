package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is the root document of every cascade
type Event struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Status      string    `gorm:"type:varchar(20);default:'draft'"` // draft, published, archived
	OrganizerID uuid.UUID `gorm:"type:uuid;index"`
	Venue       string    `gorm:"type:varchar(255)"`
	StartDate   *time.Time
	EndDate     *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Event) TableName() string {
	return "events"
}

type Registration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Status    string    `gorm:"type:varchar(20);default:'confirmed';index"` // pending, confirmed, cancelled
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Registration) TableName() string {
	return "registrations"
}

type Payment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EventID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	RegistrationID *uuid.UUID `gorm:"type:uuid"`
	Amount         float64    `gorm:"not null"`
	Currency       string     `gorm:"type:varchar(3);default:'USD'"`
	Status         string     `gorm:"type:varchar(20);default:'pending';index"` // pending, success, failed, refunded
	PaidAt         *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Payment) TableName() string {
	return "payments"
}

type Ticket struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID        uuid.UUID `gorm:"type:uuid;not null;index"`
	RegistrationID uuid.UUID `gorm:"type:uuid;index"`
	Code           string    `gorm:"type:varchar(64);not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Ticket) TableName() string {
	return "tickets"
}

type CheckIn struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;index"`
	TicketID    uuid.UUID `gorm:"type:uuid;index"`
	CheckedInAt time.Time `gorm:"not null"`
}

func (CheckIn) TableName() string {
	return "check_ins"
}

type EventSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"type:varchar(255);not null"`
	StartsAt  *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (EventSession) TableName() string {
	return "event_sessions"
}

// UserEventPreference holds each user's "last active event" pointer.
// A cascade clears the pointer instead of deleting the row.
type UserEventPreference struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	LastActiveEventID *uuid.UUID `gorm:"type:uuid;index"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
}

func (UserEventPreference) TableName() string {
	return "user_event_preferences"
}

// All returns every model owned by this service, in migration order
func All() []interface{} {
	return []interface{}{
		&Event{},
		&Registration{},
		&Payment{},
		&Ticket{},
		&CheckIn{},
		&EventSession{},
		&UserEventPreference{},
		&DeletionRequest{},
		&DeletionAuditLog{},
	}
}
