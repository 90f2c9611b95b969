// Package testutil seeds an in-memory sqlite database with events and their dependents.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"event-deletion-be/internal/model"
	"event-deletion-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory database private to the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.NewSQLiteDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type SeedOptions struct {
	Name          string
	StartDate     *time.Time
	EndDate       *time.Time
	Registrations int
	Payments      int
	PaidAt        time.Time
	Tickets       int
	CheckIns      int
	Sessions      int
	Preferences   int // users whose last active event is this one
}

// DefaultSeed is a small event with a few rows in every dependent collection
func DefaultSeed(name string) SeedOptions {
	return SeedOptions{
		Name:          name,
		Registrations: 3,
		Payments:      2,
		PaidAt:        time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		Tickets:       3,
		CheckIns:      2,
		Sessions:      2,
		Preferences:   2,
	}
}

type SeededEvent struct {
	ID     uuid.UUID
	Counts map[string]int64
	Total  int64
}

func SeedEvent(t *testing.T, db *gorm.DB, opts SeedOptions) SeededEvent {
	t.Helper()

	eventID := uuid.New()
	require.NoError(t, db.Create(&model.Event{
		ID:          eventID,
		Name:        opts.Name,
		Status:      "published",
		OrganizerID: uuid.New(),
		Venue:       "Hall A",
		StartDate:   opts.StartDate,
		EndDate:     opts.EndDate,
	}).Error)

	registrationIDs := make([]uuid.UUID, 0, opts.Registrations)
	for i := 0; i < opts.Registrations; i++ {
		id := uuid.New()
		registrationIDs = append(registrationIDs, id)
		require.NoError(t, db.Create(&model.Registration{ID: id, EventID: eventID, UserID: uuid.New(), Status: "confirmed"}).Error)
	}

	for i := 0; i < opts.Payments; i++ {
		paidAt := opts.PaidAt
		require.NoError(t, db.Create(&model.Payment{
			ID:       uuid.New(),
			EventID:  eventID,
			Amount:   float64(25 * (i + 1)),
			Currency: "USD",
			Status:   "success",
			PaidAt:   &paidAt,
		}).Error)
	}

	ticketIDs := make([]uuid.UUID, 0, opts.Tickets)
	for i := 0; i < opts.Tickets; i++ {
		id := uuid.New()
		ticketIDs = append(ticketIDs, id)
		ticket := &model.Ticket{ID: id, EventID: eventID, Code: fmt.Sprintf("T-%03d", i)}
		if i < len(registrationIDs) {
			ticket.RegistrationID = registrationIDs[i]
		}
		require.NoError(t, db.Create(ticket).Error)
	}

	for i := 0; i < opts.CheckIns; i++ {
		checkIn := &model.CheckIn{ID: uuid.New(), EventID: eventID, CheckedInAt: time.Date(2025, 2, 1, 10, i, 0, 0, time.UTC)}
		if i < len(ticketIDs) {
			checkIn.TicketID = ticketIDs[i]
		}
		require.NoError(t, db.Create(checkIn).Error)
	}

	for i := 0; i < opts.Sessions; i++ {
		require.NoError(t, db.Create(&model.EventSession{ID: uuid.New(), EventID: eventID, Title: fmt.Sprintf("Session %d", i+1)}).Error)
	}

	for i := 0; i < opts.Preferences; i++ {
		target := eventID
		require.NoError(t, db.Create(&model.UserEventPreference{ID: uuid.New(), UserID: uuid.New(), LastActiveEventID: &target}).Error)
	}

	counts := map[string]int64{
		"registrations":          int64(opts.Registrations),
		"payments":               int64(opts.Payments),
		"tickets":                int64(opts.Tickets),
		"check_ins":              int64(opts.CheckIns),
		"event_sessions":         int64(opts.Sessions),
		"user_event_preferences": int64(opts.Preferences),
	}
	var total int64
	for _, c := range counts {
		total += c
	}

	return SeededEvent{ID: eventID, Counts: counts, Total: total}
}

// CountWhere counts rows in table matching column = value
func CountWhere(t *testing.T, db *gorm.DB, table, column string, value interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Table(table).Where(column+" = ?", value).Count(&n).Error)
	return n
}
