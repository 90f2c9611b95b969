package service

import (
	"context"
	"errors"
	"time"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/model"
	"event-deletion-be/internal/repository/scope"
	"event-deletion-be/pkg/deletion/security"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DependentCounter is satisfied by *cascade.Engine
type DependentCounter interface {
	Count(ctx context.Context, eventID uuid.UUID) (map[string]int64, error)
}

// IEventProvider is the read-only view of the event domain
type IEventProvider interface {
	security.Source
	Snapshot(ctx context.Context, eventID uuid.UUID) (*entity.EventSnapshot, error)
}

type eventProvider struct {
	db      *gorm.DB
	counter DependentCounter
}

func NewEventProvider(db *gorm.DB, counter DependentCounter) IEventProvider {
	return &eventProvider{db: db, counter: counter}
}

// FindEvent returns (nil, nil) when the event does not exist
func (p *eventProvider) FindEvent(ctx context.Context, eventID uuid.UUID) (*entity.Event, error) {
	var m model.Event
	if err := p.db.WithContext(ctx).Where("id = ?", eventID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity.Event{
		ID:        m.ID,
		Name:      m.Name,
		Status:    m.Status,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
	}, nil
}

func (p *eventProvider) CountActiveRegistrations(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&model.Registration{}).
		Scopes(scope.ActiveRegistrations).
		Where("event_id = ?", eventID).
		Count(&n).Error
	return n, err
}

func (p *eventProvider) CountRecentPayments(ctx context.Context, eventID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&model.Payment{}).
		Scopes(scope.SuccessfulPaymentsSince(since)).
		Where("event_id = ?", eventID).
		Count(&n).Error
	return n, err
}

// Snapshot returns (nil, nil) when the event does not exist
func (p *eventProvider) Snapshot(ctx context.Context, eventID uuid.UUID) (*entity.EventSnapshot, error) {
	event, err := p.FindEvent(ctx, eventID)
	if err != nil || event == nil {
		return nil, err
	}

	counts, err := p.counter.Count(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	return &entity.EventSnapshot{
		Name:           event.Name,
		Status:         event.Status,
		StartDate:      event.StartDate,
		EndDate:        event.EndDate,
		DependentCount: total,
	}, nil
}
