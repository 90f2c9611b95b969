// Package security computes the risk flags recorded when a deletion is scheduled.
package security

import (
	"context"
	"fmt"
	"time"

	"event-deletion-be/internal/entity"

	"github.com/google/uuid"
	"github.com/juju/clock"
)

// DefaultRecentPaymentWindow is how far back a payment still counts as recent
const DefaultRecentPaymentWindow = 30 * 24 * time.Hour

// Source is the read-only view of the event domain the checker needs
type Source interface {
	FindEvent(ctx context.Context, eventID uuid.UUID) (*entity.Event, error)
	CountActiveRegistrations(ctx context.Context, eventID uuid.UUID) (int64, error)
	CountRecentPayments(ctx context.Context, eventID uuid.UUID, since time.Time) (int64, error)
}

type Checker struct {
	source              Source
	clock               clock.Clock
	recentPaymentWindow time.Duration
}

func NewChecker(source Source, clk clock.Clock, recentPaymentWindow time.Duration) *Checker {
	if recentPaymentWindow <= 0 {
		recentPaymentWindow = DefaultRecentPaymentWindow
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Checker{
		source:              source,
		clock:               clk,
		recentPaymentWindow: recentPaymentWindow,
	}
}

// Check never returns an error. A failed read marks its flag as risky and is
// listed in CheckErrors, so an unknown state always requires approval.
func (c *Checker) Check(ctx context.Context, eventID uuid.UUID) entity.SecurityCheckResult {
	now := c.clock.Now().UTC()
	result := entity.SecurityCheckResult{CheckedAt: now}

	registrations, err := c.source.CountActiveRegistrations(ctx, eventID)
	if err != nil {
		result.HasActiveRegistrations = true
		result.CheckErrors = append(result.CheckErrors, fmt.Sprintf("active registrations: %v", err))
	} else {
		result.ActiveRegistrationCount = registrations
		result.HasActiveRegistrations = registrations > 0
	}

	payments, err := c.source.CountRecentPayments(ctx, eventID, now.Add(-c.recentPaymentWindow))
	if err != nil {
		result.HasRecentPayments = true
		result.CheckErrors = append(result.CheckErrors, fmt.Sprintf("recent payments: %v", err))
	} else {
		result.RecentPaymentCount = payments
		result.HasRecentPayments = payments > 0
	}

	event, err := c.source.FindEvent(ctx, eventID)
	switch {
	case err != nil:
		result.IsEventLive = true
		result.CheckErrors = append(result.CheckErrors, fmt.Sprintf("event window: %v", err))
	case event == nil:
		result.IsEventLive = true
		result.CheckErrors = append(result.CheckErrors, "event window: event not found")
	default:
		result.IsEventLive = event.IsLiveAt(now)
	}

	result.RequiresApproval = result.HasActiveRegistrations || result.HasRecentPayments || result.IsEventLive
	return result
}
