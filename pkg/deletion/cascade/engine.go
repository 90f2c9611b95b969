// Package cascade removes an event and every record the registry says references it.
package cascade

import (
	"context"
	"fmt"

	"event-deletion-be/internal/entity"
	"event-deletion-be/pkg/deletion/registry"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"gorm.io/gorm"
)

type Options struct {
	// DryRun counts matching records without touching them
	DryRun bool
	// SkipBackup is carried for the caller; the engine never takes backups itself
	SkipBackup bool
}

type Engine struct {
	db       *gorm.DB
	registry *registry.Registry
	clock    clock.Clock
}

func NewEngine(db *gorm.DB, reg *registry.Registry, clk clock.Clock) *Engine {
	if reg == nil {
		reg = registry.Default()
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Engine{db: db, registry: reg, clock: clk}
}

// Count returns the number of dependent records per collection
func (e *Engine) Count(ctx context.Context, eventID uuid.UUID) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, entry := range e.registry.Entries() {
		n, err := e.count(ctx, entry.Collection, entry.ForeignKey, eventID)
		if err != nil {
			return counts, err
		}
		counts[entry.Collection] = n
	}
	return counts, nil
}

// Delete walks the registry in order, then removes the root document.
// On the first failure it stops and returns the statistics gathered so far
// together with the error.
func (e *Engine) Delete(ctx context.Context, eventID uuid.UUID, opts Options) (*entity.DeletionStatistics, error) {
	stats := entity.NewDeletionStatistics(e.clock.Now().UTC())
	stats.DryRun = opts.DryRun

	fail := func(err error) (*entity.DeletionStatistics, error) {
		stats.AddError(err.Error())
		stats.Finish(e.clock.Now().UTC())
		return stats, err
	}

	for _, entry := range e.registry.Entries() {
		n, err := e.count(ctx, entry.Collection, entry.ForeignKey, eventID)
		if err != nil {
			return fail(err)
		}

		if !opts.DryRun && n > 0 {
			if entry.IsPointer() {
				n, err = e.clearPointer(ctx, entry, eventID)
			} else {
				n, err = e.deleteMatching(ctx, entry, eventID)
			}
			if err != nil {
				return fail(err)
			}
		}

		stats.Record(entry.Collection, n)
	}

	if opts.DryRun {
		n, err := e.count(ctx, registry.RootCollection, registry.RootKey, eventID)
		if err != nil {
			return fail(err)
		}
		stats.RootDeleted = n > 0
		stats.Finish(e.clock.Now().UTC())
		return stats, nil
	}

	result := e.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", registry.RootCollection, registry.RootKey), eventID)
	if result.Error != nil {
		return fail(fmt.Errorf("delete root %s: %w", registry.RootCollection, result.Error))
	}
	stats.RootDeleted = result.RowsAffected > 0

	stats.Finish(e.clock.Now().UTC())
	return stats, nil
}

func (e *Engine) count(ctx context.Context, collection, column string, eventID uuid.UUID) (int64, error) {
	var n int64
	if err := e.db.WithContext(ctx).Table(collection).Where(column+" = ?", eventID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func (e *Engine) deleteMatching(ctx context.Context, entry registry.Entry, eventID uuid.UUID) (int64, error) {
	result := e.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", entry.Collection, entry.ForeignKey), eventID)
	if result.Error != nil {
		return 0, fmt.Errorf("delete %s: %w", entry.Collection, result.Error)
	}
	return result.RowsAffected, nil
}

func (e *Engine) clearPointer(ctx context.Context, entry registry.Entry, eventID uuid.UUID) (int64, error) {
	result := e.db.WithContext(ctx).Table(entry.Collection).
		Where(entry.ForeignKey+" = ?", eventID).
		Update(entry.ForeignKey, nil)
	if result.Error != nil {
		return 0, fmt.Errorf("clear %s.%s: %w", entry.Collection, entry.ForeignKey, result.Error)
	}
	return result.RowsAffected, nil
}
