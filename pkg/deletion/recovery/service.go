// Package recovery lists, inspects and replays backup artifacts.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"event-deletion-be/internal/apperror"
	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/pkg/logger"
	"event-deletion-be/pkg/deletion/backup"
	"event-deletion-be/pkg/deletion/registry"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const summariesKey = "summaries"

// Summary is one line of the artifact listing
type Summary struct {
	ID           string           `json:"id"`
	EventID      uuid.UUID        `json:"event_id"`
	EventName    string           `json:"event_name"`
	CreatedAt    time.Time        `json:"created_at"`
	SizeBytes    int64            `json:"size_bytes"`
	Counts       map[string]int64 `json:"counts"`
	TotalRecords int64            `json:"total_records"`
	Error        string           `json:"error,omitempty"` // set when the artifact could not be decoded
}

type Details struct {
	Summary
	Version     int                               `json:"version"`
	Collections []string                          `json:"collections"`
	Root        map[string]interface{}            `json:"root"`
	Samples     map[string]map[string]interface{} `json:"samples"`
}

type RestoreOptions struct {
	DryRun       bool
	Collections  []string // empty means every collection in the artifact
	NewEventID   *uuid.UUID
	SkipExisting bool
	Actor        entity.Actor
}

type RestoreResult struct {
	ArtifactID           string                       `json:"artifact_id"`
	EventID              uuid.UUID                    `json:"event_id"`
	DryRun               bool                         `json:"dry_run"`
	CollectionsProcessed int                          `json:"collections_processed"`
	RecordsRestored      int64                        `json:"records_restored"`
	RecordsSkipped       int64                        `json:"records_skipped"`
	PerCollection        map[string]int64             `json:"per_collection"`
	Errors               []apperror.CollectionFailure `json:"errors,omitempty"`
}

// AuditHook receives every restore that mutated storage
type AuditHook interface {
	LogRestored(ctx context.Context, artifact *entity.BackupArtifact, result *RestoreResult, actor entity.Actor) error
}

type Service struct {
	db       *gorm.DB
	storage  backup.Storage
	registry *registry.Registry
	cache    *cache.Cache
	logger   logger.ILogger
	audit    AuditHook
}

func NewService(db *gorm.DB, storage backup.Storage, reg *registry.Registry, log logger.ILogger) *Service {
	if reg == nil {
		reg = registry.Default()
	}
	return &Service{
		db:       db,
		storage:  storage,
		registry: reg,
		cache:    cache.New(time.Minute, 5*time.Minute),
		logger:   log,
	}
}

// WithAudit attaches an audit hook and returns the service
func (s *Service) WithAudit(hook AuditHook) *Service {
	s.audit = hook
	return s
}

// ArtifactWritten drops the cached listing; attach it with backup.Writer.OnWrite
func (s *Service) ArtifactWritten(*entity.BackupArtifact) {
	s.cache.Delete(summariesKey)
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	if cached, found := s.cache.Get(summariesKey); found {
		return cached.([]Summary), nil
	}

	objects, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(objects))
	for _, obj := range objects {
		id, ok := backup.ArtifactID(obj.Name)
		if !ok {
			continue
		}
		artifact, err := backup.Load(ctx, s.storage, id)
		if err != nil {
			summaries = append(summaries, Summary{ID: id, SizeBytes: obj.Size, CreatedAt: obj.ModTime, Error: err.Error()})
			continue
		}
		summaries = append(summaries, summarize(artifact))
	}

	s.cache.Set(summariesKey, summaries, cache.DefaultExpiration)
	return summaries, nil
}

func (s *Service) Details(ctx context.Context, id string) (*Details, error) {
	artifact, err := backup.Load(ctx, s.storage, id)
	if err != nil {
		return nil, err
	}

	samples := make(map[string]map[string]interface{}, len(artifact.Data))
	for collection, records := range artifact.Data {
		if len(records) > 0 {
			samples[collection] = records[0]
		}
	}

	return &Details{
		Summary:     summarize(artifact),
		Version:     artifact.Version,
		Collections: artifact.Collections,
		Root:        artifact.Root,
		Samples:     samples,
	}, nil
}

// Restore replays an artifact into storage, best effort per collection.
// The returned error is a PartialFailureError when some collections failed;
// the result is still filled in that case.
func (s *Service) Restore(ctx context.Context, id string, opts RestoreOptions) (*RestoreResult, error) {
	artifact, err := backup.Load(ctx, s.storage, id)
	if err != nil {
		return nil, err
	}

	selected, err := s.selectCollections(artifact, opts.Collections)
	if err != nil {
		return nil, err
	}

	originalID := artifact.EventID.String()
	targetID := artifact.EventID
	if opts.NewEventID != nil {
		targetID = *opts.NewEventID
	}

	result := &RestoreResult{
		ArtifactID:    artifact.ID,
		EventID:       targetID,
		DryRun:        opts.DryRun,
		PerCollection: make(map[string]int64),
	}

	root := copyRecord(artifact.Root)
	if opts.NewEventID != nil {
		root[registry.RootKey] = targetID.String()
	}
	s.restoreCollection(ctx, result, registry.RootCollection, func(tx *gorm.DB) (int64, int64, error) {
		return s.upsertRecords(tx, registry.RootCollection, []map[string]interface{}{root}, opts)
	})

	for _, entry := range selected {
		records := artifact.Data[entry.Collection]

		if entry.IsPointer() {
			s.restoreCollection(ctx, result, entry.Collection, func(tx *gorm.DB) (int64, int64, error) {
				return s.restorePointers(tx, entry, records, originalID, targetID, opts)
			})
			continue
		}

		rewritten := make([]map[string]interface{}, 0, len(records))
		for _, rec := range records {
			rec = copyRecord(rec)
			if opts.NewEventID != nil && fmt.Sprint(rec[entry.ForeignKey]) == originalID {
				rec[entry.ForeignKey] = targetID.String()
			}
			rewritten = append(rewritten, rec)
		}
		s.restoreCollection(ctx, result, entry.Collection, func(tx *gorm.DB) (int64, int64, error) {
			return s.upsertRecords(tx, entry.Collection, rewritten, opts)
		})
	}

	s.logger.Info("RECOVERY", "Restore finished", map[string]interface{}{
		"artifact_id":      artifact.ID,
		"event_id":         targetID.String(),
		"dry_run":          opts.DryRun,
		"records_restored": result.RecordsRestored,
		"records_skipped":  result.RecordsSkipped,
		"errors":           len(result.Errors),
	})

	if s.audit != nil && !opts.DryRun {
		if err := s.audit.LogRestored(ctx, artifact, result, opts.Actor); err != nil {
			return result, err
		}
	}

	if len(result.Errors) > 0 {
		return result, &apperror.PartialFailureError{Failures: result.Errors}
	}
	return result, nil
}

// Delete permanently removes an artifact
func (s *Service) Delete(ctx context.Context, id string) error {
	name := backup.ArtifactName(id)
	exists, err := s.storage.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFound("backup", id)
	}
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}

	s.cache.Delete(summariesKey)
	s.logger.Warn("RECOVERY", "Backup artifact deleted", map[string]interface{}{"artifact_id": id})
	return nil
}

func (s *Service) selectCollections(artifact *entity.BackupArtifact, requested []string) ([]registry.Entry, error) {
	if len(requested) == 0 {
		entries := make([]registry.Entry, 0, len(artifact.Data))
		for _, entry := range s.registry.Entries() {
			if _, ok := artifact.Data[entry.Collection]; ok {
				entries = append(entries, entry)
			}
		}
		return entries, nil
	}

	wanted := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		if _, ok := artifact.Data[name]; !ok {
			return nil, fmt.Errorf("collection %s is not in artifact %s", name, artifact.ID)
		}
		if _, ok := s.registry.Lookup(name); !ok {
			return nil, fmt.Errorf("collection %s is not registered", name)
		}
		wanted[name] = struct{}{}
	}

	entries := make([]registry.Entry, 0, len(wanted))
	for _, entry := range s.registry.Entries() {
		if _, ok := wanted[entry.Collection]; ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// restoreCollection runs one collection inside its own transaction and records the outcome
func (s *Service) restoreCollection(ctx context.Context, result *RestoreResult, collection string, fn func(tx *gorm.DB) (int64, int64, error)) {
	result.CollectionsProcessed++

	var restored, skipped int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		restored, skipped, err = fn(tx)
		return err
	})
	if err != nil {
		result.Errors = append(result.Errors, apperror.CollectionFailure{Collection: collection, Error: err.Error()})
		s.logger.Error("RECOVERY", "Collection restore failed", map[string]interface{}{
			"collection": collection,
			"error":      err.Error(),
		})
		return
	}

	result.PerCollection[collection] = restored
	result.RecordsRestored += restored
	result.RecordsSkipped += skipped
}

func (s *Service) upsertRecords(tx *gorm.DB, collection string, records []map[string]interface{}, opts RestoreOptions) (int64, int64, error) {
	var restored, skipped int64
	for _, rec := range records {
		id, ok := rec["id"]
		if !ok {
			return restored, skipped, errors.New("record without id")
		}

		if opts.SkipExisting {
			var n int64
			if err := tx.Table(collection).Where("id = ?", id).Count(&n).Error; err != nil {
				return restored, skipped, err
			}
			if n > 0 {
				skipped++
				continue
			}
		}

		if opts.DryRun {
			restored++
			continue
		}

		columns := make([]string, 0, len(rec))
		for col := range rec {
			if col != "id" {
				columns = append(columns, col)
			}
		}
		sort.Strings(columns)

		onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}}
		if len(columns) > 0 {
			onConflict.DoUpdates = clause.AssignmentColumns(columns)
		} else {
			onConflict.DoNothing = true
		}

		if err := tx.Table(collection).Clauses(onConflict).Create(rec).Error; err != nil {
			return restored, skipped, fmt.Errorf("record %v: %w", id, err)
		}
		restored++
	}
	return restored, skipped, nil
}

// restorePointers only fills references that are still empty, never replacing the record
func (s *Service) restorePointers(tx *gorm.DB, entry registry.Entry, records []map[string]interface{}, originalID string, targetID uuid.UUID, opts RestoreOptions) (int64, int64, error) {
	var restored, skipped int64
	for _, rec := range records {
		if fmt.Sprint(rec[entry.ForeignKey]) != originalID {
			skipped++
			continue
		}
		id := rec["id"]

		if opts.DryRun {
			var n int64
			if err := tx.Table(entry.Collection).Where("id = ? AND "+entry.ForeignKey+" IS NULL", id).Count(&n).Error; err != nil {
				return restored, skipped, err
			}
			restored += n
			skipped += 1 - n
			continue
		}

		res := tx.Table(entry.Collection).
			Where("id = ? AND "+entry.ForeignKey+" IS NULL", id).
			Update(entry.ForeignKey, targetID.String())
		if res.Error != nil {
			return restored, skipped, fmt.Errorf("record %v: %w", id, res.Error)
		}
		restored += res.RowsAffected
		skipped += 1 - res.RowsAffected
	}
	return restored, skipped, nil
}

func summarize(a *entity.BackupArtifact) Summary {
	return Summary{
		ID:           a.ID,
		EventID:      a.EventID,
		EventName:    a.EventName,
		CreatedAt:    a.CreatedAt,
		SizeBytes:    a.SizeBytes,
		Counts:       a.Counts(),
		TotalRecords: a.TotalRecords,
	}
}

func copyRecord(rec map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
