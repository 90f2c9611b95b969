// Package backup snapshots an event and its dependents before they are destroyed.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-deletion-be/internal/apperror"
	"event-deletion-be/internal/entity"
	"event-deletion-be/pkg/deletion/registry"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"gorm.io/gorm"
)

const (
	artifactPrefix = "backup-"
	artifactExt    = ".json"
)

// ArtifactName maps an artifact id to its blob name
func ArtifactName(id string) string {
	return id + artifactExt
}

// ArtifactID maps a blob name back to an artifact id. ok is false for foreign blobs.
func ArtifactID(name string) (string, bool) {
	if !strings.HasPrefix(name, artifactPrefix) || !strings.HasSuffix(name, artifactExt) {
		return "", false
	}
	return strings.TrimSuffix(name, artifactExt), true
}

type Writer struct {
	db       *gorm.DB
	storage  Storage
	registry *registry.Registry
	clock    clock.Clock
	onWrite  []func(*entity.BackupArtifact)
}

func NewWriter(db *gorm.DB, storage Storage, reg *registry.Registry, clk clock.Clock) *Writer {
	if reg == nil {
		reg = registry.Default()
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Writer{db: db, storage: storage, registry: reg, clock: clk}
}

// OnWrite registers fn to run after each artifact is stored and returns the writer
func (w *Writer) OnWrite(fn func(*entity.BackupArtifact)) *Writer {
	w.onWrite = append(w.onWrite, fn)
	return w
}

// Write reads the root and every registry collection, then stores the artifact.
// It returns only once storage has made the artifact durable.
func (w *Writer) Write(ctx context.Context, eventID uuid.UUID) (*entity.BackupArtifact, error) {
	roots, err := w.readRecords(ctx, registry.RootCollection, registry.RootKey, eventID)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, apperror.NewNotFound("event", eventID.String())
	}
	root := roots[0]

	createdAt := w.clock.Now().UTC()
	artifact := &entity.BackupArtifact{
		ID:          fmt.Sprintf("%s%s-%d", artifactPrefix, eventID, createdAt.UnixNano()),
		Version:     w.registry.Version(),
		EventID:     eventID,
		CreatedAt:   createdAt,
		Collections: w.registry.Collections(),
		Root:        root,
		Data:        make(map[string][]map[string]interface{}),
	}
	if name, ok := root["name"].(string); ok {
		artifact.EventName = name
	}

	for _, entry := range w.registry.Entries() {
		records, err := w.readRecords(ctx, entry.Collection, entry.ForeignKey, eventID)
		if err != nil {
			return nil, err
		}
		artifact.Data[entry.Collection] = records
		artifact.TotalRecords += int64(len(records))
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := w.storage.Put(ctx, ArtifactName(artifact.ID), data); err != nil {
		return nil, fmt.Errorf("failed to store artifact %s: %w", artifact.ID, err)
	}

	artifact.SizeBytes = int64(len(data))
	for _, fn := range w.onWrite {
		fn(artifact)
	}
	return artifact, nil
}

// Load reads and decodes one artifact by id
func Load(ctx context.Context, storage Storage, id string) (*entity.BackupArtifact, error) {
	data, err := storage.Get(ctx, ArtifactName(id))
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses an artifact. Numbers stay json.Number so ids and amounts are not rounded.
func Decode(data []byte) (*entity.BackupArtifact, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var artifact entity.BackupArtifact
	if err := decoder.Decode(&artifact); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if artifact.ID == "" || artifact.Root == nil {
		return nil, errors.New("artifact is missing its header or root document")
	}
	if artifact.Data == nil {
		artifact.Data = make(map[string][]map[string]interface{})
	}
	artifact.SizeBytes = int64(len(data))
	return &artifact, nil
}

// readRecords scans rows generically so column types never have to be known up front
func (w *Writer) readRecords(ctx context.Context, collection, column string, eventID uuid.UUID) ([]map[string]interface{}, error) {
	rows, err := w.db.WithContext(ctx).Table(collection).Where(column+" = ?", eventID).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s columns: %w", collection, err)
	}

	records := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}

		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			record[col] = values[i]
		}
		records = append(records, normalizeRecord(record))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return records, nil
}

// normalizeRecord turns driver-specific values into JSON friendly ones
func normalizeRecord(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		switch val := v.(type) {
		case []byte:
			out[k] = string(val)
		case [16]byte:
			out[k] = uuid.UUID(val).String()
		case time.Time:
			out[k] = val.UTC()
		default:
			out[k] = val
		}
	}
	return out
}
