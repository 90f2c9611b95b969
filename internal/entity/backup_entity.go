package entity

import (
	"time"

	"github.com/google/uuid"
)

// BackupArtifact is the self-describing snapshot of an event and its dependents.
// It is never modified after it is written. SizeBytes is filled from storage on read.
type BackupArtifact struct {
	ID           string                              `json:"id"`
	Version      int                                 `json:"version"`
	EventID      uuid.UUID                           `json:"event_id"`
	EventName    string                              `json:"event_name"`
	CreatedAt    time.Time                           `json:"created_at"`
	Collections  []string                            `json:"collections"`
	Root         map[string]interface{}              `json:"root"`
	Data         map[string][]map[string]interface{} `json:"data"`
	TotalRecords int64                               `json:"total_records"`
	SizeBytes    int64                               `json:"size_bytes,omitempty"`
}

// Counts returns the number of backed-up records per dependent collection
func (a *BackupArtifact) Counts() map[string]int64 {
	counts := make(map[string]int64, len(a.Data))
	for collection, records := range a.Data {
		counts[collection] = int64(len(records))
	}
	return counts
}
