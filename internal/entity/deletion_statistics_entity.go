package entity

import "time"

// DeletionStatistics accumulates per-collection counts while a cascade runs.
// It is filled progressively so a mid-run failure still carries what was done.
type DeletionStatistics struct {
	Collections      map[string]int64 `json:"collections"`
	TotalCollections int              `json:"total_collections"`
	TotalRecords     int64            `json:"total_records"`
	RootDeleted      bool             `json:"root_deleted"`
	DryRun           bool             `json:"dry_run"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          *time.Time       `json:"end_time,omitempty"`
	DurationMs       int64            `json:"duration_ms"`
	Errors           []string         `json:"errors,omitempty"`
}

func NewDeletionStatistics(start time.Time) *DeletionStatistics {
	return &DeletionStatistics{
		Collections: make(map[string]int64),
		StartTime:   start,
	}
}

// Record adds the count for one processed collection
func (s *DeletionStatistics) Record(collection string, count int64) {
	if s.Collections == nil {
		s.Collections = make(map[string]int64)
	}
	s.Collections[collection] = count
	s.TotalCollections++
	s.TotalRecords += count
}

func (s *DeletionStatistics) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Finish stamps the end time and duration
func (s *DeletionStatistics) Finish(end time.Time) {
	s.EndTime = &end
	s.DurationMs = end.Sub(s.StartTime).Milliseconds()
}
