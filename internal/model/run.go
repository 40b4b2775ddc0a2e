package model

import "time"

// Run statuses recorded in the ingest log.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// IngestRun is one row of the ingest_log table: a single dataset's
// fetch-transform-upsert pass.
type IngestRun struct {
	ID           string     `json:"id"`
	Dataset      string     `json:"dataset"`
	Table        string     `json:"table"`
	RowDate      string     `json:"row_date,omitempty"`
	ColumnsAdded int        `json:"columns_added"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
