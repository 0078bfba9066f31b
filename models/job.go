package models

import (
	"time"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final. Done and Failed are
// mutually exclusive and never left once entered.
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Job is one submitted conversion and its lifecycle record. The jobs
// manager owns every Job; everyone else sees value copies.
type Job struct {
	ID          string
	Status      JobStatus
	OutputPath  string
	ThumbPath   string
	Error       string
	Note        string
	Width       int
	Height      int
	ResultBytes int64
	CreatedAt   time.Time
	CompletedAt *time.Time
}
