package model

import "time"

// RenderJob tracks one generation request end to end. Jobs live in the
// in-process registry only and do not survive a restart.
type RenderJob struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	OutputFile  string     `json:"outputFile,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
