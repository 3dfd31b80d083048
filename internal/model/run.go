package model

import "time"

// Run status values. Terminal states are final; a fresh run gets a fresh id.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunError is one recorded per-channel or per-message failure. The run
// keeps going; these only surface through the progress record and the
// final summary.
type RunError struct {
	Channel string    `json:"channel"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// RunProgress is the live, externally observable state of one run.
// Created at run start, mutated throughout, finalized at run end,
// retained as history.
type RunProgress struct {
	RunID                  string     `json:"run_id"`
	TotalChannels          int        `json:"total_channels"`
	ProcessedChannels      int        `json:"processed_channels"`
	CurrentChannel         string     `json:"current_channel"`
	TotalJobsExtracted     int        `json:"total_jobs_extracted"`
	TotalMessagesProcessed int        `json:"total_messages_processed"`
	Status                 string     `json:"status"`
	StartedAt              time.Time  `json:"started_at"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	Errors                 []RunError `json:"errors"`
}

// RunSummary is the coordinator's final accounting for one run.
type RunSummary struct {
	RunID             string
	ChannelsProcessed int
	TotalChannels     int
	JobsExtracted     int
	MessagesProcessed int
	Errors            []RunError
	Duration          time.Duration
}
