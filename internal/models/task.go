package models

import "time"

type TaskStatus string

const (
	StatusPending     TaskStatus = "pending"
	StatusSuccess     TaskStatus = "success"
	StatusFailedFinal TaskStatus = "failed_final"
)

// Task tracks one worklist URL through the retry state machine.
type Task struct {
	URL      string
	Attempts int
	Status   TaskStatus
}

func NewTask(url string) *Task {
	return &Task{
		URL:    url,
		Status: StatusPending,
	}
}

// RunStats is a point-in-time snapshot of pipeline progress.
type RunStats struct {
	Total     int  `json:"total"`
	Pending   int  `json:"pending"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Attempts  int  `json:"attempts"`
	Degraded  bool `json:"degraded"`
}

// RunSummary is produced once at teardown.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Degraded  bool          `json:"degraded"`
	Duration  time.Duration `json:"duration"`
}
