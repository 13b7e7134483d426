package storage

import "time"

// Run represents one stored database-generation run.
type Run struct {
	ID           string    `json:"id" db:"id"`
	BuildCommand string    `json:"build_command" db:"build_command"`
	OutputPath   string    `json:"output_path" db:"output_path"`
	ExitCode     int       `json:"exit_code" db:"exit_code"`
	TraceFiles   int       `json:"trace_files" db:"trace_files"`
	Records      int       `json:"records" db:"records"`
	Entries      int       `json:"entries" db:"entries"`
	Appended     bool      `json:"appended" db:"appended"`
	DurationMS   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RunFilter provides criteria for querying runs.
type RunFilter struct {
	Since  *time.Time
	Limit  int
	Offset int
}
