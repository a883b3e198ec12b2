package entities

import "time"

// JobStatus represents the current state of a conversion job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusConverting JobStatus = "converting"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Terminal reports whether a job in this status may never transition again.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job tracks one conversion request from submission to terminal outcome.
type Job struct {
	ID                string    `json:"id"`
	Status            JobStatus `json:"status"`
	Progress          int       `json:"progress"`
	SourceFormat      string    `json:"source_format"`
	DestinationFormat string    `json:"destination_format"`
	InputHash         string    `json:"input_hash"`
	InputPath         string    `json:"-"`
	OutputPath        string    `json:"output_path,omitempty"`
	Error             string    `json:"error,omitempty"`
	MethodUsed        string    `json:"method_used,omitempty"`
	OriginalFilename  string    `json:"original_filename,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ContentEntry is one deduplicated stored file, keyed by its SHA-256 digest.
type ContentEntry struct {
	Hash      string    `json:"hash"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	RefCount  int       `json:"ref_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentStats aggregates the content store.
type ContentStats struct {
	EntryCount int   `json:"entry_count"`
	TotalBytes int64 `json:"total_bytes"`
	TotalRefs  int   `json:"total_refs"`
}

// StorageStats is the administrative view over storage and jobs.
type StorageStats struct {
	Content      ContentStats      `json:"content"`
	JobsByStatus map[JobStatus]int `json:"jobs_by_status"`
}

// CleanupResult reports one garbage collection pass.
type CleanupResult struct {
	EntriesRemoved int   `json:"entries_removed"`
	BytesFreed     int64 `json:"bytes_freed"`
}
