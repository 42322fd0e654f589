package imgapi

import (
	"strings"
	"time"
)

// TaskStatus is the normalized lifecycle state of a server task.
type TaskStatus string

const (
	StatusQueued     TaskStatus = "queued"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// NormalizeStatus maps the server's raw status vocabulary onto TaskStatus.
// The server reports "pending" for queued work and "skipped" for work that
// finished without doing anything.
func NormalizeStatus(raw string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "queued", "":
		return StatusQueued
	case "processing", "running":
		return StatusProcessing
	case "completed", "skipped", "done":
		return StatusCompleted
	case "failed", "error":
		return StatusFailed
	default:
		return StatusProcessing
	}
}

// Terminal reports whether no further transitions will occur.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether the task is queued or running.
func (s TaskStatus) Active() bool {
	return s == StatusQueued || s == StatusProcessing
}

// Task mirrors /api/v1/directories/task/{id}. Entries returned by the task
// list omit Result, Error and UpdatedAt.
type Task struct {
	ID         string         `json:"task_id"`
	Status     string         `json:"status"`
	Progress   float64        `json:"progress"`
	Message    string         `json:"message"`
	Result     map[string]any `json:"result"`
	Error      string         `json:"error"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	TotalFiles int            `json:"total_files"`
}

// State returns the normalized status.
func (t Task) State() TaskStatus {
	return NormalizeStatus(t.Status)
}

// Percent returns progress clamped to [0,100].
func (t Task) Percent() float64 {
	switch {
	case t.Progress < 0:
		return 0
	case t.Progress > 100:
		return 100
	default:
		return t.Progress
	}
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (t Task) ParsedCreatedAt() time.Time {
	return parseTime(t.CreatedAt)
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp, falling back to
// CreatedAt.
func (t Task) ParsedUpdatedAt() time.Time {
	if ts := parseTime(t.UpdatedAt); !ts.IsZero() {
		return ts
	}
	return t.ParsedCreatedAt()
}

// TaskList mirrors /api/v1/directories/tasks.
type TaskList struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
}

// ImageInfo describes a processed image. Score and Distance are only set by
// similarity searches.
type ImageInfo struct {
	ID          string   `json:"id"`
	Path        string   `json:"path"`
	Filename    string   `json:"filename"`
	Size        []int    `json:"size"`
	FileSize    int64    `json:"file_size"`
	Format      string   `json:"format"`
	Caption     string   `json:"caption"`
	Objects     []string `json:"objects"`
	ProcessedAt string   `json:"processed_at"`
	Score       *float64 `json:"score"`
	Distance    *float64 `json:"distance"`
}

// Dimensions returns width and height when the server reported them.
func (i ImageInfo) Dimensions() (int, int) {
	if len(i.Size) != 2 {
		return 0, 0
	}
	return i.Size[0], i.Size[1]
}

// ImageQuery parameterizes the list/search/filter endpoint.
type ImageQuery struct {
	Query   string
	Objects []string
	Limit   int
	Offset  int
}

// Kind returns the budget class for the query: searches use the search
// budget, object filters without a query use the processing budget and plain
// listings use the default budget.
func (q ImageQuery) Kind() Kind {
	switch {
	case strings.TrimSpace(q.Query) != "":
		return KindSearch
	case len(q.Objects) > 0:
		return KindProcessing
	default:
		return KindDefault
	}
}

// Blob is raw image content.
type Blob struct {
	Data        []byte
	ContentType string
}

// ProcessDirectoryRequest mirrors the process-async request body.
type ProcessDirectoryRequest struct {
	DirectoryPath  string `json:"directory_path"`
	ForceReprocess bool   `json:"force_reprocess"`
	Recursive      bool   `json:"recursive"`
}

// TaskTicket is returned when the server accepts background work.
type TaskTicket struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ScanResult mirrors /api/v1/directories/scan.
type ScanResult struct {
	DirectoryPath    string   `json:"directory_path"`
	Recursive        bool     `json:"recursive"`
	TotalFiles       int      `json:"total_files"`
	AlreadyProcessed int      `json:"already_processed"`
	NewFiles         int      `json:"new_files"`
	NewFilePaths     []string `json:"new_file_paths"`
	SupportedFormats []string `json:"supported_formats"`
}

// UploadOptions control /api/v1/images/upload.
type UploadOptions struct {
	ProcessImmediately bool
	Overwrite          bool
}

// UploadResult mirrors the upload response.
type UploadResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	ImageID  string `json:"image_id"`
	Message  string `json:"message"`
}

// PreloadResult mirrors /api/v1/models/preload.
type PreloadResult struct {
	Success   bool               `json:"success"`
	Timings   map[string]float64 `json:"timings"`
	Device    string             `json:"device"`
	Error     string             `json:"error"`
	Timestamp string             `json:"timestamp"`
}

// Health mirrors /api/v1/health.
type Health struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	ModelsLoaded      bool    `json:"models_loaded"`
	Uptime            float64 `json:"uptime"`
}

// Healthy reports whether the server considers itself healthy.
func (h Health) Healthy() bool {
	return strings.EqualFold(strings.TrimSpace(h.Status), "healthy")
}

// UptimeDuration converts Uptime seconds to a duration.
func (h Health) UptimeDuration() time.Duration {
	return time.Duration(h.Uptime * float64(time.Second))
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	// Python's naive isoformat() carries no offset.
	for _, layout := range []string{"2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
