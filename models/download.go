package models

// Download task statuses. Retrying tasks report "retrying (n/max)".
const (
	TaskQueued      = "queued"
	TaskStarting    = "starting"
	TaskDownloading = "downloading"
	TaskCompleted   = "completed"
	TaskError       = "error"
)

// DownloadRequest is the payload for POST /api/v1/downloads.
// Exactly one of URL or URLs is expected.
type DownloadRequest struct {
	URL  string   `json:"url,omitempty"`
	URLs []string `json:"urls,omitempty"`
}

// DownloadResponse is the immediate response for POST /api/v1/downloads.
type DownloadResponse struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	TaskIDs []string     `json:"task_ids,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// DownloadTask is a snapshot of one download's progress.
type DownloadTask struct {
	ID              string   `json:"id"`
	URL             string   `json:"url"`
	Status          string   `json:"status"`
	Progress        *float64 `json:"progress"`
	DownloadedBytes int64    `json:"downloaded_bytes"`
	TotalBytes      int64    `json:"total_bytes"`
	Filename        string   `json:"filename,omitempty"`
	Error           string   `json:"error,omitempty"`
	RetryCount      int      `json:"retry_count"`
	CreatedAt       int64    `json:"created_at"`
}

// CleanupResponse is the response for POST /api/v1/downloads/cleanup.
type CleanupResponse struct {
	Success      bool `json:"success"`
	RemovedCount int  `json:"removed_count"`
}
