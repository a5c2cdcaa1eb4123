package models

// DownloadSettings are the downloader settings that can be read and changed
// at runtime.
type DownloadSettings struct {
	DownloadFolder  string `json:"download_folder"`
	MaxConcurrent   int    `json:"max_concurrent"`
	MaxRetries      int    `json:"max_retries"`
	DownloadTimeout int    `json:"download_timeout"` // seconds
	ChunkSize       int    `json:"chunk_size"`       // KB
}

// SettingsUpdate is the payload for POST /api/v1/settings.
// Omitted fields keep their current value.
type SettingsUpdate struct {
	DownloadFolder  *string `json:"download_folder,omitempty"`
	MaxConcurrent   *int    `json:"max_concurrent,omitempty"`
	MaxRetries      *int    `json:"max_retries,omitempty"`
	DownloadTimeout *int    `json:"download_timeout,omitempty"`
	ChunkSize       *int    `json:"chunk_size,omitempty"`
}

// SettingsResponse is returned by the settings endpoints.
type SettingsResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Settings DownloadSettings `json:"settings"`
}
