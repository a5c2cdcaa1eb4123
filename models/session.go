package models

// SessionState is the lifecycle flag shared by the watcher and the scroll loop.
type SessionState string

const (
	StateActive  SessionState = "active"
	StateStopped SessionState = "stopped"
)

// SessionStatus is the response for GET /api/v1/session.
type SessionStatus struct {
	Profile   string       `json:"profile"`
	State     SessionState `json:"state"`
	Scrolling bool         `json:"scrolling"`
	Count     int          `json:"count"`
	File      string       `json:"file"`
	StartedAt int64        `json:"started_at"`
}

// StopResponse is the response for POST /api/v1/session/stop.
type StopResponse struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Path    string       `json:"path,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "stopped"
	Uptime  string `json:"uptime"`
	Count   int    `json:"count"`
	Version string `json:"version"`
}
