package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage carries a live progress update for one job.
type WSProgressMessage struct {
	Type     string    `json:"type"`
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
}

// WSCompleteMessage announces job completion with the output location.
type WSCompleteMessage struct {
	Type     string `json:"type"`
	JobID    string `json:"jobId"`
	VideoURL string `json:"videoUrl"`
}

// WSErrorMessage announces a failed job.
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError carries error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
