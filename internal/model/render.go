package model

import "time"

// GenerateRequest is the job submission payload. Zero-valued fields
// fall back to the configured render defaults.
type GenerateRequest struct {
	Title         string    `json:"title" validate:"omitempty,max=120"`
	Episode       int       `json:"episode" validate:"omitempty,min=1"`
	TotalEpisodes int       `json:"totalEpisodes" validate:"omitempty,min=1"`
	Messages      []Message `json:"messages" validate:"omitempty,dive"`
	DurationSec   float64   `json:"durationSec" validate:"omitempty,gt=0"`
	FPS           int       `json:"fps" validate:"omitempty,gt=0"`
	Width         int       `json:"width" validate:"omitempty,gt=0"`
	Height        int       `json:"height" validate:"omitempty,gt=0"`
	BackgroundURL string    `json:"backgroundUrl,omitempty"`
	Theme         Theme     `json:"theme" validate:"omitempty,oneof=dark light midnight"`
	MessageDelay  float64   `json:"messageDelay" validate:"omitempty,gt=0"`
	Decimation    int       `json:"frameDecimation" validate:"omitempty,gt=0"`
}

// GenerateResponse acknowledges an accepted job.
type GenerateResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusResponse is returned to polling clients.
type StatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	VideoURL    string     `json:"videoUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// VideoInfo describes one finished output file.
type VideoInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
	URL        string    `json:"url"`
}
