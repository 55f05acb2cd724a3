package service

import (
	"github.com/google/uuid"

	"github.com/fera765/chatstory/internal/config"
	"github.com/fera765/chatstory/internal/model"
	"github.com/fera765/chatstory/internal/registry"
	"github.com/fera765/chatstory/internal/worker"
)

// RenderService accepts generation requests and exposes job status to
// polling clients. Generation itself runs asynchronously in the worker.
type RenderService struct {
	registry *registry.Registry
	worker   *worker.RenderWorker
	defaults config.RenderConfig
}

func NewRenderService(reg *registry.Registry, w *worker.RenderWorker, defaults config.RenderConfig) *RenderService {
	return &RenderService{
		registry: reg,
		worker:   w,
		defaults: defaults,
	}
}

// StartGeneration registers a job and kicks off the pipeline. The
// request is expected to be validated; defaults are applied here so
// the worker always sees a fully populated request.
func (s *RenderService) StartGeneration(req *model.GenerateRequest) (*model.GenerateResponse, error) {
	s.applyDefaults(req)

	jobID := uuid.New().String()
	job := s.registry.Create(jobID)
	s.worker.Spawn(jobID, req)

	return &model.GenerateResponse{
		JobID:     jobID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// GetStatus returns the polling snapshot for one job. Unknown ids
// surface registry.ErrNotFound.
func (s *RenderService) GetStatus(jobID string) (*model.StatusResponse, error) {
	job, err := s.registry.Get(jobID)
	if err != nil {
		return nil, err
	}

	resp := &model.StatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Message:     job.Message,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == model.JobStatusDone && job.OutputFile != "" {
		resp.VideoURL = "/api/videos/" + job.OutputFile
	}
	return resp, nil
}

func (s *RenderService) applyDefaults(req *model.GenerateRequest) {
	if req.DurationSec <= 0 {
		req.DurationSec = s.defaults.DurationSec
	}
	if req.FPS <= 0 {
		req.FPS = s.defaults.FPS
	}
	if req.Width <= 0 {
		req.Width = s.defaults.Width
	}
	if req.Height <= 0 {
		req.Height = s.defaults.Height
	}
	// yuv420p needs even dimensions.
	if req.Width%2 != 0 {
		req.Width++
	}
	if req.Height%2 != 0 {
		req.Height++
	}
	if req.Decimation <= 0 {
		req.Decimation = s.defaults.Decimation
	}
	if req.Theme == "" {
		req.Theme = model.Theme(s.defaults.Theme)
	}
	if req.TotalEpisodes < req.Episode {
		req.TotalEpisodes = req.Episode
	}
}
