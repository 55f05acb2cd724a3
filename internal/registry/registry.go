package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/fera765/chatstory/internal/model"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// Registry is the process-wide job map. Each job is mutated only by its
// own supervisor, so a single mutex over the map is enough; readers get
// copies and never observe partial updates.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*model.RenderJob
}

func New() *Registry {
	return &Registry{jobs: make(map[string]*model.RenderJob)}
}

// Create registers a new job in the queued state.
func (r *Registry) Create(id string) model.RenderJob {
	job := &model.RenderJob{
		ID:        id,
		Status:    model.JobStatusQueued,
		Progress:  0,
		Message:   "Job accepted",
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.jobs[id] = job
	r.mu.Unlock()

	return *job
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (model.RenderJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return model.RenderJob{}, ErrNotFound
	}
	return *job, nil
}

// SetStatus advances the job along the one-directional status graph.
// Illegal transitions (including any write after a terminal state) are
// ignored rather than reported: a late stage callback must not be able
// to resurrect a finished job.
func (r *Registry) SetStatus(id string, status model.JobStatus, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || !job.Status.CanTransitionTo(status) {
		return
	}

	if job.Status == model.JobStatusQueued {
		now := time.Now()
		job.StartedAt = &now
	}
	job.Status = status
	if message != "" {
		job.Message = message
	}
}

// SetProgress updates progress and the human-readable status message.
// Progress is clamped to [0,100] and never decreases while the job is
// live; terminal jobs are left untouched.
func (r *Registry) SetProgress(id string, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}

	if progress > 100 {
		progress = 100
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	if message != "" {
		job.Message = message
	}
}

// Complete moves the job to done and records the output reference.
func (r *Registry) Complete(id, outputFile string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || !job.Status.CanTransitionTo(model.JobStatusDone) {
		return
	}

	now := time.Now()
	job.Status = model.JobStatusDone
	job.Progress = 100
	job.Message = "Video ready"
	job.OutputFile = outputFile
	job.CompletedAt = &now
}

// Fail moves the job to the error state with a diagnostic message.
func (r *Registry) Fail(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || !job.Status.CanTransitionTo(model.JobStatusError) {
		return
	}

	now := time.Now()
	job.Status = model.JobStatusError
	job.Message = message
	job.CompletedAt = &now
}
