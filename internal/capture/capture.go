package capture

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/fera765/chatstory/internal/renderer"
	"github.com/fera765/chatstory/internal/timeline"
)

// framePattern keeps lexical and numeric frame ordering identical; the
// encoder consumes frames by this filename pattern.
const framePattern = "frame_%05d.png"

// Surface is an exclusively-held rendering handle. It carries the
// per-job drawing state, so frames must be produced sequentially by a
// single owner, and it must be closed when the job finishes.
type Surface interface {
	Render(state timeline.RenderState) (*image.RGBA, error)
	Close() error
}

// SurfaceFactory acquires a surface for one job.
type SurfaceFactory func(cfg renderer.Config) (Surface, error)

// AcquireSurface returns the default in-process surface backed by the
// pure frame renderer.
func AcquireSurface(cfg renderer.Config) (Surface, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", cfg.Width, cfg.Height)
	}
	return &rendererSurface{r: renderer.New(cfg)}, nil
}

type rendererSurface struct {
	r *renderer.Renderer
}

func (s *rendererSurface) Render(state timeline.RenderState) (*image.RGBA, error) {
	return s.r.Draw(state), nil
}

func (s *rendererSurface) Close() error { return nil }

// Stage persists one PNG per sample into the job's transient frame
// directory.
type Stage struct {
	surface Surface
	dir     string
}

func NewStage(surface Surface, dir string) *Stage {
	return &Stage{surface: surface, dir: dir}
}

// FramePattern returns the printf-style path pattern the encoder reads
// frames from.
func FramePattern(dir string) string {
	return filepath.Join(dir, framePattern)
}

// Run walks the schedule in order and writes one frame file per sample.
// Frames are produced sequentially: the surface mutates in place and a
// single frame failure aborts the whole job.
func (s *Stage) Run(ctx context.Context, plan *timeline.Plan, onProgress func(done, total int)) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create frame directory: %w", err)
	}

	total := plan.SampleCount()
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		img, err := s.surface.Render(plan.StateAt(i))
		if err != nil {
			return fmt.Errorf("render frame %d: %w", i, err)
		}

		if err := s.writeFrame(i, img); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}
	return nil
}

func (s *Stage) writeFrame(i int, img *image.RGBA) error {
	path := filepath.Join(s.dir, fmt.Sprintf(framePattern, i))
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
