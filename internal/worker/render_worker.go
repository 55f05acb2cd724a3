package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fera765/chatstory/internal/background"
	"github.com/fera765/chatstory/internal/capture"
	"github.com/fera765/chatstory/internal/config"
	"github.com/fera765/chatstory/internal/encoder"
	"github.com/fera765/chatstory/internal/model"
	"github.com/fera765/chatstory/internal/registry"
	"github.com/fera765/chatstory/internal/renderer"
	"github.com/fera765/chatstory/internal/timeline"
	ws "github.com/fera765/chatstory/internal/websocket"
)

// Progress bands per stage: frame capture fills 0-80, encoding 85-95,
// completion sets 100.
const (
	captureProgressEnd  = 80
	encodeProgressStart = 85
	encodeProgressSpan  = 10
)

// RenderWorker executes the generation pipeline for one job: timeline
// planning, frame capture and background resolution in parallel, then
// encoding. It owns all registry writes for its job.
type RenderWorker struct {
	registry       *registry.Registry
	resolver       *background.Resolver
	encoder        encoder.Encoder
	hub            *ws.Hub
	cfg            *config.Config
	acquireSurface capture.SurfaceFactory
}

func NewRenderWorker(reg *registry.Registry, resolver *background.Resolver, enc encoder.Encoder, hub *ws.Hub, cfg *config.Config) *RenderWorker {
	return &RenderWorker{
		registry:       reg,
		resolver:       resolver,
		encoder:        enc,
		hub:            hub,
		cfg:            cfg,
		acquireSurface: capture.AcquireSurface,
	}
}

// Spawn runs the pipeline as an independent task. Its outcome is
// delivered on a result channel consumed exactly once, so a failure
// anywhere in the pipeline (including a panic) ends in the job's
// terminal error state instead of an unhandled fault.
func (w *RenderWorker) Spawn(jobID string, req *model.GenerateRequest) {
	errc := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("render pipeline panic: %v", r)
			}
		}()
		errc <- w.process(context.Background(), jobID, req)
	}()

	go func() {
		if err := <-errc; err != nil {
			log.Printf("[JOB %s] failed: %v", jobID, err)
			w.registry.Fail(jobID, err.Error())
			w.broadcastError(jobID, err.Error())
		}
	}()
}

func (w *RenderWorker) process(ctx context.Context, jobID string, req *model.GenerateRequest) error {
	log.Printf("[JOB %s] starting render: %.0fs @ %dfps, %d messages", jobID, req.DurationSec, req.FPS, len(req.Messages))

	w.updateStatus(jobID, model.JobStatusRendering, "Preparing timeline")

	plan, err := timeline.NewPlan(timeline.PlanConfig{
		DurationSec:     req.DurationSec,
		FPS:             req.FPS,
		Decimation:      float64(req.Decimation),
		HoldWindowSec:   w.cfg.Render.HoldWindowSec,
		HookWindowSec:   w.cfg.Render.HookWindowSec,
		MessageDelaySec: req.MessageDelay,
		Messages:        req.Messages,
	})
	if err != nil {
		return fmt.Errorf("timeline: %w", err)
	}

	frameDir := filepath.Join(w.cfg.Storage.FramesDir, jobID)
	defer w.scheduleCleanup(jobID, frameDir)

	rcfg := renderer.Config{
		Width:               req.Width,
		Height:              req.Height,
		Title:               req.Title,
		Episode:             req.Episode,
		TotalEpisodes:       req.TotalEpisodes,
		Theme:               string(req.Theme),
		TransparentBackdrop: req.BackgroundURL != "",
	}

	// Background resolution hides network latency behind surface
	// acquisition. Its failure is absorbed here: the job continues
	// without a background.
	var surface capture.Surface
	var bg *background.Asset

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := w.acquireSurface(rcfg)
		if err != nil {
			return fmt.Errorf("acquire rendering surface: %w", err)
		}
		surface = s
		return nil
	})
	g.Go(func() error {
		if req.BackgroundURL == "" {
			return nil
		}
		asset, err := w.resolver.Resolve(gctx, req.BackgroundURL, req.Width, req.Height)
		if err != nil {
			log.Printf("[JOB %s] background resolution failed, continuing without background: %v", jobID, err)
			return nil
		}
		bg = asset
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// A background was requested but did not resolve: swap the
	// transparent surface for one that paints the synthetic backdrop.
	if bg == nil && rcfg.TransparentBackdrop {
		surface.Close()
		rcfg.TransparentBackdrop = false
		surface, err = w.acquireSurface(rcfg)
		if err != nil {
			return fmt.Errorf("acquire rendering surface: %w", err)
		}
	}
	defer surface.Close()

	stage := capture.NewStage(surface, frameDir)
	lastPct := -1
	err = stage.Run(ctx, plan, func(done, total int) {
		pct := done * captureProgressEnd / total
		if pct == lastPct {
			return
		}
		lastPct = pct
		w.updateProgress(jobID, pct, fmt.Sprintf("Rendering frames %d/%d", done, total))
	})
	if err != nil {
		return fmt.Errorf("frame capture: %w", err)
	}

	w.updateStatus(jobID, model.JobStatusEncoding, "Encoding video")
	w.updateProgress(jobID, encodeProgressStart, "Encoding video")

	if err := os.MkdirAll(w.cfg.Storage.VideosDir, 0755); err != nil {
		return fmt.Errorf("prepare output directory: %w", err)
	}

	outputName := jobID + ".mp4"
	opts := encoder.Options{
		FramePattern: capture.FramePattern(frameDir),
		FrameRate:    plan.SampleRate(),
		OutputFPS:    req.FPS,
		Width:        req.Width,
		Height:       req.Height,
		OutputPath:   filepath.Join(w.cfg.Storage.VideosDir, outputName),
		DurationSec:  req.DurationSec,
		Encoder:      w.cfg.FFmpeg.Encoder,
		Quality:      w.cfg.FFmpeg.Quality,
		Preset:       w.cfg.FFmpeg.Preset,
	}
	if bg != nil {
		opts.BackgroundPath = bg.Path
	}

	err = w.encoder.Encode(ctx, opts, func(frac float64) {
		pct := encodeProgressStart + int(frac*encodeProgressSpan)
		w.updateProgress(jobID, pct, "Encoding video")
	})
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	w.registry.Complete(jobID, outputName)
	w.broadcastComplete(jobID, "/api/videos/"+outputName)
	log.Printf("[JOB %s] done: %s", jobID, outputName)
	return nil
}

// scheduleCleanup deletes the transient frame directory after a short
// grace delay so in-flight reads can finish. Best effort only.
func (w *RenderWorker) scheduleCleanup(jobID, frameDir string) {
	grace := time.Duration(w.cfg.Cleanup.GraceDelaySec) * time.Second
	time.AfterFunc(grace, func() {
		if err := os.RemoveAll(frameDir); err != nil {
			log.Printf("[JOB %s] frame cleanup failed: %v", jobID, err)
		}
	})
}

func (w *RenderWorker) updateStatus(jobID string, status model.JobStatus, message string) {
	w.registry.SetStatus(jobID, status, message)
	w.broadcastProgress(jobID)
}

func (w *RenderWorker) updateProgress(jobID string, progress int, message string) {
	w.registry.SetProgress(jobID, progress, message)
	w.broadcastProgress(jobID)
}

func (w *RenderWorker) broadcastProgress(jobID string) {
	if w.hub == nil {
		return
	}
	if job, err := w.registry.Get(jobID); err == nil {
		w.hub.BroadcastProgress(job.ID, job.Progress, job.Status, job.Message)
	}
}

func (w *RenderWorker) broadcastComplete(jobID, videoURL string) {
	if w.hub != nil {
		w.hub.BroadcastComplete(jobID, videoURL)
	}
}

func (w *RenderWorker) broadcastError(jobID, message string) {
	if w.hub != nil {
		w.hub.BroadcastError(jobID, "RENDER_FAILED", message)
	}
}
