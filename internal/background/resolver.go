package background

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Fetcher is the external background-fetch utility: given a URL it
// returns a local video file path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Asset is a resolved, canvas-sized background video.
type Asset struct {
	Path        string
	DurationSec float64
	Fetched     bool
}

// Resolver turns a background specification into a local video file
// scaled and cropped to the canvas. Fetched assets are cached in the
// shared asset directory; derived files are keyed by source id, so
// they are reused across jobs.
type Resolver struct {
	assetsDir string
	fetcher   Fetcher
	ffmpegBin string
	probeBin  string

	// transcode and probe are swappable in tests.
	transcode func(ctx context.Context, in, out string, w, h int) error
	probe     func(ctx context.Context, path string) (float64, error)
}

func NewResolver(assetsDir, ffmpegBin, probeBin string, fetcher Fetcher) *Resolver {
	r := &Resolver{
		assetsDir: assetsDir,
		fetcher:   fetcher,
		ffmpegBin: ffmpegBin,
		probeBin:  probeBin,
	}
	r.transcode = r.coverFit
	r.probe = r.probeDuration
	return r
}

// Resolve handles the three background cases: no spec, an existing
// library asset, or an external URL that needs fetching plus a
// cover-fit transform. Every resolved asset is probed so an unreadable
// file fails here, not in the encoder. Callers treat a returned error
// as non-fatal.
func (r *Resolver) Resolve(ctx context.Context, spec string, width, height int) (*Asset, error) {
	if spec == "" {
		return nil, nil
	}

	asset, err := r.resolvePath(ctx, spec, width, height)
	if err != nil {
		return nil, err
	}

	dur, err := r.probe(ctx, asset.Path)
	if err != nil {
		return nil, fmt.Errorf("probe background: %w", err)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("background %s has no duration", filepath.Base(asset.Path))
	}
	asset.DurationSec = dur

	log.Printf("Background ready: %s (%.1fs)", filepath.Base(asset.Path), dur)
	return asset, nil
}

func (r *Resolver) resolvePath(ctx context.Context, spec string, width, height int) (*Asset, error) {
	if !isURL(spec) {
		path := filepath.Join(r.assetsDir, filepath.Base(spec))
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("background asset %q: %w", spec, err)
		}
		return &Asset{Path: path}, nil
	}

	if r.fetcher == nil {
		return nil, fmt.Errorf("no background fetcher configured")
	}

	id := sourceID(spec)
	scaled := filepath.Join(r.assetsDir, fmt.Sprintf("bg_%s_%dx%d.mp4", id, width, height))
	if _, err := os.Stat(scaled); err == nil {
		log.Printf("Background cache hit: %s", filepath.Base(scaled))
		return &Asset{Path: scaled, Fetched: true}, nil
	}

	raw, err := r.fetcher.Fetch(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("fetch background: %w", err)
	}

	if err := r.transcode(ctx, raw, scaled, width, height); err != nil {
		return nil, fmt.Errorf("scale background: %w", err)
	}

	// The raw download is an intermediate artifact; only the derived
	// asset stays in the cache.
	if err := os.Remove(raw); err != nil {
		log.Printf("Failed to remove raw background download %s: %v", raw, err)
	}

	return &Asset{Path: scaled, Fetched: true}, nil
}

// coverFit rescales preserving aspect ratio so the target frame is
// fully covered, cropping centered overflow.
func (r *Resolver) coverFit(ctx context.Context, in, out string, w, h int) error {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.ffmpegBin,
		"-y",
		"-i", in,
		"-vf", CoverFilter(w, h),
		"-an",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg scale error: %v, output: %s", err, string(output))
	}
	return nil
}

// probeDuration reads the container duration via ffprobe.
func (r *Resolver) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, r.probeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return dur, nil
}

// CoverFilter builds the cover-fit scale+crop filter for a canvas size.
func CoverFilter(w, h int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)
}

func sourceID(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:8])
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
