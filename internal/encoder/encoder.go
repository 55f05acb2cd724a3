package encoder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Options describe one encode run.
type Options struct {
	// FramePattern is the printf-style path of the ordered frame
	// sequence (frame_%05d.png).
	FramePattern string
	// FrameRate is the input rate of the frame sequence; it may be a
	// divisor of OutputFPS, in which case ffmpeg duplicates frames.
	FrameRate float64
	OutputFPS int
	Width     int
	Height    int
	// BackgroundPath, when set, is composited underneath the frame
	// sequence with a cover-fit scale and centered overlay.
	BackgroundPath string
	OutputPath     string
	// DurationSec is the expected output length, used to translate
	// encoder time offsets into fractional progress.
	DurationSec float64
	Encoder     string
	Quality     int
	Preset      string
}

// Encoder turns an ordered frame sequence (plus optional background
// video) into a single output file, reporting fractional progress.
type Encoder interface {
	Encode(ctx context.Context, opts Options, onProgress func(frac float64)) error
}

// FFmpegEncoder shells out to ffmpeg.
type FFmpegEncoder struct {
	bin string
}

func NewFFmpegEncoder(bin string) *FFmpegEncoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegEncoder{bin: bin}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, opts Options, onProgress func(frac float64)) error {
	args := buildArgs(opts)

	cmd := exec.CommandContext(ctx, e.bin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	// stderrBuf is written only by the capture goroutine; the read below
	// waits for stderrDone, and both pipes are drained before Wait.
	var stderrBuf strings.Builder
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			stderrBuf.WriteString(scanner.Text())
			stderrBuf.WriteByte('\n')
		}
	}()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	consumeProgress(bufio.NewScanner(stdout), opts.DurationSec, onProgress)
	_, _ = io.Copy(io.Discard, stdout)
	<-stderrDone

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w - %s", err, strings.TrimSpace(stderrBuf.String()))
	}

	if onProgress != nil {
		onProgress(1)
	}
	return nil
}

// buildArgs assembles the ffmpeg invocation. The preset favors
// turnaround over file size; pixel format is fixed so every output is
// broadly playable.
func buildArgs(opts Options) []string {
	args := []string{"-y"}

	frameInput := []string{
		"-framerate", strconv.FormatFloat(opts.FrameRate, 'f', -1, 64),
		"-i", opts.FramePattern,
	}

	if opts.BackgroundPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", opts.BackgroundPath)
		args = append(args, frameInput...)
		filter := fmt.Sprintf(
			"[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d[bg];[bg][1:v]overlay=(W-w)/2:(H-h)/2:shortest=1[out]",
			opts.Width, opts.Height, opts.Width, opts.Height,
		)
		args = append(args, "-filter_complex", filter, "-map", "[out]")
	} else {
		args = append(args, frameInput...)
	}

	args = append(args,
		"-r", strconv.Itoa(opts.OutputFPS),
		"-t", strconv.FormatFloat(opts.DurationSec, 'f', -1, 64),
		"-c:v", opts.Encoder,
		"-crf", strconv.Itoa(opts.Quality),
		"-preset", opts.Preset,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		opts.OutputPath,
	)
	return args
}

// consumeProgress reads ffmpeg's key=value progress stream and emits
// fractional progress. out_time_us carries the encoded position in
// microseconds; "progress=end" marks completion.
func consumeProgress(scanner *bufio.Scanner, durationSec float64, emit func(frac float64)) {
	if emit == nil {
		emit = func(float64) {}
	}

	var last float64
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}

		switch key {
		case "out_time_us":
			if durationSec <= 0 {
				continue
			}
			us, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			frac := math.Min(1, math.Max(0, us/1e6/durationSec))
			if frac > last {
				last = frac
				emit(frac)
			}
		case "progress":
			if value == "end" {
				emit(1)
				return
			}
		}
	}
}
