package timeline

import (
	"fmt"
	"math"

	"github.com/fera765/chatstory/internal/model"
)

const (
	// Per-sample animation increment for a newly visible message.
	animStep = 0.1
	// Fraction of the total duration considered the climax window.
	climaxFraction = 0.15
)

// PlanConfig are the timing parameters of one job.
type PlanConfig struct {
	DurationSec float64
	FPS         int
	// Decimation renders fewer distinct samples than FPS; the encoder
	// duplicates frames back up to the output rate.
	Decimation float64
	// HoldWindowSec is the trailing window during which no new message
	// appears.
	HoldWindowSec float64
	// HookWindowSec marks the opening seconds flagged as the hook.
	HookWindowSec float64
	// MessageDelaySec, when > 0, overrides automatic onset spacing.
	MessageDelaySec float64
	Messages        []model.Message
}

// VisibleMessage is a message annotated with its entry-animation
// progress at one sample.
type VisibleMessage struct {
	Index    int
	Message  model.Message
	Progress float64
}

// RenderState is everything the frame renderer needs to draw one
// sample. It is recomputed fresh per sample and never persisted.
type RenderState struct {
	Elapsed   float64
	Progress  float64
	Visible   []VisibleMessage
	Chapter   int
	Hook      bool
	Climax    bool
	FinalHold bool
}

// Plan converts job parameters into a deterministic sample schedule and
// derives the render state for each sample.
type Plan struct {
	cfg      PlanConfig
	interval float64
	count    int
	onsets   []float64
}

func NewPlan(cfg PlanConfig) (*Plan, error) {
	if cfg.DurationSec <= 0 {
		return nil, fmt.Errorf("durationSec must be positive, got %v", cfg.DurationSec)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %d", cfg.FPS)
	}
	if cfg.Decimation <= 0 {
		cfg.Decimation = 1
	}
	if cfg.HoldWindowSec < 0 || cfg.HoldWindowSec >= cfg.DurationSec {
		cfg.HoldWindowSec = 0
	}

	p := &Plan{
		cfg:      cfg,
		interval: cfg.Decimation / float64(cfg.FPS),
		count:    int(math.Floor(cfg.DurationSec * float64(cfg.FPS) / cfg.Decimation)),
	}
	p.onsets = p.computeOnsets()
	return p, nil
}

// computeOnsets assigns each message its first-visible time. Spacing is
// either the explicit per-message delay or the total duration divided
// evenly across the message count; either way no onset lands inside
// the trailing hold window.
func (p *Plan) computeOnsets() []float64 {
	n := len(p.cfg.Messages)
	if n == 0 {
		return nil
	}

	spacing := p.cfg.DurationSec / float64(n)
	if p.cfg.MessageDelaySec > 0 {
		spacing = p.cfg.MessageDelaySec
	}

	latest := p.cfg.DurationSec - p.cfg.HoldWindowSec
	onsets := make([]float64, n)
	for i := range onsets {
		onset := float64(i) * spacing
		if onset > latest {
			onset = latest
		}
		onsets[i] = onset
	}
	return onsets
}

// SampleCount returns the number of samples covering [0, durationSec).
func (p *Plan) SampleCount() int { return p.count }

// SampleRate is the effective (decimated) input frame rate.
func (p *Plan) SampleRate() float64 { return 1 / p.interval }

// Schedule returns the ordered sample timestamps.
func (p *Plan) Schedule() []float64 {
	ts := make([]float64, p.count)
	for i := range ts {
		ts[i] = float64(i) * p.interval
	}
	return ts
}

// Onsets returns each message's scheduled first-visible time.
func (p *Plan) Onsets() []float64 { return p.onsets }

// StateAt derives the render state for sample i. Visibility is a
// stable-ordered prefix of the message list and animation progress is
// a pure function of the sample index, so replaying a sample always
// yields the same state.
func (p *Plan) StateAt(i int) RenderState {
	t := float64(i) * p.interval

	state := RenderState{
		Elapsed:   t,
		Progress:  t / p.cfg.DurationSec,
		Hook:      t < p.cfg.HookWindowSec,
		FinalHold: p.cfg.HoldWindowSec > 0 && t >= p.cfg.DurationSec-p.cfg.HoldWindowSec,
	}
	state.Climax = state.Progress >= 1-climaxFraction

	for idx, onset := range p.onsets {
		if t < onset {
			break
		}
		samplesVisible := i - int(math.Ceil(onset/p.interval))
		progress := float64(samplesVisible+1) * animStep
		if progress > 1 {
			progress = 1
		}
		state.Visible = append(state.Visible, VisibleMessage{
			Index:    idx,
			Message:  p.cfg.Messages[idx],
			Progress: progress,
		})
	}
	state.Chapter = len(state.Visible)

	return state
}
