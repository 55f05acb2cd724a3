package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/fera765/chatstory/internal/model"
	"github.com/fera765/chatstory/internal/timeline"
)

// Config is the static per-job presentation configuration.
type Config struct {
	Width         int
	Height        int
	Title         string
	Episode       int
	TotalEpisodes int
	Theme         string
	// TransparentBackdrop leaves the canvas transparent outside the
	// chat chrome so the encoder can composite a background video
	// underneath the frame sequence.
	TransparentBackdrop bool
}

// Renderer maps a timeline render state to a raster frame. Drawing is
// pure: the same state and config always produce identical bytes.
type Renderer struct {
	cfg  Config
	pal  Palette
	face font.Face

	margin     int
	bubblePad  int
	lineHeight int
	maxBubble  int
	topbarH    int
	barH       int
	mediaH     int
}

func New(cfg Config) *Renderer {
	r := &Renderer{
		cfg:  cfg,
		pal:  PaletteFor(cfg.Theme),
		face: basicfont.Face7x13,
	}

	r.margin = cfg.Width / 18
	r.bubblePad = 10
	r.lineHeight = r.face.Metrics().Height.Ceil() + 4
	r.maxBubble = cfg.Width * 2 / 3
	r.topbarH = cfg.Height / 18
	r.barH = 6
	r.mediaH = cfg.Height / 8
	return r
}

// Draw composes the frame in a fixed pass order: backdrop, climax dim,
// chrome, message panel, caption overlay. Each pass reads only the
// state and writes only to the shared canvas.
func (r *Renderer) Draw(state timeline.RenderState) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.cfg.Width, r.cfg.Height))

	r.drawBackdrop(img, state)
	r.drawClimaxDim(img, state)
	r.drawChrome(img, state)
	r.drawMessages(img, state)
	r.drawCaption(img, state)

	return img
}

// drawBackdrop paints the animated vertical gradient, or nothing when a
// background video will be composited underneath.
func (r *Renderer) drawBackdrop(img *image.RGBA, state timeline.RenderState) {
	if r.cfg.TransparentBackdrop {
		return
	}

	// Slow vertical drift keeps the synthetic backdrop alive without
	// breaking determinism.
	phase := 0.1 * math.Sin(2*math.Pi*state.Elapsed/8)

	top, bottom := r.pal.BackdropTop, r.pal.BackdropBottom
	for y := 0; y < r.cfg.Height; y++ {
		f := float64(y)/float64(r.cfg.Height) + phase
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c := lerpColor(top, bottom, f)
		for x := 0; x < r.cfg.Width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func (r *Renderer) drawClimaxDim(img *image.RGBA, state timeline.RenderState) {
	if !state.Climax {
		return
	}
	overlay := color.NRGBA{A: 70}
	fillOver(img, img.Bounds(), overlay)
}

func (r *Renderer) drawChrome(img *image.RGBA, state timeline.RenderState) {
	// Topbar
	topbar := image.Rect(0, 0, r.cfg.Width, r.topbarH)
	fillOver(img, topbar, opaque(r.pal.Topbar))

	baseline := r.topbarH/2 + r.face.Metrics().Ascent.Ceil()/2
	if r.cfg.Title != "" {
		r.drawText(img, r.margin, baseline, r.cfg.Title, opaque(r.pal.TextOnOther))
	}
	if r.cfg.Episode > 0 {
		label := fmt.Sprintf("Ep %d/%d", r.cfg.Episode, r.cfg.TotalEpisodes)
		w := r.measure(label)
		r.drawText(img, r.cfg.Width-r.margin-w, baseline, label, opaque(r.pal.SystemText))
	}

	// Global progress bar directly under the topbar.
	filled := int(state.Progress * float64(r.cfg.Width))
	track := image.Rect(0, r.topbarH, r.cfg.Width, r.topbarH+r.barH)
	fillOver(img, track, color.NRGBA{R: 255, G: 255, B: 255, A: 26})
	fillOver(img, image.Rect(0, r.topbarH, filled, r.topbarH+r.barH), opaque(r.pal.Accent))
}

// drawMessages stacks the visible messages bottom-up so the newest
// bubble always sits at the bottom of the panel, the way a live chat
// would scroll.
func (r *Renderer) drawMessages(img *image.RGBA, state timeline.RenderState) {
	panelTop := r.topbarH + r.barH + r.lineHeight
	cursor := r.cfg.Height - r.cfg.Height/10

	for i := len(state.Visible) - 1; i >= 0; i-- {
		vm := state.Visible[i]
		h := r.messageHeight(vm.Message)
		cursor -= h + r.lineHeight/2
		if cursor < panelTop {
			break
		}

		// Entry animation: slide up and fade in.
		yOffset := int((1 - vm.Progress) * float64(r.lineHeight))
		r.drawMessage(img, vm.Message, cursor+yOffset, vm.Progress)
	}
}

func (r *Renderer) messageHeight(m model.Message) int {
	switch m.Kind {
	case model.KindMedia:
		h := r.mediaH + 2*r.bubblePad
		if m.Caption != "" {
			h += r.lineHeight
		}
		return h
	case model.KindSystem:
		return r.lineHeight + r.bubblePad
	case model.KindAlert:
		return 2 * r.lineHeight
	default:
		lines := r.wrapText(m.Body, r.maxBubble-2*r.bubblePad)
		h := len(lines)*r.lineHeight + 2*r.bubblePad
		if m.Sender == model.SenderOther && m.DisplayName != "" {
			h += r.lineHeight
		}
		return h
	}
}

func (r *Renderer) drawMessage(img *image.RGBA, m model.Message, top int, progress float64) {
	switch m.Kind {
	case model.KindSystem:
		r.drawCenteredLine(img, m.Body, top+r.lineHeight, withAlpha(r.pal.SystemText, progress))
	case model.KindAlert:
		band := image.Rect(0, top, r.cfg.Width, top+2*r.lineHeight)
		fillOver(img, band, withAlpha(r.pal.AlertBand, progress))
		r.drawCenteredLine(img, m.Body, top+r.lineHeight+r.lineHeight/3, withAlpha(r.pal.AlertText, progress))
	case model.KindMedia:
		r.drawMediaBubble(img, m, top, progress)
	default:
		r.drawTextBubble(img, m, top, progress)
	}
}

func (r *Renderer) drawTextBubble(img *image.RGBA, m model.Message, top int, progress float64) {
	lines := r.wrapText(m.Body, r.maxBubble-2*r.bubblePad)

	textW := 0
	for _, line := range lines {
		if w := r.measure(line); w > textW {
			textW = w
		}
	}
	bw := textW + 2*r.bubblePad
	bh := len(lines)*r.lineHeight + 2*r.bubblePad

	bubble, text := r.pal.BubbleOther, r.pal.TextOnOther
	x := r.margin
	if m.Sender == model.SenderSelf {
		bubble, text = r.pal.BubbleSelf, r.pal.TextOnSelf
		x = r.cfg.Width - r.margin - bw
	}

	if m.Sender == model.SenderOther && m.DisplayName != "" {
		r.drawText(img, x, top+r.lineHeight-4, m.DisplayName, withAlpha(r.pal.SystemText, progress))
		top += r.lineHeight
	}

	fillOver(img, image.Rect(x, top, x+bw, top+bh), withAlpha(bubble, progress))

	baseline := top + r.bubblePad + r.face.Metrics().Ascent.Ceil()
	for _, line := range lines {
		r.drawText(img, x+r.bubblePad, baseline, line, withAlpha(text, progress))
		baseline += r.lineHeight
	}
}

func (r *Renderer) drawMediaBubble(img *image.RGBA, m model.Message, top int, progress float64) {
	bw := r.maxBubble
	x := r.margin
	if m.Sender == model.SenderSelf {
		x = r.cfg.Width - r.margin - bw
	}

	box := image.Rect(x, top, x+bw, top+r.mediaH+2*r.bubblePad)
	fillOver(img, box, withAlpha(r.pal.BubbleOther, progress))
	borderOver(img, box, withAlpha(r.pal.Accent, progress))

	label := m.MediaRef
	if label == "" {
		label = "[ media ]"
	}
	r.drawText(img, x+r.bubblePad, top+r.bubblePad+r.face.Metrics().Ascent.Ceil(), label, withAlpha(r.pal.SystemText, progress))

	if m.Caption != "" {
		r.drawText(img, x+r.bubblePad, box.Max.Y+r.lineHeight-4, m.Caption, withAlpha(r.pal.TextOnOther, progress))
	}
}

// drawCaption paints the opening hook line while the hook window is
// active.
func (r *Renderer) drawCaption(img *image.RGBA, state timeline.RenderState) {
	if !state.Hook || r.cfg.Title == "" {
		return
	}
	y := r.topbarH + r.barH + 3*r.lineHeight
	r.drawCenteredLine(img, r.cfg.Title, y, opaque(r.pal.Caption))
}

// wrapText greedily packs words into lines no wider than max pixels.
// A word that overflows the current line starts the next one, even if
// the word alone is wider than the limit.
func (r *Renderer) wrapText(s string, max int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if r.measure(candidate) <= max {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}

func (r *Renderer) measure(s string) int {
	return font.MeasureString(r.face, s).Ceil()
}

func (r *Renderer) drawText(img *image.RGBA, x, baseline int, s string, col color.NRGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: r.face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

func (r *Renderer) drawCenteredLine(img *image.RGBA, s string, baseline int, col color.NRGBA) {
	x := (r.cfg.Width - r.measure(s)) / 2
	if x < 0 {
		x = 0
	}
	r.drawText(img, x, baseline, s, col)
}

func fillOver(img *image.RGBA, rect image.Rectangle, col color.NRGBA) {
	draw.Draw(img, rect, image.NewUniform(col), image.Point{}, draw.Over)
}

func borderOver(img *image.RGBA, rect image.Rectangle, col color.NRGBA) {
	fillOver(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+2), col)
	fillOver(img, image.Rect(rect.Min.X, rect.Max.Y-2, rect.Max.X, rect.Max.Y), col)
	fillOver(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+2, rect.Max.Y), col)
	fillOver(img, image.Rect(rect.Max.X-2, rect.Min.Y, rect.Max.X, rect.Max.Y), col)
}

func opaque(c color.RGBA) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func withAlpha(c color.RGBA, f float64) color.NRGBA {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(float64(c.A) * f)}
}

func lerpColor(a, b color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*f),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*f),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*f),
		A: 255,
	}
}
