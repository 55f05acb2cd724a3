package renderer

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/fera765/chatstory/internal/model"
	"github.com/fera765/chatstory/internal/timeline"
)

func testConfig() Config {
	return Config{
		Width:         90,
		Height:        160,
		Title:         "Midnight Texts",
		Episode:       2,
		TotalEpisodes: 5,
		Theme:         "dark",
	}
}

func testState() timeline.RenderState {
	return timeline.RenderState{
		Elapsed:  3.2,
		Progress: 0.32,
		Visible: []timeline.VisibleMessage{
			{Index: 0, Message: model.Message{Kind: model.KindText, Sender: model.SenderOther, DisplayName: "Ava", Body: "are you awake?"}, Progress: 1},
			{Index: 1, Message: model.Message{Kind: model.KindText, Sender: model.SenderSelf, Body: "yeah"}, Progress: 0.4},
			{Index: 2, Message: model.Message{Kind: model.KindSystem, Body: "Ava is typing..."}, Progress: 0.1},
		},
		Chapter: 3,
	}
}

func TestDraw_Deterministic(t *testing.T) {
	state := testState()

	a := New(testConfig()).Draw(state)
	b := New(testConfig()).Draw(state)

	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("same config and state must produce identical frames")
	}
}

func TestDraw_StateChangesFrame(t *testing.T) {
	r := New(testConfig())

	a := r.Draw(testState())

	next := testState()
	next.Elapsed = 3.4
	next.Progress = 0.34
	b := r.Draw(next)

	if bytes.Equal(a.Pix, b.Pix) {
		t.Error("advancing the state should change the frame")
	}
}

func TestDraw_TransparentBackdrop(t *testing.T) {
	cfg := testConfig()
	cfg.TransparentBackdrop = true
	cfg.Title = ""

	img := New(cfg).Draw(timeline.RenderState{})

	// Pixels well below the chrome stay fully transparent.
	_, _, _, a := img.At(cfg.Width/2, cfg.Height/2).RGBA()
	if a != 0 {
		t.Errorf("expected transparent pixel, alpha = %d", a)
	}
}

func TestDraw_OpaqueBackdrop(t *testing.T) {
	img := New(testConfig()).Draw(timeline.RenderState{})

	_, _, _, a := img.At(45, 80).RGBA()
	if a != 0xffff {
		t.Errorf("expected opaque backdrop pixel, alpha = %d", a)
	}
}

func TestDraw_AllMessageKinds(t *testing.T) {
	state := timeline.RenderState{
		Visible: []timeline.VisibleMessage{
			{Index: 0, Message: model.Message{Kind: model.KindText, Sender: model.SenderOther, Body: "hello"}, Progress: 1},
			{Index: 1, Message: model.Message{Kind: model.KindMedia, Sender: model.SenderSelf, MediaRef: "photo.jpg", Caption: "look"}, Progress: 1},
			{Index: 2, Message: model.Message{Kind: model.KindAlert, Body: "BATTERY LOW"}, Progress: 1},
			{Index: 3, Message: model.Message{Kind: model.KindSystem, Body: "missed call"}, Progress: 1},
		},
		Chapter: 4,
	}

	// Must not panic, and must differ from the empty frame.
	r := New(testConfig())
	withMessages := r.Draw(state)
	empty := r.Draw(timeline.RenderState{})

	if bytes.Equal(withMessages.Pix, empty.Pix) {
		t.Error("messages should be visible on the frame")
	}
}

func TestWrapText(t *testing.T) {
	r := New(testConfig())

	tests := []struct {
		name  string
		text  string
		max   int
		lines int
	}{
		{"empty", "", 100, 1},
		{"single word", "hi", 100, 1},
		{"fits on one line", "a b", 100, 1},
		{"wraps", "one two three four five six seven eight", 60, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := r.wrapText(tt.text, tt.max)
			if len(lines) != tt.lines {
				t.Errorf("wrapText(%q, %d) = %d lines %v, want %d", tt.text, tt.max, len(lines), lines, tt.lines)
			}
			for _, line := range lines {
				if line != "" && r.measure(line) > tt.max && !oneWord(line) {
					t.Errorf("line %q exceeds max width %d", line, tt.max)
				}
			}
		})
	}
}

func oneWord(s string) bool {
	for _, c := range s {
		if c == ' ' {
			return false
		}
	}
	return true
}

func TestPaletteFor_Fallback(t *testing.T) {
	dark := PaletteFor("dark")
	unknown := PaletteFor("sepia")
	if dark != unknown {
		t.Error("unknown theme must fall back to dark")
	}

	light := PaletteFor("light")
	if light == dark {
		t.Error("light and dark palettes must differ")
	}
	midnight := PaletteFor("midnight")
	if midnight == dark {
		t.Error("midnight and dark palettes must differ")
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#112233", color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}, false},
		{"#ffffff80", color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x80}, false},
		{"112233", color.RGBA{}, true},
		{"#12", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tt := range tests {
		got, err := parseHex(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseHex(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseHex(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseHex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
