package renderer

import (
	_ "embed"
	"fmt"
	"image/color"

	"gopkg.in/yaml.v3"
)

//go:embed themes.yaml
var themesYAML []byte

// Palette is the resolved color set for one theme.
type Palette struct {
	BackdropTop    color.RGBA
	BackdropBottom color.RGBA
	Topbar         color.RGBA
	Accent         color.RGBA
	BubbleSelf     color.RGBA
	BubbleOther    color.RGBA
	TextOnSelf     color.RGBA
	TextOnOther    color.RGBA
	SystemText     color.RGBA
	AlertBand      color.RGBA
	AlertText      color.RGBA
	Caption        color.RGBA
}

type themeFile struct {
	Themes map[string]themeSpec `yaml:"themes"`
}

type themeSpec struct {
	BackdropTop    string `yaml:"backdropTop"`
	BackdropBottom string `yaml:"backdropBottom"`
	Topbar         string `yaml:"topbar"`
	Accent         string `yaml:"accent"`
	BubbleSelf     string `yaml:"bubbleSelf"`
	BubbleOther    string `yaml:"bubbleOther"`
	TextOnSelf     string `yaml:"textOnSelf"`
	TextOnOther    string `yaml:"textOnOther"`
	SystemText     string `yaml:"systemText"`
	AlertBand      string `yaml:"alertBand"`
	AlertText      string `yaml:"alertText"`
	Caption        string `yaml:"caption"`
}

var palettes = mustLoadPalettes()

func mustLoadPalettes() map[string]Palette {
	var f themeFile
	if err := yaml.Unmarshal(themesYAML, &f); err != nil {
		panic(fmt.Sprintf("renderer: bad embedded themes.yaml: %v", err))
	}

	out := make(map[string]Palette, len(f.Themes))
	for name, spec := range f.Themes {
		out[name] = Palette{
			BackdropTop:    mustHex(spec.BackdropTop),
			BackdropBottom: mustHex(spec.BackdropBottom),
			Topbar:         mustHex(spec.Topbar),
			Accent:         mustHex(spec.Accent),
			BubbleSelf:     mustHex(spec.BubbleSelf),
			BubbleOther:    mustHex(spec.BubbleOther),
			TextOnSelf:     mustHex(spec.TextOnSelf),
			TextOnOther:    mustHex(spec.TextOnOther),
			SystemText:     mustHex(spec.SystemText),
			AlertBand:      mustHex(spec.AlertBand),
			AlertText:      mustHex(spec.AlertText),
			Caption:        mustHex(spec.Caption),
		}
	}
	return out
}

// PaletteFor returns the palette for a theme name, falling back to the
// dark theme for unknown names.
func PaletteFor(theme string) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes["dark"]
}

func mustHex(s string) color.RGBA {
	c, err := parseHex(s)
	if err != nil {
		panic(fmt.Sprintf("renderer: bad theme color %q: %v", s, err))
	}
	return c
}

// parseHex parses #RRGGBB or #RRGGBBAA.
func parseHex(s string) (color.RGBA, error) {
	if len(s) == 0 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("expected leading #")
	}
	hex := s[1:]
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("expected 6 or 8 hex digits")
	}

	var v [4]uint8
	v[3] = 0xff
	for i := 0; i < len(hex)/2; i++ {
		hi, ok1 := hexDigit(hex[2*i])
		lo, ok2 := hexDigit(hex[2*i+1])
		if !ok1 || !ok2 {
			return color.RGBA{}, fmt.Errorf("invalid hex digit")
		}
		v[i] = hi<<4 | lo
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func hexDigit(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
