package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/lucasb-eyer/go-colorful"
)

// fallbacks for colors missing from the config or not parseable
const (
	defaultForeground = "#FFFFFF"
	defaultBackground = "#000000"
	defaultNext       = "#AAAAAA"
	defaultStatus     = "#7D56F4"
)

// struct Palette is the overlay stylesheet built from the [shared.OverlayConfig] colors
type Palette struct {
	fg     colorful.Color
	bg     colorful.Color
	next   lipgloss.Style
	status lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
}

func NewPalette(cfg shared.OverlayConfig) *Palette {
	bg := parseColor(cfg.Background, defaultBackground)
	return &Palette{
		fg:     parseColor(cfg.Foreground, defaultForeground),
		bg:     bg,
		next:   NewStyle(parseColor(cfg.Next, defaultNext).Hex()).Background(lipgloss.Color(bg.Hex())).Padding(0, 1),
		status: NewEm(parseColor(cfg.Status, defaultStatus).Hex()),
		warn:   NewBold("#FFA500"),
		help:   NewEm("#626262"),
	}
}

// Line renders the active lyric at fade level t, where 0 is the background color and 1 the foreground.
func (p *Palette) Line(s string, t float64) string {
	c := Blend(p.bg, p.fg, t)
	return NewBold(c.Hex()).Background(lipgloss.Color(p.bg.Hex())).Padding(0, 1).Render(s)
}

// Blend interpolates from a to b in Lab space. t is clamped to [0, 1].
func Blend(a, b colorful.Color, t float64) colorful.Color {
	t = min(max(t, 0), 1)
	return a.BlendLab(b, t).Clamped()
}

func parseColor(hex, fallback string) colorful.Color {
	if c, err := colorful.Hex(hex); err == nil {
		return c
	}
	c, _ := colorful.Hex(fallback)
	return c
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
