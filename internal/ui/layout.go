package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/lyrx/internal/shared"
)

// Dock is where the lyric block sits in the terminal.
type Dock int

const (
	DockBottom Dock = iota
	DockTop
	DockCenter
)

// ParseDock parses a dock name. An empty name is [DockBottom].
func ParseDock(s string) (Dock, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bottom":
		return DockBottom, nil
	case "top":
		return DockTop, nil
	case "center":
		return DockCenter, nil
	default:
		return DockBottom, fmt.Errorf("%w: unknown dock %q", shared.ErrInvalidArgument, s)
	}
}

func (d Dock) String() string {
	switch d {
	case DockTop:
		return "top"
	case DockCenter:
		return "center"
	default:
		return "bottom"
	}
}

// Next cycles bottom, top, center.
func (d Dock) Next() Dock {
	return (d + 1) % 3
}

// placement returns how many rows to leave above a block of blockRows in a window of height rows.
//
// The status bar takes the last barRows and plays the role of a desktop taskbar: a bottom-docked block
// sits directly above it and the bar's rows are excluded from the centering area.
func placement(d Dock, height, blockRows, barRows int) int {
	avail := height - barRows
	if avail <= blockRows {
		return 0
	}
	switch d {
	case DockTop:
		return 0
	case DockCenter:
		return (avail - blockRows) / 2
	default:
		return avail - blockRows
	}
}
