package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameInterval paces fade animation frames (about 30 per second).
const frameInterval = 33 * time.Millisecond

// fade tracks one running fade of the active lyric line.
//
// gen increases on every new fade so frames scheduled for an older fade are dropped.
type fade struct {
	gen      int
	out      bool
	start    time.Time
	duration time.Duration
}

// level returns the foreground weight at now: 0 is invisible, 1 fully shown.
func (f fade) level(now time.Time) float64 {
	p := 1.0
	if f.duration > 0 {
		p = min(float64(now.Sub(f.start))/float64(f.duration), 1)
	}
	if p < 0 {
		p = 0
	}
	if f.out {
		return 1 - p
	}
	return p
}

func (f fade) done(now time.Time) bool {
	return f.duration <= 0 || now.Sub(f.start) >= f.duration
}

func (f fade) frame() tea.Cmd {
	gen := f.gen
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return frameMsg(gen)
	})
}
