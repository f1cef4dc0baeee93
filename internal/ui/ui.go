package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/desertthunder/lyrx/internal/tasks"
)

const (
	offsetStep     = 100 * time.Millisecond
	defaultPoll    = 500 * time.Millisecond
	defaultRefresh = 50 * time.Millisecond

	// next line above the active line
	blockRows = 2
)

var _ tea.Model = (*Model)(nil)

// Model represents the overlay state.
//
// It is the only consumer of the session queue and owns the [tasks.SyncEngine]; every transition is applied
// on the bubbletea loop.
type Model struct {
	events  <-chan tasks.Event
	engine  *tasks.SyncEngine
	palette *Palette
	keys    keyMap
	help    help.Model
	now     func() time.Time
	cfg     shared.OverlayConfig // last loaded [overlay] section

	width   int
	height  int
	dock    Dock
	top     int
	offset  time.Duration
	fadeLen time.Duration
	refresh time.Duration

	last   models.Playback
	lastAt time.Time

	track   string
	status  string
	signal  string
	current string
	next    string
	fade    fade
}

// NewModel creates an overlay reading from events.
func NewModel(events <-chan tasks.Event, cfg shared.OverlayConfig) *Model {
	dock, _ := ParseDock(cfg.Dock)

	poll := cfg.PollInterval.Duration
	if poll <= 0 {
		poll = defaultPoll
	}
	refresh := cfg.RefreshInterval.Duration
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	return &Model{
		events:  events,
		engine:  tasks.NewSyncEngine(tasks.SeekTolerance(poll)),
		palette: NewPalette(cfg),
		keys:    newKeyMap(),
		help:    help.New(),
		now:     time.Now,
		cfg:     cfg,
		dock:    dock,
		offset:  cfg.Offset.Duration,
		fadeLen: cfg.Fade.Duration,
		refresh: refresh,
		status:  "Starting lyrx...",
	}
}

// Init starts draining the session queue and the position refresh loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.place()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgEvent:
			return m, tea.Batch(m.handleEvent(msg.data.(tasks.Event)), m.waitForEvent())
		case MsgQueueClosed:
			return m, tea.Quit
		case MsgFrame:
			return m, m.handleFrame(msg.data.(int))
		case MsgRefresh:
			return m, tea.Batch(m.extrapolate(), m.tick())
		case MsgConfigReloaded:
			return m, m.applyConfig(msg.data.(shared.OverlayConfig))
		}
	}

	return m, nil
}

// View renders the next and active lines at the docked position with the status bar underneath.
func (m *Model) View() string {
	var next string
	if m.next != "" {
		next = m.palette.next.Render(m.next)
	}

	var main string
	switch {
	case m.current != "":
		main = m.palette.Line(m.current, m.fade.level(m.now()))
	case m.status != "":
		main = m.palette.status.Render(m.status)
	default:
		main = m.palette.next.Render("...")
	}

	block := lipgloss.JoinVertical(lipgloss.Center, next, main)
	if m.width > 0 {
		block = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, block)
	}
	bar := m.bar()

	var b strings.Builder
	b.WriteString(strings.Repeat("\n", m.top))
	b.WriteString(block)
	if m.height > 0 {
		if gap := m.height - m.top - lipgloss.Height(block) - lipgloss.Height(bar); gap > 0 {
			b.WriteString(strings.Repeat("\n", gap))
		}
	}
	b.WriteString("\n")
	b.WriteString(bar)
	return b.String()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.earlier):
		return m, m.setOffset(m.offset + offsetStep)
	case key.Matches(msg, m.keys.later):
		return m, m.setOffset(m.offset - offsetStep)
	case key.Matches(msg, m.keys.reset):
		return m, m.setOffset(0)
	case key.Matches(msg, m.keys.dock):
		m.dock = m.dock.Next()
		m.place()
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		m.place()
	}
	return m, nil
}

func (m *Model) handleEvent(ev tasks.Event) tea.Cmd {
	switch ev.Kind {
	case tasks.TrackChanged:
		m.observe(ev)
		m.track = ""
		m.status = ev.Message
		if ev.Playback.HasTrack() {
			m.track = ev.Message
			m.status = "Loading lyrics..."
		}
		return m.apply(m.engine.Reset(ev.Playback.Track))

	case tasks.PositionTick:
		m.observe(ev)
		tr, _ := m.engine.Advance(m.shifted(ev.Playback, ev.Playback.Position))
		return m.apply(tr)

	case tasks.TranscriptReady:
		tr, ok := m.engine.Load(ev.TrackID, ev.Transcript)
		if !ok {
			return nil
		}
		m.status = ""
		if tr.Kind == tasks.NoLyrics {
			m.status = ev.Message
		}
		return m.apply(tr)

	case tasks.SignalLost:
		m.signal = ev.Message
		m.place()
	case tasks.SignalRestored:
		m.signal = ""
		m.place()
	}
	return nil
}

// apply renders a sync transition.
func (m *Model) apply(tr tasks.Transition) tea.Cmd {
	switch tr.Kind {
	case tasks.Show:
		m.status = ""
		m.current = tr.Text
		m.next = tr.Next
		m.place()
		if tr.FadeIn {
			return m.startFade(false)
		}
	case tasks.Hide:
		m.next = tr.Next
		if m.current != "" && !m.fade.out {
			return m.startFade(true)
		}
	case tasks.NoLyrics:
		m.current = ""
		m.next = ""
		m.fade = fade{gen: m.fade.gen + 1}
	}
	return nil
}

func (m *Model) startFade(out bool) tea.Cmd {
	m.fade = fade{gen: m.fade.gen + 1, out: out, start: m.now(), duration: m.fadeLen}
	if m.fade.done(m.now()) {
		m.finishFade()
		return nil
	}
	return m.fade.frame()
}

func (m *Model) handleFrame(gen int) tea.Cmd {
	if gen != m.fade.gen {
		return nil
	}
	if m.fade.done(m.now()) {
		m.finishFade()
		return nil
	}
	return m.fade.frame()
}

func (m *Model) finishFade() {
	if m.fade.out {
		m.current = ""
	}
}

func (m *Model) observe(ev tasks.Event) {
	m.last = ev.Playback
	m.lastAt = ev.At
}

// estimate extrapolates the player position from the last snapshot.
func (m *Model) estimate() time.Duration {
	pos := m.last.Position
	if m.last.Playing && !m.lastAt.IsZero() {
		pos += m.now().Sub(m.lastAt)
	}
	if t := m.last.Track; t != nil && t.Duration > 0 && pos > t.Duration {
		pos = t.Duration
	}
	return pos
}

// shifted applies the sync offset to pos. A positive offset shows lyrics earlier.
func (m *Model) shifted(pb models.Playback, pos time.Duration) models.Playback {
	pb.Position = max(pos+m.offset, 0)
	return pb
}

func (m *Model) extrapolate() tea.Cmd {
	if !m.last.HasTrack() || !m.last.Playing || !m.engine.Loaded() {
		return nil
	}
	tr, _ := m.engine.Advance(m.shifted(m.last, m.estimate()))
	return m.apply(tr)
}

func (m *Model) setOffset(d time.Duration) tea.Cmd {
	m.offset = d
	m.place()
	if !m.last.HasTrack() {
		return nil
	}
	tr, _ := m.engine.Rescan(m.shifted(m.last, m.estimate()).Position)
	return m.apply(tr)
}

// applyConfig applies the keys of cfg that differ from the last loaded section.
// Dock and offset changed with keys survive reloads that leave those keys alone.
func (m *Model) applyConfig(cfg shared.OverlayConfig) tea.Cmd {
	prev := m.cfg
	if cfg == prev {
		return nil
	}
	m.cfg = cfg

	if cfg.Foreground != prev.Foreground || cfg.Background != prev.Background ||
		cfg.Next != prev.Next || cfg.Status != prev.Status {
		m.palette = NewPalette(cfg)
	}
	if cfg.Fade != prev.Fade {
		m.fadeLen = cfg.Fade.Duration
	}
	if cfg.RefreshInterval != prev.RefreshInterval && cfg.RefreshInterval.Duration > 0 {
		m.refresh = cfg.RefreshInterval.Duration
	}
	if cfg.Dock != prev.Dock {
		if d, err := ParseDock(cfg.Dock); err == nil {
			m.dock = d
		}
		m.place()
	}
	if cfg.Offset != prev.Offset {
		return m.setOffset(cfg.Offset.Duration)
	}
	return nil
}

// place recomputes the rows above the lyric block for the current dock and window size.
func (m *Model) place() {
	m.top = placement(m.dock, m.height, blockRows, lipgloss.Height(m.bar()))
}

func (m *Model) bar() string {
	var status string
	switch {
	case m.signal != "":
		status = m.palette.warn.Render(m.signal)
	case m.track != "":
		status = m.palette.help.Render(m.track)
	}
	if m.offset != 0 {
		status += m.palette.help.Render(fmt.Sprintf(" • offset %+.1fs", m.offset.Seconds()))
	}
	return status + "\n" + m.help.View(m.keys)
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return queueClosedMsg()
		}
		return eventMsg(ev)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg {
		return refreshMsg()
	})
}
