package tasks

import (
	"time"

	"github.com/desertthunder/lyrx/internal/models"
)

// TransitionKind enumerates what the overlay should do after a sync step.
type TransitionKind int

const (
	None TransitionKind = iota
	Show
	Hide
	NoLyrics
)

func (k TransitionKind) String() string {
	switch k {
	case Show:
		return "show"
	case Hide:
		return "hide"
	case NoLyrics:
		return "no_lyrics"
	default:
		return "none"
	}
}

// Transition is emitted by [SyncEngine] whenever the active line changes.
type Transition struct {
	Kind         TransitionKind
	Index        int    // active line, -1 when nothing is active
	Text         string // Show
	Next         string // upcoming line, if any
	FadeIn       bool   // Show: the overlay was hidden or the text differs from the visible line
	Instrumental bool   // NoLyrics
}

// SyncEngine selects the active lyric line for a playback position.
//
// It is not safe for concurrent use; the overlay loop owns it and feeds it events in queue order.
type SyncEngine struct {
	tolerance time.Duration

	trackID    string
	transcript models.Transcript
	loaded     bool
	index      int
	position   time.Duration
	seq        uint64

	shown bool
	text  string
}

// SeekTolerance returns the backward jump that counts as a seek for a poll interval.
func SeekTolerance(pollInterval time.Duration) time.Duration {
	return pollInterval * 3 / 2
}

// NewSyncEngine creates an engine that treats backward jumps larger than tolerance as seeks.
func NewSyncEngine(tolerance time.Duration) *SyncEngine {
	return &SyncEngine{tolerance: tolerance, index: -1}
}

// TrackID returns the id of the current track.
func (e *SyncEngine) TrackID() string { return e.trackID }

// Index returns the active line index, or -1.
func (e *SyncEngine) Index() int { return e.index }

// Position returns the last applied position.
func (e *SyncEngine) Position() time.Duration { return e.position }

// Loaded reports whether a transcript has been loaded for the current track.
func (e *SyncEngine) Loaded() bool { return e.loaded }

// Transcript returns the active transcript.
func (e *SyncEngine) Transcript() models.Transcript { return e.transcript }

// Reset switches to track (nil for nothing playing), dropping the transcript and hiding any visible line.
func (e *SyncEngine) Reset(track *models.Track) Transition {
	e.trackID = ""
	if track != nil {
		e.trackID = track.ID
	}
	e.transcript = models.NoLyrics
	e.loaded = false
	e.index = -1
	e.position = 0
	e.shown = false
	e.text = ""
	return Transition{Kind: Hide, Index: -1}
}

// Load installs the transcript for trackID and evaluates it against the latest position.
//
// Results for any other track are stale and dropped (ok is false).
func (e *SyncEngine) Load(trackID string, t models.Transcript) (tr Transition, ok bool) {
	if trackID != e.trackID {
		return Transition{}, false
	}

	e.transcript = t
	e.loaded = true
	e.index = -1

	if t.Empty() {
		e.shown = false
		e.text = ""
		return Transition{Kind: NoLyrics, Index: -1, Instrumental: t.Instrumental}, true
	}
	return e.moveTo(t.IndexAt(e.position), true), true
}

// Advance applies a position tick.
//
// Ticks for another track or older than the last applied one are discarded. The index only moves forward
// unless the position jumped back by more than the tolerance, in which case it is recomputed from scratch.
// changed is false when the visible state stays the same.
func (e *SyncEngine) Advance(pb models.Playback) (tr Transition, changed bool) {
	if pb.TrackID() != e.trackID || pb.Seq < e.seq {
		return Transition{}, false
	}
	e.seq = pb.Seq

	prev := e.position
	e.position = pb.Position
	if !e.loaded || e.transcript.Empty() {
		return Transition{}, false
	}

	if pb.Position+e.tolerance < prev {
		return e.Rescan(pb.Position)
	}

	idx := e.index
	for idx+1 < e.transcript.Len() && e.transcript.Lines[idx+1].Start <= pb.Position {
		idx++
	}
	tr = e.moveTo(idx, false)
	return tr, tr.Kind != None
}

// Rescan recomputes the active line for position regardless of the current index.
// Used for seeks and sync offset changes.
func (e *SyncEngine) Rescan(position time.Duration) (tr Transition, changed bool) {
	e.position = position
	if !e.loaded || e.transcript.Empty() {
		return Transition{}, false
	}
	tr = e.moveTo(e.transcript.IndexAt(position), false)
	return tr, tr.Kind != None
}

// moveTo makes idx the active line. force emits a transition even when idx is unchanged.
func (e *SyncEngine) moveTo(idx int, force bool) Transition {
	if idx == e.index && !force {
		return Transition{}
	}
	e.index = idx

	if idx < 0 {
		e.shown = false
		e.text = ""
		tr := Transition{Kind: Hide, Index: -1}
		if first, ok := e.transcript.Line(0); ok {
			tr.Next = first.Text
		}
		return tr
	}

	line := e.transcript.Lines[idx]
	tr := Transition{
		Kind:   Show,
		Index:  idx,
		Text:   line.Text,
		FadeIn: !e.shown || line.Text != e.text,
	}
	if next, ok := e.transcript.Line(idx + 1); ok {
		tr.Next = next.Text
	}

	e.shown = true
	e.text = line.Text
	return tr
}
