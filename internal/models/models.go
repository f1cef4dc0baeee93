// package models defines the data model for the lyrics overlay
package models

import (
	"sort"
	"time"
)

// Track represents a playable song with a stable provider identity.
type Track struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Album    string        `json:"album,omitempty"`
	Duration time.Duration `json:"duration"`
}

// LyricLine is a single line of a transcript, starting at Start from the beginning of the track.
type LyricLine struct {
	Start time.Duration `json:"start"`
	Text  string        `json:"text"`
}

// Transcript holds the lyric lines for one track sorted by start time.
//
// A transcript with no lines means no lyrics are available.
// Untimed (plain text) lyrics are represented as a single line starting at zero with Synced false.
type Transcript struct {
	Lines        []LyricLine `json:"lines"`
	Synced       bool        `json:"synced"`
	Instrumental bool        `json:"instrumental,omitempty"`
}

// NoLyrics is the "no lyrics available" sentinel.
var NoLyrics = Transcript{}

// Playback is one snapshot of the player state.
type Playback struct {
	Track    *Track        `json:"track,omitempty"` // nil when nothing is playing
	Position time.Duration `json:"position"`
	Playing  bool          `json:"playing"`
	Seq      uint64        `json:"seq"`
}

// NewTranscript builds a synced transcript, stable-sorting lines by start time so ties keep their input order.
func NewTranscript(lines []LyricLine) Transcript {
	if len(lines) == 0 {
		return NoLyrics
	}
	sorted := make([]LyricLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return Transcript{Lines: sorted, Synced: true}
}

// PlainTranscript wraps untimed text as one line active for the whole track.
func PlainTranscript(text string) Transcript {
	if text == "" {
		return NoLyrics
	}
	return Transcript{Lines: []LyricLine{{Start: 0, Text: text}}}
}

// Empty reports whether t is the no-lyrics sentinel.
func (t Transcript) Empty() bool {
	return len(t.Lines) == 0
}

// Len returns the number of lines.
func (t Transcript) Len() int {
	return len(t.Lines)
}

// Line returns the line at i and whether i is in range.
func (t Transcript) Line(i int) (LyricLine, bool) {
	if i < 0 || i >= len(t.Lines) {
		return LyricLine{}, false
	}
	return t.Lines[i], true
}

// IndexAt returns the index of the last line whose start is <= pos, or -1 when pos precedes the first line.
func (t Transcript) IndexAt(pos time.Duration) int {
	// first index with Start > pos
	i := sort.Search(len(t.Lines), func(i int) bool {
		return t.Lines[i].Start > pos
	})
	return i - 1
}

// HasTrack reports whether a track is loaded in the snapshot.
func (p Playback) HasTrack() bool {
	return p.Track != nil
}

// TrackID returns the id of the current track, or "" when nothing is playing.
func (p Playback) TrackID() string {
	if p.Track == nil {
		return ""
	}
	return p.Track.ID
}
