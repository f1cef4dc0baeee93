package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/lyrx/internal/models"
)

// Event is one message on the session queue.
//
// Snapshots are carried by value so the consumer never shares state with the producing goroutine.
type Event struct {
	Kind       EventKind
	Playback   models.Playback   // TrackChanged, PositionTick
	At         time.Time         // when Playback was observed
	TrackID    string            // TranscriptReady
	Transcript models.Transcript // TranscriptReady
	Err        error             // TranscriptReady (fetch failed), SignalLost (last poll error)
	Message    string            // Human-readable message for display
}

// Event kind enumeration
type EventKind int

const (
	TrackChanged EventKind = iota
	PositionTick
	TranscriptReady
	SignalLost
	SignalRestored
)

func (k EventKind) String() string {
	switch k {
	case TrackChanged:
		return "track_changed"
	case PositionTick:
		return "position_tick"
	case TranscriptReady:
		return "transcript_ready"
	case SignalLost:
		return "signal_lost"
	case SignalRestored:
		return "signal_restored"
	default:
		return ""
	}
}

func trackChangedEvent(pb models.Playback, at time.Time) Event {
	if pb.Track == nil {
		return Event{Kind: TrackChanged, Playback: pb, At: at, Message: "No music playing."}
	}
	return Event{
		Kind:     TrackChanged,
		Playback: pb,
		At:       at,
		Message:  fmt.Sprintf("%s - %s", pb.Track.Artist, pb.Track.Title),
	}
}

func positionTickEvent(pb models.Playback, at time.Time) Event {
	return Event{Kind: PositionTick, Playback: pb, At: at}
}

func transcriptReadyEvent(trackID string, t models.Transcript, err error) Event {
	ev := Event{Kind: TranscriptReady, TrackID: trackID, Transcript: t, Err: err}
	switch {
	case err != nil:
		ev.Message = "Error finding lyrics."
	case t.Instrumental:
		ev.Message = "Instrumental"
	case t.Empty():
		ev.Message = "No lyrics found."
	}
	return ev
}

func signalLostEvent(failures int, err error) Event {
	return Event{
		Kind:    SignalLost,
		Err:     err,
		Message: fmt.Sprintf("Connection lost (%d failed polls)", failures),
	}
}

func signalRestoredEvent() Event {
	return Event{Kind: SignalRestored, Message: "Connection restored"}
}
