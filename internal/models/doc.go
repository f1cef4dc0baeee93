// Package models defines the value types passed between the playback poller, lyric fetcher, sync engine and overlay.
//
//   - [Track] : identity and metadata of the song being played
//   - [LyricLine] : one timed line of a transcript
//   - [Transcript] : ordered lines for one track, or the [NoLyrics] sentinel
//   - [Playback] : one poll snapshot, stamped with a sequence number
//
// Values are treated as immutable snapshots once produced; goroutines hand them off by value.
package models
