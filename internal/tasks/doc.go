// Package tasks runs the playback poller and lyric fetches in the background and keeps the active lyric line
// in sync with playback.
//
// # Components
//
//  1. [Poller] : queries a [services.Player] on a fixed interval
//     - Sends TrackChanged when the track id changes, always before the PositionTick of the same poll
//     - Starts a fetch for the new track and cancels the previous one
//     - Sends SignalLost once after N consecutive failures and SignalRestored on the next success
//
//  2. [Fetcher] : turns provider results into a [models.Transcript]
//     - Memoizes per track id; writes found lyrics to the optional [LyricsCache]
//     - Instrumental, missing and failed lookups all normalize to [models.NoLyrics]
//
//  3. [SyncEngine] : picks the active line for a position
//     - Forward-only while playback advances; a backward jump beyond [SeekTolerance] rescans by binary search
//     - Emits [Transition] values (Show, Hide, NoLyrics) for the overlay
//
//  4. [Session] : owns the poller context and the event queue
//     - [Session.Stop] cancels and waits for the poller and every fetch goroutine
//
// # Event Queue
//
// All cross-goroutine communication goes through one buffered channel of [Event] values, drained one event
// at a time by the overlay loop, which is the only owner of the [SyncEngine]. Fetch results for a track that
// is no longer current are dropped by [SyncEngine.Load].
package tasks
