// Package ui implements the lyrics overlay as a bubbletea program.
//
// The (view) [Model] drains the session queue one event per command, feeds playback snapshots and transcripts
// to its [tasks.SyncEngine] and renders the resulting transitions:
//   - the active line fades in from the background color and out again, blended with go-colorful
//   - the upcoming line sits above it in a dimmer style
//   - the block is docked at the bottom, top or center of the terminal and re-placed on every new line
//
// Between polls the position is extrapolated from the last snapshot every refresh interval, so lines change
// on time even with a slow poll.
//
// Keys: +/- shift lyrics by 100ms, 0 resets the offset, d moves the block, ? toggles help, q quits.
package ui
