package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyrx/internal/formatter"
	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/services"
	"github.com/desertthunder/lyrx/internal/shared"
)

// LyricsCache persists provider results across runs (repositories.LyricsCacheAdapter).
//
// Get returns [shared.ErrCacheMiss] when nothing is stored for the track.
type LyricsCache interface {
	Get(track models.Track) (*services.Lyrics, error)
	Put(track models.Track, lyrics *services.Lyrics) error
}

// TranscriptFetcher retrieves the transcript for a track.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, track models.Track) (models.Transcript, error)
}

// Fetcher implements [TranscriptFetcher] on top of a [services.LyricsProvider].
//
// Results are memoized per track id for the lifetime of the Fetcher, so a looping track is looked up once.
// Found lyrics are also written to the optional persistent cache. Provider errors are never cached.
type Fetcher struct {
	provider services.LyricsProvider
	cache    LyricsCache
	logger   *log.Logger

	mu     sync.Mutex
	memory map[string]models.Transcript
}

// NewFetcher creates a Fetcher. cache may be nil.
func NewFetcher(provider services.LyricsProvider, cache LyricsCache, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Fetcher{
		provider: provider,
		cache:    cache,
		logger:   logger,
		memory:   make(map[string]models.Transcript),
	}
}

// Fetch returns the transcript for track.
//
// Instrumental tracks, misses and provider errors all yield [models.NoLyrics]; the error is returned alongside
// so callers can tell a failure from a miss.
func (f *Fetcher) Fetch(ctx context.Context, track models.Track) (models.Transcript, error) {
	if t, ok := f.remembered(track.ID); ok {
		return t, nil
	}

	if f.cache != nil {
		lyrics, err := f.cache.Get(track)
		switch {
		case err == nil:
			t, _ := Normalize(lyrics)
			f.remember(track.ID, t)
			f.logger.Debug("lyrics cache hit", "track", track.ID)
			return t, nil
		case !errors.Is(err, shared.ErrCacheMiss):
			f.logger.Warn("lyrics cache read failed", "track", track.ID, "error", err)
		}
	}

	if f.provider == nil {
		return models.NoLyrics, fmt.Errorf("%w: no lyrics provider configured", shared.ErrServiceUnavailable)
	}

	lyrics, err := f.provider.Lookup(ctx, services.QueryFor(track))
	if errors.Is(err, shared.ErrLyricsNotFound) {
		f.remember(track.ID, models.NoLyrics)
		return models.NoLyrics, nil
	}
	if err != nil {
		return models.NoLyrics, fmt.Errorf("lyrics lookup for %q failed: %w", track.Title, err)
	}

	t, dropped := Normalize(lyrics)
	if dropped > 0 {
		f.logger.Warn("dropped malformed lyric lines", "track", track.ID, "dropped", dropped, "kept", t.Len())
	}
	f.remember(track.ID, t)

	if f.cache != nil {
		if err := f.cache.Put(track, lyrics); err != nil {
			f.logger.Warn("lyrics cache write failed", "track", track.ID, "error", err)
		}
	}
	return t, nil
}

// Forget drops the memoized transcript for a track id.
func (f *Fetcher) Forget(trackID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.memory, trackID)
}

func (f *Fetcher) remembered(trackID string) (models.Transcript, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.memory[trackID]
	return t, ok
}

func (f *Fetcher) remember(trackID string, t models.Transcript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memory[trackID] = t
}

// Normalize converts provider lyrics into a transcript and reports how many LRC lines were dropped.
//
// Synced text wins over plain text. Synced text with no parseable line is [models.NoLyrics].
// Plain text becomes one untimed line for the whole track.
func Normalize(lyrics *services.Lyrics) (models.Transcript, int) {
	switch {
	case lyrics == nil:
		return models.NoLyrics, 0
	case lyrics.Instrumental:
		return models.Transcript{Instrumental: true}, 0
	case strings.TrimSpace(lyrics.Synced) != "":
		return formatter.ParseLRC(lyrics.Synced)
	default:
		return models.PlainTranscript(strings.TrimSpace(lyrics.Plain)), 0
	}
}
