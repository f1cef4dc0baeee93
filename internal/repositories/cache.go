package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/services"
	"github.com/desertthunder/lyrx/internal/shared"
)

// durations further apart than this are treated as different recordings by title lookups
const matchTolerance = 2 * time.Second

// LyricsCacheAdapter implements tasks.LyricsCache using [LyricsRepository].
//
// Rows are keyed by the playback provider and its track id; a title/artist match from another provider is
// used as a fallback when the durations agree.
type LyricsCacheAdapter struct {
	repo     *LyricsRepository
	provider string
}

// NewLyricsCacheAdapter creates a cache for tracks reported by provider (e.g. "spotify").
func NewLyricsCacheAdapter(repo *LyricsRepository, provider string) *LyricsCacheAdapter {
	return &LyricsCacheAdapter{repo: repo, provider: provider}
}

// Get returns cached lyrics for track and records a hit. Returns [shared.ErrCacheMiss] when nothing matches.
func (a *LyricsCacheAdapter) Get(track models.Track) (*services.Lyrics, error) {
	rec, err := a.repo.Get(a.provider, track.ID)
	if errors.Is(err, shared.ErrCacheMiss) {
		rec, err = a.repo.FindByTrack(track.Title, track.Artist)
		if err == nil && !sameLength(rec.Duration, track.Duration) {
			return nil, shared.ErrCacheMiss
		}
	}
	if err != nil {
		return nil, err
	}

	if err := a.repo.Hit(rec.ID); err != nil {
		return nil, fmt.Errorf("failed to record cache hit: %w", err)
	}
	return recordLyrics(rec), nil
}

// Put stores lyrics for track, replacing any previous row for the same track id.
func (a *LyricsCacheAdapter) Put(track models.Track, lyrics *services.Lyrics) error {
	if lyrics == nil {
		return fmt.Errorf("%w: nil lyrics", shared.ErrInvalidInput)
	}

	rec := &LyricsRecord{
		Provider:     a.provider,
		TrackID:      track.ID,
		Title:        track.Title,
		Artist:       track.Artist,
		Album:        track.Album,
		Duration:     track.Duration,
		Source:       lyrics.Provider,
		Synced:       lyrics.Synced,
		Plain:        lyrics.Plain,
		Instrumental: lyrics.Instrumental,
	}
	if rec.Source == "" {
		rec.Source = "unknown"
	}

	if err := a.repo.Upsert(rec); err != nil {
		return fmt.Errorf("failed to cache lyrics: %w", err)
	}
	return nil
}

func recordLyrics(rec *LyricsRecord) *services.Lyrics {
	return &services.Lyrics{
		Provider:     rec.Source,
		Title:        rec.Title,
		Artist:       rec.Artist,
		Album:        rec.Album,
		Duration:     rec.Duration,
		Instrumental: rec.Instrumental,
		Plain:        rec.Plain,
		Synced:       rec.Synced,
	}
}

// sameLength treats an unknown duration on either side as a match.
func sameLength(a, b time.Duration) bool {
	if a <= 0 || b <= 0 {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= matchTolerance
}
