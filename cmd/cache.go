package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/urfave/cli/v3"
)

// cacheEntry is the JSON shape of one cached lyrics row.
type cacheEntry struct {
	ID           string        `json:"id"`
	Provider     string        `json:"provider"`
	TrackID      string        `json:"track_id"`
	Title        string        `json:"title"`
	Artist       string        `json:"artist"`
	Album        string        `json:"album,omitempty"`
	Duration     time.Duration `json:"duration"`
	Synced       bool          `json:"synced"`
	Instrumental bool          `json:"instrumental"`
	Hits         int           `json:"hits"`
	UpdatedAt    time.Time     `json:"updated_at"`
	LastHitAt    *time.Time    `json:"last_hit_at,omitempty"`
}

// CacheList prints the cached lyrics, most used first.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.lyricsRepository()
	if err != nil {
		return err
	}

	records, err := repo.List()
	if err != nil {
		return fmt.Errorf("failed to list cached lyrics: %w", err)
	}

	if cmd.Bool("json") {
		entries := make([]cacheEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, cacheEntry{
				ID:           rec.ID,
				Provider:     rec.Provider,
				TrackID:      rec.TrackID,
				Title:        rec.Title,
				Artist:       rec.Artist,
				Album:        rec.Album,
				Duration:     rec.Duration,
				Synced:       rec.Synced != "",
				Instrumental: rec.Instrumental,
				Hits:         rec.Hits,
				UpdatedAt:    rec.UpdatedAt,
				LastHitAt:    rec.LastHitAt,
			})
		}
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(records) == 0 {
		return r.writePlain("Lyrics cache is empty\n")
	}

	r.writePlainHeader(fmt.Sprintf("Cached Lyrics (%d)", len(records)))
	for _, rec := range records {
		kind := "plain"
		switch {
		case rec.Instrumental:
			kind = "instrumental"
		case rec.Synced != "":
			kind = "synced"
		}
		r.writePlain("%s  %s - %s [%s] %s, %d hits\n",
			rec.ID, rec.Artist, rec.Title, shared.FormatDuration(rec.Duration), kind, rec.Hits)
	}
	return nil
}

// CacheRemove deletes one cached entry by id.
func (r *Runner) CacheRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: cache entry id", shared.ErrMissingArgument)
	}

	repo, err := r.lyricsRepository()
	if err != nil {
		return err
	}

	if err := repo.Delete(id); err != nil {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}

	r.logger.Debug("removed cache entry", "id", id)
	return r.writePlain("✓ Removed %s\n", id)
}

// CacheClear deletes every cached entry.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.lyricsRepository()
	if err != nil {
		return err
	}

	n, err := repo.Clear()
	if err != nil {
		return fmt.Errorf("failed to clear lyrics cache: %w", err)
	}
	return r.writePlain("✓ Cleared %d cached entries\n", n)
}
