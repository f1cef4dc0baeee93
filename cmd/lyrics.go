package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lyrx/internal/formatter"
	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/repositories"
	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/desertthunder/lyrx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// cliProvider keys cache rows for tracks looked up by hand rather than reported by a player.
const cliProvider = "cli"

// lyricsResult is the JSON shape of `lyrics get --json`.
type lyricsResult struct {
	Track      models.Track      `json:"track"`
	Transcript models.Transcript `json:"transcript"`
}

// LyricsGet looks up lyrics for a track by title and artist and prints them.
//
// Lookups go through the same fetcher the overlay uses, so results land in (and are served from) the lyrics cache.
func (r *Runner) LyricsGet(ctx context.Context, cmd *cli.Command) error {
	title := cmd.String("title")
	if title == "" {
		return fmt.Errorf("%w: --title", shared.ErrMissingArgument)
	}
	artist := cmd.String("artist")

	track := models.Track{
		ID:       shared.NormalizeTrackKey(title, artist),
		Title:    title,
		Artist:   artist,
		Album:    cmd.String("album"),
		Duration: cmd.Duration("duration"),
	}

	var cache tasks.LyricsCache
	if !cmd.Bool("no-cache") {
		repo, err := r.lyricsRepository()
		if err != nil {
			r.logger.Warn("lyrics cache unavailable", "error", err)
		} else {
			cache = repositories.NewLyricsCacheAdapter(repo, cliProvider)
		}
	}

	r.logger.Debug("looking up lyrics", "title", title, "artist", artist)

	transcript, err := tasks.NewFetcher(r.lyricsProvider(), cache, r.logger).Fetch(ctx, track)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(lyricsResult{Track: track, Transcript: transcript}, cmd.Bool("pretty"))
	}

	if transcript.Instrumental {
		return r.writePlain("♪ Instrumental\n")
	}
	if transcript.Empty() {
		return fmt.Errorf("%w: %s", shared.ErrLyricsNotFound, describe(track))
	}

	format := formatter.Format(cmd.String("format"))
	if cmd.Bool("lrc") {
		format = formatter.FormatLRC
	}

	out, err := formatter.Render(format, track, transcript)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if !transcript.Synced && format == formatter.FormatLRC {
		r.logger.Warn("only plain lyrics available, timestamps omitted")
	}
	return nil
}

func describe(t models.Track) string {
	if t.Artist == "" {
		return fmt.Sprintf("%q", t.Title)
	}
	return fmt.Sprintf("%q by %s", t.Title, t.Artist)
}
