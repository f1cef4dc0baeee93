package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lyrx/internal/repositories"
	"github.com/desertthunder/lyrx/internal/services"
	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/desertthunder/lyrx/internal/tasks"
	"github.com/desertthunder/lyrx/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultOverlayLog = "./tmp/lyrx-overlay.log"

// Overlay runs the synchronized lyrics overlay until the user quits.
//
// The session polls the player and fetches lyrics in the background; the UI consumes its event queue.
// Edits to the config file are applied live.
func (r *Runner) Overlay(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.overlayConfig(cmd)
	if err != nil {
		return err
	}

	logPath := cfg.LogPath
	if logPath == "" {
		logPath = defaultOverlayLog
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	player, closePlayer, err := r.overlayPlayer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePlayer()

	var cache tasks.LyricsCache
	if repo, err := r.lyricsRepository(); err != nil {
		r.logger.Warn("lyrics cache unavailable, continuing without it", "error", err)
	} else {
		cache = repositories.NewLyricsCacheAdapter(repo, cfg.Source)
	}

	fetcher := tasks.NewFetcher(r.lyricsProvider(), cache, shared.WithLogger(r.logger, "component", "fetcher"))
	session := tasks.NewSession(player, fetcher, tasks.PollerOpts{
		Interval:        cfg.PollInterval.Duration,
		SignalThreshold: cfg.SignalThreshold,
		Logger:          shared.WithLogger(r.logger, "component", "poller"),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(session.Events(), cfg)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	r.logger.Info("starting overlay", "source", player.Name(), "dock", cfg.Dock, "poll", cfg.PollInterval)
	session.Start(ctx)
	defer session.Stop()

	var wg sync.WaitGroup
	if _, err := os.Stat(r.configPath); r.configPath != "" && err == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := shared.WatchConfig(ctx, r.configPath, r.logger, r.overlayReloader(cmd, cfg, p.Send))
			if err != nil {
				r.logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}
	defer wg.Wait()
	defer cancel()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running overlay: %w", err)
	}

	r.logger.Info("overlay stopped")
	return nil
}

// overlayConfig returns the overlay section of the config with command line overrides applied.
func (r *Runner) overlayConfig(cmd *cli.Command) (shared.OverlayConfig, error) {
	return overlayOverrides(cmd, r.config.Overlay)
}

// overlayOverrides applies the --dock, --source, --player and --log flags to cfg.
func overlayOverrides(cmd *cli.Command, cfg shared.OverlayConfig) (shared.OverlayConfig, error) {
	if dock := cmd.String("dock"); dock != "" {
		if _, err := ui.ParseDock(dock); err != nil {
			return cfg, err
		}
		cfg.Dock = dock
	}

	switch source := cmd.String("source"); source {
	case "":
	case "spotify", "mpris":
		cfg.Source = source
	default:
		return cfg, fmt.Errorf("%w: unknown source %q (want spotify or mpris)", shared.ErrInvalidArgument, source)
	}

	if player := cmd.String("player"); player != "" {
		cfg.Player = player
	}
	if path := cmd.String("log"); path != "" {
		cfg.LogPath = path
	}
	if cfg.Source == "" {
		cfg.Source = "spotify"
	}
	return cfg, nil
}

// overlayReloader returns the config watcher callback. Command line overrides are re-applied to every reload,
// and only an [overlay] section that differs from the last one is forwarded, so token refreshes written to the
// same file do not reach the UI.
func (r *Runner) overlayReloader(cmd *cli.Command, last shared.OverlayConfig, send func(tea.Msg)) func(*shared.Config) {
	return func(c *shared.Config) {
		cfg, err := overlayOverrides(cmd, c.Overlay)
		if err != nil {
			r.logger.Warn("ignoring overlay config change", "error", err)
			return
		}
		if cfg == last {
			r.logger.Debug("config changed outside [overlay], not reloading", "path", r.configPath)
			return
		}
		last = cfg
		r.logger.Info("overlay config reloaded", "path", r.configPath, "dock", cfg.Dock, "offset", cfg.Offset)
		send(ui.ConfigReloaded(cfg))
	}
}

// overlayPlayer builds the playback source named by cfg and a function that releases it.
func (r *Runner) overlayPlayer(ctx context.Context, cfg shared.OverlayConfig) (services.Player, func(), error) {
	noop := func() {}

	if r.player != nil {
		return r.player, noop, nil
	}

	if cfg.Source == "mpris" {
		player, err := services.NewMPRISPlayer(cfg.Player)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to MPRIS: %w", err)
		}
		return player, func() {
			if err := player.Close(); err != nil {
				r.logger.Warn("failed to close D-Bus connection", "error", err)
			}
		}, nil
	}

	player, err := r.spotifyPlayer(ctx)
	if err != nil {
		return nil, noop, err
	}

	if sp, ok := player.(*services.SpotifyPlayer); ok {
		user, err := sp.UserProfile(ctx)
		switch {
		case isAuthError(err):
			return nil, noop, fmt.Errorf("%w: run `lyrx spotify auth` to sign in again", shared.ErrNotAuthenticated)
		case err != nil:
			r.logger.Warn("could not verify Spotify session", "error", err)
		default:
			r.logger.Info("signed in to Spotify", "user", user.DisplayName)
		}
	}
	return player, noop, nil
}

// isAuthError reports whether err means the user has to sign in again.
func isAuthError(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrTokenExpired)
}
