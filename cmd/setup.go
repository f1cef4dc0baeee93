package main

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the config template to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if r.configPath == "" {
		return fmt.Errorf("%w: no config path", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Config written to %s\n\n", r.configPath)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Set credentials.spotify.client_id (leave client_secret empty for PKCE)\n")
	r.writePlain("2. Register %s as a redirect URI for your Spotify app\n", shared.DefaultConfig().Credentials.Spotify.RedirectURI)
	r.writePlain("3. Run 'lyrx spotify auth', then 'lyrx overlay'\n")
	return nil
}

// SetupDatabase initializes the lyrics cache and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path

	if cmd.Bool("status") {
		db, err := shared.NewDatabase(path)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer db.Close()
		return r.printMigrationStatus(db)
	}

	r.logger.Info("initializing database", "path", path)
	repo, err := r.lyricsRepository()
	if err != nil {
		return err
	}

	count, err := repo.Count()
	if err != nil {
		return fmt.Errorf("failed to read lyrics cache: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("✓ Lyrics cache ready at %s (%d entries)\n", path, count)
	return nil
}

func (r *Runner) printMigrationStatus(db *sql.DB) error {
	status, err := shared.MigrationStatus(db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	migrations := make([]shared.Migration, 0, len(status))
	for m := range status {
		migrations = append(migrations, m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })

	r.writePlainHeader("Migrations")
	for _, m := range migrations {
		mark := " "
		if status[m] {
			mark = "✓"
		}
		r.writePlain("[%s] %04d %s\n", mark, m.Version, m.Name)
	}
	return nil
}
