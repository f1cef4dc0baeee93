// package repositories provides the SQLite lyric cache.
//
// The cache stores raw provider text so transcripts can be re-parsed when the parser changes.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lyrx/internal/shared"
)

// LyricsRecord is one cached lyric lookup.
type LyricsRecord struct {
	ID           string
	Provider     string // playback source the track id belongs to (spotify, mpris)
	TrackID      string
	Title        string
	Artist       string
	Album        string
	Duration     time.Duration
	Source       string // lyrics provider (lrclib)
	Synced       string
	Plain        string
	Instrumental bool
	Hits         int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastHitAt    *time.Time
}

// Validate checks the fields required by the lyrics table.
func (r *LyricsRecord) Validate() error {
	switch {
	case r.Provider == "":
		return fmt.Errorf("%w: provider is required", shared.ErrInvalidInput)
	case r.TrackID == "":
		return fmt.Errorf("%w: track id is required", shared.ErrInvalidInput)
	case r.Title == "":
		return fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	case r.Source == "":
		return fmt.Errorf("%w: source is required", shared.ErrInvalidInput)
	}
	return nil
}

const lyricsColumns = `id, provider, track_id, title, artist, album, duration_ms, source, synced, plain, instrumental,
	hits, created_at, updated_at, last_hit_at`

// LyricsRepository persists [LyricsRecord] rows.
type LyricsRepository struct {
	db *sql.DB
}

// NewLyricsRepository creates a new LyricsRepository with the given database connection
func NewLyricsRepository(db *sql.DB) *LyricsRepository {
	return &LyricsRepository{db: db}
}

// Upsert inserts rec, or replaces the lyrics of the existing row for the same provider and track id.
// The row id and hit counter of an existing row are kept.
func (r *LyricsRepository) Upsert(rec *LyricsRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = shared.GenerateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO lyrics (id, provider, track_id, title, artist, album, duration_ms, source, synced, plain, instrumental, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, track_id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			duration_ms = excluded.duration_ms,
			source = excluded.source,
			synced = excluded.synced,
			plain = excluded.plain,
			instrumental = excluded.instrumental,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		rec.ID,
		rec.Provider,
		rec.TrackID,
		rec.Title,
		rec.Artist,
		rec.Album,
		rec.Duration.Milliseconds(),
		rec.Source,
		rec.Synced,
		rec.Plain,
		rec.Instrumental,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert lyrics: %w", err)
	}

	// the conflict path keeps the original id
	stored, err := r.Get(rec.Provider, rec.TrackID)
	if err != nil {
		return err
	}
	rec.ID = stored.ID
	rec.CreatedAt = stored.CreatedAt
	rec.Hits = stored.Hits
	return nil
}

// Get retrieves the row for a provider track id. Returns [shared.ErrCacheMiss] when there is none.
func (r *LyricsRepository) Get(provider, trackID string) (*LyricsRecord, error) {
	query := `SELECT ` + lyricsColumns + ` FROM lyrics WHERE provider = ? AND track_id = ?`
	return r.scanOne(r.db.QueryRow(query, provider, trackID))
}

// GetByID retrieves a row by its id.
func (r *LyricsRepository) GetByID(id string) (*LyricsRecord, error) {
	query := `SELECT ` + lyricsColumns + ` FROM lyrics WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// FindByTrack looks up a row by title and artist, case-insensitively, across providers.
// The most recently updated row wins.
func (r *LyricsRepository) FindByTrack(title, artist string) (*LyricsRecord, error) {
	query := `
		SELECT ` + lyricsColumns + `
		FROM lyrics
		WHERE title = ? COLLATE NOCASE AND artist = ? COLLATE NOCASE
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(query, title, artist))
}

// Hit increments the hit counter of a row.
func (r *LyricsRepository) Hit(id string) error {
	result, err := r.db.Exec(`UPDATE lyrics SET hits = hits + 1, last_hit_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record hit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: lyrics %s", shared.ErrCacheMiss, id)
	}
	return nil
}

// List retrieves all rows, most used first.
func (r *LyricsRepository) List() ([]*LyricsRecord, error) {
	query := `SELECT ` + lyricsColumns + ` FROM lyrics ORDER BY hits DESC, updated_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lyrics: %w", err)
	}
	defer rows.Close()

	var records []*LyricsRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Count returns the number of cached rows.
func (r *LyricsRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM lyrics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count lyrics: %w", err)
	}
	return n, nil
}

// Delete removes a row by id.
func (r *LyricsRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM lyrics WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lyrics: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: lyrics %s", shared.ErrCacheMiss, id)
	}
	return nil
}

// Clear removes every row and returns how many were deleted.
func (r *LyricsRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM lyrics`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear lyrics: %w", err)
	}
	return result.RowsAffected()
}

// scanOne scans a single [sql.Row] into a [LyricsRecord]
func (r *LyricsRepository) scanOne(row *sql.Row) (*LyricsRecord, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrCacheMiss
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans from either [sql.Row] or [sql.Rows].
func scanRecord(s scanner) (*LyricsRecord, error) {
	var (
		rec        LyricsRecord
		durationMS int64
		lastHitAt  sql.NullTime
	)

	err := s.Scan(
		&rec.ID, &rec.Provider, &rec.TrackID, &rec.Title, &rec.Artist, &rec.Album, &durationMS, &rec.Source,
		&rec.Synced, &rec.Plain, &rec.Instrumental, &rec.Hits, &rec.CreatedAt, &rec.UpdatedAt, &lastHitAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan lyrics: %w", err)
	}

	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if lastHitAt.Valid {
		rec.LastHitAt = &lastHitAt.Time
	}
	return &rec, nil
}
