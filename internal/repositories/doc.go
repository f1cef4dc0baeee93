// Package repositories implements SQLite persistence for the lyric cache.
//
// Key Implementations:
//   - [LyricsRepository] : CRUD over the lyrics table, unique per (provider, track_id), with hit counting
//   - [LyricsCacheAdapter] : the fetcher's persistent cache, converting rows to and from [services.Lyrics]
//
// Rows hold the raw provider text (LRC and plain) rather than parsed lines, so a cached track is normalized the
// same way as a fresh lookup. Row ids are UUIDs from [shared.GenerateID]. The schema lives in the embedded
// migrations of the shared package.
package repositories
