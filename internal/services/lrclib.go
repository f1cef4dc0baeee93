// LRCLIB implementation of [LyricsProvider]
//
// API reference: https://lrclib.net/docs
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/lyrx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	lrclibBaseURL   = "https://lrclib.net/api"
	lrclibUserAgent = "lyrx (https://github.com/desertthunder/lyrx)"

	// search results further than this from the track duration are only used when nothing closer exists
	durationTolerance = 2 * time.Second
)

// LRCLIBRecord is a lyrics record as returned by /get and /search.
type LRCLIBRecord struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"` // seconds
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Lyrics converts the record to a provider-neutral [Lyrics].
func (r LRCLIBRecord) Lyrics() *Lyrics {
	return &Lyrics{
		ID:           r.ID,
		Provider:     "lrclib",
		Title:        r.TrackName,
		Artist:       r.ArtistName,
		Album:        r.AlbumName,
		Duration:     time.Duration(r.Duration * float64(time.Second)),
		Instrumental: r.Instrumental,
		Plain:        r.PlainLyrics,
		Synced:       r.SyncedLyrics,
	}
}

func (r LRCLIBRecord) empty() bool {
	return !r.Instrumental && r.PlainLyrics == "" && r.SyncedLyrics == ""
}

// LRCLIBProvider implements [LyricsProvider] for lrclib.net.
type LRCLIBProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// LRCLIBOpts configures an [LRCLIBProvider]. Zero values use the public instance defaults.
type LRCLIBOpts struct {
	BaseURL    string
	UserAgent  string
	RateLimit  float64 // requests per second, <= 0 disables limiting
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewLRCLIBProvider creates a new LRCLIB provider.
func NewLRCLIBProvider(opts LRCLIBOpts) *LRCLIBProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = lrclibBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = lrclibUserAgent
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &LRCLIBProvider{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (p *LRCLIBProvider) Name() string {
	return "LRCLIB"
}

// Lookup tries an exact /get match first and falls back to /search.
func (p *LRCLIBProvider) Lookup(ctx context.Context, query LyricsQuery) (*Lyrics, error) {
	if query.Title == "" {
		return nil, fmt.Errorf("%w: track title is required", shared.ErrMissingArgument)
	}

	record, err := p.Get(ctx, query)
	if err == nil && !record.empty() {
		return record.Lyrics(), nil
	}
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	results, err := p.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	best, ok := bestMatch(results, query.Duration)
	if !ok {
		return nil, fmt.Errorf("%w: %s - %s", shared.ErrLyricsNotFound, query.Artist, query.Title)
	}
	return best.Lyrics(), nil
}

// Get performs an exact signature lookup on /get.
func (p *LRCLIBProvider) Get(ctx context.Context, query LyricsQuery) (*LRCLIBRecord, error) {
	params := url.Values{}
	params.Set("artist_name", query.Artist)
	params.Set("track_name", query.Title)
	if query.Album != "" {
		params.Set("album_name", query.Album)
	}
	if query.Duration > 0 {
		params.Set("duration", strconv.Itoa(int(math.Round(query.Duration.Seconds()))))
	}

	var record LRCLIBRecord
	if err := p.doRequest(ctx, "/get", params, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Search queries /search by title and artist.
func (p *LRCLIBProvider) Search(ctx context.Context, query LyricsQuery) ([]LRCLIBRecord, error) {
	params := url.Values{}
	params.Set("track_name", query.Title)
	if query.Artist != "" {
		params.Set("artist_name", query.Artist)
	}

	var records []LRCLIBRecord
	if err := p.doRequest(ctx, "/search", params, &records); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

// doRequest waits on the rate limiter and performs a GET, decoding JSON into result.
func (p *LRCLIBProvider) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrLyricsNotFound, endpoint)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("%w: lrclib status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: lrclib status %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode lrclib response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// bestMatch prefers synced records within [durationTolerance] of duration, then any synced record,
// then any record with lyrics. Ties keep the provider's ranking.
func bestMatch(records []LRCLIBRecord, duration time.Duration) (LRCLIBRecord, bool) {
	best, bestScore := LRCLIBRecord{}, -1
	for _, r := range records {
		if r.empty() {
			continue
		}

		score := 0
		if r.SyncedLyrics != "" {
			score += 2
		}
		if duration <= 0 || withinTolerance(r.Duration, duration) {
			score += 3
		}
		if score > bestScore {
			best, bestScore = r, score
		}
	}
	return best, bestScore >= 0
}

func withinTolerance(seconds float64, d time.Duration) bool {
	diff := time.Duration(seconds*float64(time.Second)) - d
	if diff < 0 {
		diff = -diff
	}
	return diff <= durationTolerance
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrLyricsNotFound)
}
