// package services defines the playback sources and lyrics providers used by the overlay
//
// Spotify (Web API), MPRIS (D-Bus), LRCLIB
package services

import (
	"context"
	"time"

	"github.com/desertthunder/lyrx/internal/models"
	"golang.org/x/oauth2"
)

// Player defines a playback source that can report what is currently playing.
type Player interface {
	// CurrentlyPlaying returns a snapshot of the player state.
	// A snapshot with a nil Track means nothing is playing; that is not an error.
	CurrentlyPlaying(ctx context.Context) (*models.Playback, error)

	// Name returns the name of the source (e.g., "Spotify", "MPRIS")
	Name() string
}

// LyricsProvider looks up lyrics for a track.
type LyricsProvider interface {
	// Lookup returns the best match for query.
	// Returns [shared.ErrLyricsNotFound] when the provider has nothing for the track.
	Lookup(ctx context.Context, query LyricsQuery) (*Lyrics, error)

	// Name returns the name of the provider (e.g., "LRCLIB")
	Name() string
}

// OAuthService is implemented by players that authenticate with an OAuth2 authorization code flow.
type OAuthService interface {
	// GetAuthURL returns the URL the user opens to grant access.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the oauth2 configuration used for the code exchange.
	GetOAuthConfig() *oauth2.Config

	// ExchangeOptions returns extra options for the code exchange (the PKCE verifier).
	ExchangeOptions() []oauth2.AuthCodeOption

	// OAuthenticate authorizes the service with an existing token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// LyricsQuery identifies the track to look up.
type LyricsQuery struct {
	Artist   string
	Title    string
	Album    string
	Duration time.Duration // zero when unknown
}

// Lyrics is a provider result before normalization.
type Lyrics struct {
	ID           int           `json:"id"`
	Provider     string        `json:"provider"`
	Title        string        `json:"title"`
	Artist       string        `json:"artist"`
	Album        string        `json:"album"`
	Duration     time.Duration `json:"duration"`
	Instrumental bool          `json:"instrumental"`
	Plain        string        `json:"plain,omitempty"`
	Synced       string        `json:"synced,omitempty"` // LRC text
}

// QueryFor builds a [LyricsQuery] from a track.
func QueryFor(track models.Track) LyricsQuery {
	return LyricsQuery{
		Artist:   track.Artist,
		Title:    track.Title,
		Album:    track.Album,
		Duration: track.Duration,
	}
}
