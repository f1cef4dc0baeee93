// Spotify Web API implementation of [Player]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyScopes are the scopes needed to read the playback state.
var SpotifyScopes = []string{"user-read-playback-state", "user-read-currently-playing"}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
	IsLocal    bool            `json:"is_local"`
}

// SpotifyCurrentlyPlaying is the response of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	Timestamp            int64         `json:"timestamp"`
	ProgressMS           int           `json:"progress_ms"`
	IsPlaying            bool          `json:"is_playing"`
	CurrentlyPlayingType string        `json:"currently_playing_type"` // track, episode, ad, unknown
	Item                 *SpotifyTrack `json:"item"`
}

// Track converts a Spotify track to [models.Track], using the first artist.
func (t SpotifyTrack) Track() models.Track {
	track := models.Track{
		ID:       t.ID,
		Title:    t.Name,
		Album:    t.Album.Name,
		Duration: time.Duration(t.DurationMS) * time.Millisecond,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	// local files have no id
	if track.ID == "" {
		track.ID = t.URI
	}
	if track.ID == "" {
		track.ID = shared.NormalizeTrackKey(track.Title, track.Artist)
	}
	return track
}

// SpotifyPlayer implements [Player] and [OAuthService] for the Spotify Web API.
//
// An empty client secret selects the PKCE flow.
type SpotifyPlayer struct {
	config     *oauth2.Config
	verifier   string
	baseURL    string
	base       *http.Client
	httpClient *http.Client
	onRefresh  func(*oauth2.Token)
	mu         sync.RWMutex
}

// SpotifyOption configures a [SpotifyPlayer].
type SpotifyOption func(*SpotifyPlayer)

// WithSpotifyBaseURL overrides the Web API base URL.
func WithSpotifyBaseURL(u string) SpotifyOption {
	return func(s *SpotifyPlayer) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithSpotifyHTTPClient sets the client used for token and API requests.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyPlayer) { s.base = c }
}

// WithTokenRefresh registers fn to be called whenever the token source hands out a new token.
func WithTokenRefresh(fn func(*oauth2.Token)) SpotifyOption {
	return func(s *SpotifyPlayer) { s.onRefresh = fn }
}

// NewSpotifyPlayer creates a new Spotify player with the given OAuth2 credentials.
func NewSpotifyPlayer(credentials map[string]string, opts ...SpotifyOption) (*SpotifyPlayer, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	s := &SpotifyPlayer{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: credentials["client_secret"],
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		baseURL: spotifyBaseURL,
		base:    http.DefaultClient,
	}

	if s.config.ClientSecret == "" {
		s.verifier = oauth2.GenerateVerifier()
		s.config.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyPlayer) Name() string {
	return "Spotify"
}

// PKCE reports whether the player uses the PKCE flow.
func (s *SpotifyPlayer) PKCE() bool {
	return s.verifier != ""
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyPlayer) GetAuthURL(state string) string {
	if s.PKCE() {
		return s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(s.verifier))
	}
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the oauth2 configuration.
func (s *SpotifyPlayer) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// ExchangeOptions returns the PKCE verifier option when the PKCE flow is used.
func (s *SpotifyPlayer) ExchangeOptions() []oauth2.AuthCodeOption {
	if !s.PKCE() {
		return nil
	}
	return []oauth2.AuthCodeOption{oauth2.VerifierOption(s.verifier)}
}

// OAuthenticate authorizes the player with token. Expired tokens are refreshed on first use.
func (s *SpotifyPlayer) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: run `lyrx spotify auth` first", shared.ErrNotAuthenticated)
	}

	// the token source outlives ctx, so it only borrows the HTTP client
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, s.base)
	src := &notifyTokenSource{
		base:   s.config.TokenSource(tokenCtx, token),
		last:   token.AccessToken,
		notify: s.onRefresh,
	}

	s.mu.Lock()
	s.httpClient = oauth2.NewClient(tokenCtx, src)
	s.mu.Unlock()
	return nil
}

// Authenticated reports whether OAuthenticate has been called.
func (s *SpotifyPlayer) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.httpClient != nil
}

// doRequest performs an authenticated GET request to the Spotify API.
//
// It returns the HTTP status so callers can handle 204 No Content.
func (s *SpotifyPlayer) doRequest(ctx context.Context, endpoint string, result any) (int, error) {
	s.mu.RLock()
	client := s.httpClient
	s.mu.RUnlock()
	if client == nil {
		return 0, fmt.Errorf("%w: call OAuthenticate first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return 0, fmt.Errorf("%w: token refresh failed: %v", shared.ErrTokenExpired, err)
		}
		return 0, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("%w: spotify API status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return resp.StatusCode, fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return resp.StatusCode, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyPlayer) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentlyPlaying implements [Player].
//
// 204 No Content, a null item and non-track items (ads, episodes) all report nothing playing.
func (s *SpotifyPlayer) CurrentlyPlaying(ctx context.Context) (*models.Playback, error) {
	var cp SpotifyCurrentlyPlaying
	status, err := s.doRequest(ctx, "/me/player/currently-playing", &cp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || cp.Item == nil || (cp.CurrentlyPlayingType != "" && cp.CurrentlyPlayingType != "track") {
		return &models.Playback{}, nil
	}

	track := cp.Item.Track()
	return &models.Playback{
		Track:    &track,
		Position: time.Duration(cp.ProgressMS) * time.Millisecond,
		Playing:  cp.IsPlaying,
	}, nil
}

// notifyTokenSource reports every new access token handed out by base.
type notifyTokenSource struct {
	base   oauth2.TokenSource
	notify func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (n *notifyTokenSource) Token() (*oauth2.Token, error) {
	token, err := n.base.Token()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	changed := token.AccessToken != n.last
	n.last = token.AccessToken
	n.mu.Unlock()

	if changed && n.notify != nil {
		n.notify(token)
	}
	return token, nil
}
