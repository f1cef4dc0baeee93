package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/lyrx/internal/shared"
	"golang.org/x/oauth2"
)

func newTestPlayer(t *testing.T, handler http.HandlerFunc, opts ...SpotifyOption) (*SpotifyPlayer, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	credentials := map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	}
	opts = append([]SpotifyOption{WithSpotifyBaseURL(server.URL)}, opts...)
	srv, err := NewSpotifyPlayer(credentials, opts...)
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	srv.config.Endpoint.TokenURL = server.URL + "/token"
	return srv, server
}

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "test_access_token", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
}

func TestSpotifyPlayer(t *testing.T) {
	t.Run("NewSpotifyPlayer", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyPlayer(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:9999/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.PKCE() {
				t.Error("expected standard flow when a secret is configured")
			}
			if srv.config.RedirectURL != "http://127.0.0.1:9999/callback" {
				t.Errorf("unexpected redirect URI %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyPlayer(map[string]string{"client_secret": "secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Without Secret Uses PKCE", func(t *testing.T) {
			srv, err := NewSpotifyPlayer(map[string]string{"client_id": "test_client_id"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !srv.PKCE() {
				t.Fatal("expected PKCE flow")
			}
			if srv.config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
			if len(srv.ExchangeOptions()) != 1 {
				t.Error("expected verifier exchange option")
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		t.Run("Standard", func(t *testing.T) {
			srv, _ := NewSpotifyPlayer(map[string]string{"client_id": "test_client_id", "client_secret": "s"})
			authURL := srv.GetAuthURL("test_state")

			if !strings.Contains(authURL, "accounts.spotify.com") {
				t.Error("auth URL should contain Spotify domain")
			}
			if !strings.Contains(authURL, "test_client_id") {
				t.Error("auth URL should contain client_id")
			}
			if !strings.Contains(authURL, "test_state") {
				t.Error("auth URL should contain state")
			}
			if strings.Contains(authURL, "code_challenge") {
				t.Error("standard flow should not send a code challenge")
			}
		})

		t.Run("PKCE", func(t *testing.T) {
			srv, _ := NewSpotifyPlayer(map[string]string{"client_id": "test_client_id"})
			u, err := url.Parse(srv.GetAuthURL("test_state"))
			if err != nil {
				t.Fatalf("invalid auth URL: %v", err)
			}

			q := u.Query()
			if q.Get("code_challenge_method") != "S256" {
				t.Errorf("expected S256 challenge, got %q", q.Get("code_challenge_method"))
			}
			if q.Get("code_challenge") == "" {
				t.Error("expected code_challenge")
			}
			if !strings.Contains(q.Get("scope"), "user-read-currently-playing") {
				t.Errorf("expected playback scopes, got %q", q.Get("scope"))
			}
		})
	})

	t.Run("OAuthenticate", func(t *testing.T) {
		srv, _ := NewSpotifyPlayer(map[string]string{"client_id": "test_client_id"})

		if err := srv.OAuthenticate(context.Background(), nil); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated for nil token, got %v", err)
		}
		if srv.Authenticated() {
			t.Error("expected player to stay unauthenticated")
		}

		if err := srv.OAuthenticate(context.Background(), validToken()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !srv.Authenticated() {
			t.Error("expected player to be authenticated")
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, _ := NewSpotifyPlayer(map[string]string{"client_id": "test_client_id"})
		if _, err := srv.CurrentlyPlaying(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("CurrentlyPlaying", func(t *testing.T) {
		srv, _ := newTestPlayer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/player/currently-playing" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer test_access_token" {
				t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"progress_ms":            61500,
				"is_playing":             true,
				"currently_playing_type": "track",
				"item": map[string]any{
					"id":          "track123",
					"name":        "Song One",
					"duration_ms": 200000,
					"artists":     []map[string]any{{"name": "Artist One"}, {"name": "Guest"}},
					"album":       map[string]any{"name": "Album One"},
				},
			})
		})
		if err := srv.OAuthenticate(context.Background(), validToken()); err != nil {
			t.Fatalf("OAuthenticate failed: %v", err)
		}

		pb, err := srv.CurrentlyPlaying(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !pb.HasTrack() {
			t.Fatal("expected a track")
		}
		if pb.Track.ID != "track123" || pb.Track.Title != "Song One" {
			t.Errorf("unexpected track %+v", pb.Track)
		}
		if pb.Track.Artist != "Artist One" {
			t.Errorf("expected first artist, got %s", pb.Track.Artist)
		}
		if pb.Track.Duration != 200*time.Second {
			t.Errorf("unexpected duration %v", pb.Track.Duration)
		}
		if pb.Position != 61500*time.Millisecond || !pb.Playing {
			t.Errorf("unexpected position/playing %v/%v", pb.Position, pb.Playing)
		}
	})

	t.Run("Nothing Playing", func(t *testing.T) {
		tc := []struct {
			name    string
			handler http.HandlerFunc
		}{
			{
				name: "204 No Content",
				handler: func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				},
			},
			{
				name: "Null Item",
				handler: func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte(`{"is_playing":false,"item":null}`))
				},
			},
			{
				name: "Advertisement",
				handler: func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte(`{"is_playing":true,"currently_playing_type":"ad","item":{"id":"x","name":"Ad"}}`))
				},
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				srv, _ := newTestPlayer(t, tt.handler)
				srv.OAuthenticate(context.Background(), validToken())

				pb, err := srv.CurrentlyPlaying(context.Background())
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if pb.HasTrack() {
					t.Errorf("expected nothing playing, got %+v", pb.Track)
				}
			})
		}
	})

	t.Run("Error Handling", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			want   error
		}{
			{name: "handles 401 unauthorized", status: http.StatusUnauthorized, want: shared.ErrTokenExpired},
			{name: "handles 429 rate limit", status: http.StatusTooManyRequests, want: shared.ErrServiceUnavailable},
			{name: "handles 500 internal error", status: http.StatusInternalServerError, want: shared.ErrServiceUnavailable},
			{name: "handles 403 forbidden", status: http.StatusForbidden, want: shared.ErrAPIRequest},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				srv, _ := newTestPlayer(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				})
				srv.OAuthenticate(context.Background(), validToken())

				if _, err := srv.CurrentlyPlaying(context.Background()); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Token Refresh", func(t *testing.T) {
		var (
			mu        sync.Mutex
			refreshed []*oauth2.Token
		)

		srv, _ := newTestPlayer(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/token":
				r.ParseForm()
				if r.Form.Get("grant_type") != "refresh_token" {
					t.Errorf("expected refresh grant, got %q", r.Form.Get("grant_type"))
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token":"new_token","token_type":"Bearer","expires_in":3600}`))
			case "/me":
				if r.Header.Get("Authorization") != "Bearer new_token" {
					t.Errorf("expected refreshed token, got %q", r.Header.Get("Authorization"))
				}
				w.Write([]byte(`{"id":"user1","display_name":"Test User"}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}, WithTokenRefresh(func(token *oauth2.Token) {
			mu.Lock()
			defer mu.Unlock()
			refreshed = append(refreshed, token)
		}))

		expired := &oauth2.Token{
			AccessToken:  "old_token",
			RefreshToken: "refresh_token",
			Expiry:       time.Now().Add(-time.Hour),
		}
		if err := srv.OAuthenticate(context.Background(), expired); err != nil {
			t.Fatalf("OAuthenticate failed: %v", err)
		}

		user, err := srv.UserProfile(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.DisplayName != "Test User" {
			t.Errorf("unexpected user %+v", user)
		}

		// a second call reuses the cached token
		if _, err := srv.UserProfile(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(refreshed) != 1 {
			t.Fatalf("expected one refresh notification, got %d", len(refreshed))
		}
		if refreshed[0].AccessToken != "new_token" {
			t.Errorf("expected new_token, got %s", refreshed[0].AccessToken)
		}
	})

	t.Run("Player Interface", func(t *testing.T) {
		srv, _ := NewSpotifyPlayer(map[string]string{"client_id": "test_client_id"})
		var _ Player = srv
		var _ OAuthService = srv
	})
}

func TestSpotifyTrack(t *testing.T) {
	t.Run("Local File Uses URI", func(t *testing.T) {
		tr := SpotifyTrack{Name: "Demo", URI: "spotify:local:a:b:Demo:10", IsLocal: true}.Track()
		if tr.ID != "spotify:local:a:b:Demo:10" {
			t.Errorf("expected uri id, got %q", tr.ID)
		}
	})

	t.Run("Falls Back To Normalized Key", func(t *testing.T) {
		tr := SpotifyTrack{Name: "Demo", Artists: []SpotifyArtist{{Name: "Band"}}}.Track()
		if tr.ID != shared.NormalizeTrackKey("Demo", "Band") {
			t.Errorf("unexpected id %q", tr.ID)
		}
	})
}
