package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/lyrx/internal/server"
	"github.com/desertthunder/lyrx/internal/services"
	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization, and exchanges the
// auth code for tokens. Tokens are saved to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if !creds.Configured() {
		return fmt.Errorf("%w: set credentials.spotify.client_id in %s", shared.ErrMissingCredentials, r.configPath)
	}

	player, err := services.NewSpotifyPlayer(creds.Map(), services.WithSpotifyHTTPClient(r.httpClient))
	if err != nil {
		return fmt.Errorf("failed to create Spotify player: %w", err)
	}
	if player.PKCE() {
		r.logger.Info("no client secret configured, using PKCE")
	}

	token, err := r.doOAuth(ctx, player, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Tokens saved to %s\n", r.configPath)
	}

	if err := player.OAuthenticate(ctx, token); err == nil {
		if user, err := player.UserProfile(ctx); err == nil {
			r.writePlain("✓ Signed in as %s\n", user.DisplayName)
		}
	}

	r.writePlain("\nYou can now use: lyrx overlay\n")
	return nil
}

// SpotifyNow prints the currently playing track.
func (r *Runner) SpotifyNow(ctx context.Context, cmd *cli.Command) error {
	player, err := r.spotifyPlayer(ctx)
	if err != nil {
		return err
	}

	pb, err := player.CurrentlyPlaying(ctx)
	if errors.Is(err, shared.ErrTokenExpired) {
		return fmt.Errorf("%w: token rejected, run `lyrx spotify auth`", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return fmt.Errorf("failed to read playback state: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(pb, cmd.Bool("pretty"))
	}

	if !pb.HasTrack() {
		return r.writePlain("Nothing playing\n")
	}

	state := "Paused"
	if pb.Playing {
		state = "Playing"
	}

	t := pb.Track
	r.writePlain("%s: %s - %s\n", state, t.Artist, t.Title)
	if t.Album != "" {
		r.writePlain("  Album: %s\n", t.Album)
	}
	r.writePlain("  Position: %s / %s\n", shared.FormatDuration(pb.Position), shared.FormatDuration(t.Duration))
	r.writePlain("  ID: %s\n", t.ID)
	return nil
}

// spotifyPlayer returns the injected player, or an authenticated Spotify player built from the config.
//
// Refreshed tokens are written back to the config file.
func (r *Runner) spotifyPlayer(ctx context.Context) (services.Player, error) {
	if r.player != nil {
		return r.player, nil
	}

	creds := r.config.Credentials.Spotify
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id in %s", shared.ErrMissingCredentials, r.configPath)
	}

	player, err := services.NewSpotifyPlayer(
		creds.Map(),
		services.WithSpotifyHTTPClient(r.httpClient),
		services.WithTokenRefresh(func(token *oauth2.Token) {
			if err := r.saveTokens(token); err != nil {
				r.logger.Warn("failed to save refreshed token", "error", err)
				return
			}
			r.logger.Debug("refreshed token saved", "expiry", token.Expiry)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify player: %w", err)
	}

	if err := player.OAuthenticate(ctx, creds.Token()); err != nil {
		return nil, err
	}

	r.player = player
	return player, nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	config := oauthSrv.GetOAuthConfig()
	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(config, state, oauthSrv.ExchangeOptions()...)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(oauthHandler)

	serverAddr := r.callbackAddr(config.RedirectURL)
	listener, err := net.Listen("tcp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", serverAddr, err)
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// callbackAddr returns the listen address for the redirect URI, falling back to the [server] config section.
func (r *Runner) callbackAddr(redirectURL string) string {
	if u, err := url.Parse(redirectURL); err == nil && u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(r.config.Server.Host, fmt.Sprint(r.config.Server.Port))
}
