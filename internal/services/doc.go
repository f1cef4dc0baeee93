// Package services defines the [Player] and [LyricsProvider] interfaces and implements them for Spotify, MPRIS
// and LRCLIB.
//
// # Player Interface
//
// A [Player] returns one [models.Playback] snapshot per call. The poller in internal/tasks calls it on a fixed
// interval and never inspects which source is behind it.
//
// # Spotify Implementation
//
// [SpotifyPlayer] reads GET /me/player/currently-playing with an [oauth2.Client] that refreshes expired tokens.
// Refreshed tokens are reported through [WithTokenRefresh] so the CLI can write them back to config.toml.
// Without a client secret the authorization code flow uses PKCE (S256).
//
// # MPRIS Implementation
//
// [MPRISPlayer] reads the PlaybackStatus, Metadata and Position properties of an MPRIS2 player on the
// D-Bus session bus. Positions are reported in microseconds by the bus and converted to [time.Duration].
//
// # LRCLIB Implementation
//
// [LRCLIBProvider] tries the exact /get signature first and falls back to /search, preferring synced lyrics
// whose duration is within two seconds of the track. Requests share one [rate.Limiter].
//
// # OAuth Service Extension
//
// The [OAuthService] interface is implemented by [SpotifyPlayer] for the CLI authorization flow in
// internal/server.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : OAuthenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token rejected or refresh failed, reauthorization needed
//   - [shared.ErrServiceUnavailable] : network failure, 429 or 5xx
//   - [shared.ErrAPIRequest] : any other non-2xx response or a malformed body
//   - [shared.ErrLyricsNotFound] : the provider has nothing for the track
package services
