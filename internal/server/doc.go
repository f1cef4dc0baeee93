// Package server provides HTTP routing, middleware, and OAuth handling for the CLI authorization flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [Logging] logs each request through charmbracelet/log.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. Extra exchange options carry the PKCE code verifier when the
// Spotify app has no client secret.
//
// It only processes one callback to prevent replay attacks.
//
// # Current Usage
//
// `lyrx spotify auth` starts a temporary HTTP server on the host and port of the registered redirect URI,
// handles the callback, and shuts down after receiving the OAuth token.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
