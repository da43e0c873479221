// Package server provides HTTP routing, middleware, the conversion endpoints and the terminal OAuth callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with per-path method tables.
//
// # Endpoints
//
// [API] registers the web surface:
//
//	GET|POST /convert              convert and publish, or {redirect_url} when authorization is needed
//	POST     /api/search-playlist  search only, {youtube_links, unmatched}
//	GET      /youtube/auth         302 to the Google consent screen
//	GET      /youtube/callback     completes authorization, 302 back to the UI
//	GET      /health               liveness
//
// Input errors answer 400 with the error message. Every other failure is logged and answered
// with a generic 500 body.
//
// # Sessions
//
// [SessionMiddleware] issues an HttpOnly, SameSite=Lax cookie holding a random session id.
// Handlers read it with [SessionID]; grants are stored under that id.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves the callback of a terminal authorization flow. A temporary server on
// the redirect URI handles exactly one callback, hands the code to the session manager, and
// sends the result through a channel.
package server
