// Package server provides the HTTP API: routing, session and logging middleware, playlist and transfer
// handlers, and the OAuth link flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [MethodRouter] implementation keeps a method table per path on top of [http.ServeMux]; a request with
// a method the path does not serve gets a JSON 405 whose Allow header lists the registered methods.
//
// # Sessions
//
// [Sessions.Middleware] runs on every route. It decodes the session cookie (a missing or invalid cookie is an
// empty session), runs the credential lifecycle, rewrites the cookie when the state changed, and stores the
// state in the request context for [SessionFrom].
//
// # Endpoints
//
//   - GET  /health
//   - GET  /playlists/source : Spotify playlists
//   - GET  /playlists/destination : YouTube playlists classified as music
//   - POST /transfer : Spotify → YouTube
//   - POST /transfer-reverse : YouTube → Spotify
//   - GET  /auth/{provider}, GET /auth/{provider}/callback : link a provider account
//   - POST /auth/logout
//
// Credentials are checked before the body, so a request from an unlinked session never reaches an upstream API.
//
// # OAuth Link Handler
//
// [LinkHandler] implements the authorization code flow. The state parameter is kept in a bounded TTL cache for
// ten minutes and is single use. It is also set in an HttpOnly SameSite=Lax cookie, and the callback only
// accepts a state that matches the cookie of the browser that started the flow. The callback exchanges the code, looks up the provider account id, upserts the
// account, and writes the updated session.
package server
