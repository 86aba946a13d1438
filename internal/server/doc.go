// Package server provides HTTP routing, middleware, sessions, and the JSON
// API for the album ranking service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Sessions
//
// [SessionManager] issues and verifies the signed session cookie. The cookie
// value carries the user id and an expiry, bound together by an HMAC over the
// configured signing secret; nothing session-related is stored server side.
//
// # OAuth
//
// Two flows share the same Spotify authorization server. The web flow
// ([App.HandleSpotifyLogin] and [App.HandleSpotifyCallback]) binds a random
// state token to the session that started it. The CLI flow uses
// [OAuthHandler] on a temporary localhost server that processes exactly one
// callback and reports the outcome through a channel.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
