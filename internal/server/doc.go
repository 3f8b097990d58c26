// Package server provides the local HTTP listener used by `shffl login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] is the only middleware the CLI installs.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Login Callback
//
// The backend owns the real login flow. The CLI opens {base}/login with a redirect_uri pointing at this listener and
// a random state. When the flow ends the backend redirects the browser to /callback with the session token:
//
//	GET /callback?state=<state>&token=<token>[&token_type=Bearer][&expires_in=3600]
//
// or with error/error_description on failure. [CallbackHandler] validates the state, builds an [oauth2.Token], and
// delivers exactly one [CallbackResult]. Later requests are rejected.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
