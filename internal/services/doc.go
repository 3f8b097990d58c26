// Package services is the HTTP boundary to the Shffl backend.
//
// # Client
//
// [Client] wraps the four backend endpoints:
//
//	GET /user                      → identity JSON, or 401
//	GET /logout                    → best-effort, response ignored
//	GET /playlists?offset=&limit=  → {items, total}
//	GET /queue-playlist/{id}       → text/event-stream of progress frames
//
// Requests are authenticated with the session token saved at login. [SessionToken] is an [oauth2.TokenSource] that can
// be swapped after a login, and [NewSessionHTTPClient] sets the Authorization header from it through an
// [oauth2.Transport] on every request, including the long-lived event stream. Without a token requests go out bare and
// the backend answers 401.
//
// Non-streaming calls are bounded by the client's request timeout, applied per request through the context rather than
// [http.Client.Timeout], which would also cut the event stream short.
//
// # Event Source
//
// [EventSource] is the explicit server-push channel resource: Open, OnFrame, OnError, Close.
// Frames are dispatched in arrival order from a single reader goroutine.
// Any transport failure (connect error, non-200 status, wrong content type, read error, or the server ending the
// stream) is reported once through OnError and the source closes itself; it never reconnects.
// Cancelling the Open context or calling Close ends the source silently.
//
// # Error Handling
//
// Client methods wrap sentinels from the shared package:
//   - [shared.ErrNotAuthenticated] : the backend answered 401
//   - [shared.ErrAPIRequest] : transport failure or any other non-2xx status
//   - [shared.ErrDecode] : the body was not the expected JSON
//   - [shared.ErrStreamFailed], [shared.ErrStreamClosed] : event source failures
package services
