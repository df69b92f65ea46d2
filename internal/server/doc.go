// Package server provides HTTP routing, middleware, and the OAuth callback listener shared by the CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /releases/{id}").
//
// # OAuth Callback Handler
//
// [CallbackHandler] captures the oauth_token and oauth_verifier Discogs appends to the callback URL
// and sends them through a channel. It only processes one callback to prevent replay attacks.
//
// [CallbackServer] wraps it in a temporary loopback server for `discx auth login`: it starts on the
// configured callback address, waits for the redirect, and shuts down after the verifier arrives.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
