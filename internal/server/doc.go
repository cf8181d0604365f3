// Package server provides HTTP routing, middleware, and OAuth handling for CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [BasicRouter.Use] applies middleware per registered route; [Chain] wraps a whole handler tree, which is how
// the access gate and [Logging] see every request, unknown paths included.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Web Sign-in
//
// [AuthHandler] serves three routes:
//
//	GET  /auth/google    → random state in the ytdash_oauth_state cookie, redirect to Google
//	GET  /auth/callback  → state check, code exchange, userinfo, session cookie, redirect /dashboard
//	POST /auth/signout   → delete the session, clear the cookie, redirect /login
//
// Any callback failure redirects to /login. The callback path is classified as AuthCallback
// by the gate, so it runs whether or not the caller already has a session.
//
// # CLI OAuth Callback Handler
//
// [OAuthHandler] implements a one-shot authorization code callback for `ytdash auth login`.
// A temporary HTTP server listens on the redirect URI's host, validates the state parameter,
// exchanges the code and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
