// Package web serves the browser dashboard: server-rendered pages, a JSON feed
// endpoint and a server-sent event stream, all behind the access gate.
//
// # Routes
//
//	GET  /login              → sign-in page (Public)
//	GET  /auth/google        → OAuth start (Public, see server.AuthHandler)
//	GET  /auth/callback      → OAuth completion (AuthCallback)
//	POST /auth/signout       → sign out
//	GET  /dashboard          → latest uploads of the signed-in channel
//	GET  /dashboard/events   → SSE: session, feed and signout events
//	POST /dashboard/refresh  → force a token refresh
//	GET  /api/videos         → {items, channelTitle, channelId}
//	GET  /healthz            → liveness (Excluded)
//	GET  /static/...         → embedded assets (Excluded)
//	GET  /                   → redirect to /dashboard
//
// [Server.Handler] wraps the whole router with request logging and the gate,
// so unknown paths are decided like any other Protected route.
//
// # State
//
// Every page, API and stream request builds a [dashboard.Dashboard] around
// the session the gate attached to the request context. The dashboard
// re-evaluates the session before fetching, so a session that exists without
// a provider token is signed out here rather than in the gate.
//
// # Metrics
//
// Gate decisions and lookup latency are registered on the server's prometheus
// registry and served by [Server.MetricsHandler], on server.metrics_addr when set.
package web
