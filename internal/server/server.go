// package server contains middleware & handlers for the ytdash web service
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// The access gate and request logging are both middleware.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several paths.
// Implementations handle specific endpoints (OAuth start, callback, sign-out).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Chain wraps h with middleware, the first listed being the outermost.
//
// Unlike [BasicRouter.Use], which wraps each registered route, Chain sees
// every request including ones the mux answers with 404.
func Chain(h http.Handler, middleware ...Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
