package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed           = fmt.Errorf("authentication failed")
	ErrNotAuthenticated     = fmt.Errorf("not authenticated")
	ErrInvalidState         = fmt.Errorf("invalid oauth state")
	ErrTokenExpired         = fmt.Errorf("access token expired")
	ErrRefreshFailed        = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken       = fmt.Errorf("no refresh token available")
	ErrMissingProviderToken = fmt.Errorf("session has no provider token")
	ErrTimeout              = fmt.Errorf("operation timed out")

	// Session errors
	ErrSessionLookup    = fmt.Errorf("session lookup failed")
	ErrMalformedSession = fmt.Errorf("malformed session cookie")
	ErrSessionNotFound  = fmt.Errorf("session not found")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
