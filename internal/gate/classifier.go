package gate

import (
	"strings"

	"github.com/desertthunder/ytdash/internal/shared"
)

// RouteClass is the access category of a request path.
type RouteClass int

const (
	Protected RouteClass = iota
	Public
	AuthCallback
)

func (c RouteClass) String() string {
	switch c {
	case Public:
		return "public"
	case AuthCallback:
		return "auth_callback"
	default:
		return "protected"
	}
}

// Routes classifies request paths. The zero value classifies everything as Protected.
type Routes struct {
	callback string
	public   map[string]struct{}
	excluded []string
}

// DefaultRoutes returns the classification used when no [gate] section is configured.
func DefaultRoutes() *Routes {
	return NewRoutes(
		"/auth/callback",
		[]string{"/login", "/auth/google"},
		[]string{"/static/", "/assets/", "/icons/", "/favicon.ico", "/manifest.json", "/sw.js", "/healthz"},
	)
}

// RoutesFromConfig builds the classification from the [gate] config section.
func RoutesFromConfig(cfg shared.GateConfig) *Routes {
	return NewRoutes(cfg.CallbackPath, cfg.Public, cfg.Excluded)
}

// NewRoutes creates a classifier. Excluded entries ending in "/" match as
// prefixes, all other entries match exactly.
func NewRoutes(callback string, public, excluded []string) *Routes {
	r := &Routes{
		callback: callback,
		public:   make(map[string]struct{}, len(public)),
		excluded: append([]string(nil), excluded...),
	}
	for _, p := range public {
		r.public[p] = struct{}{}
	}
	return r
}

// Classify returns the class of path.
func (r *Routes) Classify(path string) RouteClass {
	if r.callback != "" && path == r.callback {
		return AuthCallback
	}
	if _, ok := r.public[path]; ok {
		return Public
	}
	return Protected
}

// Excluded reports whether path bypasses the gate entirely.
func (r *Routes) Excluded(path string) bool {
	for _, e := range r.excluded {
		if strings.HasSuffix(e, "/") {
			if strings.HasPrefix(path, e) {
				return true
			}
			continue
		}
		if path == e {
			return true
		}
	}
	return false
}
