package gate

import "github.com/desertthunder/ytdash/internal/models"

// Decision is the action taken for a request.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToHome
)

func (d Decision) String() string {
	switch d {
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToHome:
		return "redirect_home"
	default:
		return "allow"
	}
}

// SessionResult is the outcome of a session lookup. A non-nil Err means the
// lookup failed and Session is ignored.
type SessionResult struct {
	Session *models.Session
	Err     error
}

// Reasons recorded with each decision.
const (
	ReasonCallback      = "callback"
	ReasonLookupFailure = "lookup_failure"
	ReasonNoSession     = "no_session"
	ReasonSignedIn      = "signed_in"
	ReasonPass          = "pass"
)

// Decide maps a lookup result and route class to a decision.
func Decide(result SessionResult, class RouteClass) Decision {
	d, _ := evaluate(result, class)
	return d
}

// Reevaluate decides whether a dashboard may keep showing protected content
// for s. A session without a provider token counts as no session.
func Reevaluate(s *models.Session) Decision {
	if !s.HasProviderToken() {
		s = nil
	}
	return Decide(SessionResult{Session: s}, Protected)
}

func evaluate(result SessionResult, class RouteClass) (Decision, string) {
	switch {
	case class == AuthCallback:
		return Allow, ReasonCallback
	case result.Err != nil:
		if class == Public {
			return Allow, ReasonLookupFailure
		}
		return RedirectToLogin, ReasonLookupFailure
	case result.Session == nil && class == Protected:
		return RedirectToLogin, ReasonNoSession
	case result.Session != nil && class == Public:
		return RedirectToHome, ReasonSignedIn
	default:
		return Allow, ReasonPass
	}
}
