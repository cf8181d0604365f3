// Package gate decides, for every request, whether it may proceed.
//
// Each request is classified by path into a [RouteClass] and combined with
// the session lookup result by [Decide]:
//
//	AuthCallback                  → Allow
//	lookup failed, Public         → Allow
//	lookup failed, otherwise      → RedirectToLogin
//	no session, Protected         → RedirectToLogin
//	session, Public               → RedirectToHome
//	otherwise                     → Allow
//
// [Gate.Handle] applies the decision as middleware. Excluded paths (static
// assets, health checks) skip the lookup altogether. Allowed responses carry
// no-cache headers and the session is attached to the request context.
//
// [Reevaluate] runs the same table for dashboards whose session changes
// after the page was served.
package gate
