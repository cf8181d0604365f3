// Package session is the accessor for signed-in identities.
//
// A [Manager] resolves the session cookie of a request to a stored
// [models.Session], refreshing the Google access token when it has expired.
// Every lookup has one of three outcomes:
//   - a session
//   - no session (no cookie, expired cookie, unknown or expired session id)
//   - an error (tampered cookie, backend failure, failed refresh)
//
// An error is never reported as "no session". Callers that gate routes must
// treat it as a lookup failure.
//
// Session changes (refresh, revoked grant, sign-out) are pushed to
// [Subscription] values returned by [Manager.Subscribe].
package session
