// Package dashboard keeps a signed-in user's feed current for the web and terminal dashboards.
//
// A [Dashboard] holds an explicit session handle. Before every fetch, and on
// every session-change notification, it re-runs [gate.Reevaluate]; a session
// without a provider token is signed out and the handle dropped. A 401 from
// the content API is treated the same way. Any other content failure is
// returned as a retryable error with the session untouched.
package dashboard
