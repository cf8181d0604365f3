// Package repositories implements session persistence backends.
//
// Two implementations satisfy session.Backend:
//   - [SessionRepository] : SQLite storage (default), rows in the sessions table created by the embedded migrations
//   - [RedisSessionStore] : Redis storage, one JSON value per session with a TTL matching the session lifetime
//
// Both return [shared.ErrSessionNotFound] for unknown or expired ids and treat
// Delete as idempotent.
//
// Sequence numbers provide stable, human-readable ordering (e.g., session #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
