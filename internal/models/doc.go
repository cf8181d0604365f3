// Package models defines the domain entities shared by the session, content and presentation layers.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: backend-stored state with a managed lifecycle
//   - [Session] : an authenticated Google identity plus the provider token used against the YouTube Data API
//
// 2. Data Transfer Objects (DTOs): normalized content API data
//   - [Channel] : the signed-in user's own channel
//   - [Video] : a sanitized upload (id, title, medium thumbnail, publish time)
//   - [Feed] : a channel with its most recent uploads, newest first
//
// A nil *Session means "no session". Code that needs to distinguish a failed
// lookup from an absent session carries the error alongside it instead of
// encoding failure in the Session value.
package models
