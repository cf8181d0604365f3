// Package services defines the [ContentService] interface and implements it for the YouTube Data API v3.
//
// # YouTube Implementation
//
// [YouTubeService.Feed] makes two calls with the user's access token:
//  1. GET /channels?part=id,snippet&mine=true resolves the signed-in user's channel
//  2. GET /search?channelId=...&order=date&type=video lists its recent uploads
//
// Search results are sanitized: items lacking a video id or a medium
// thumbnail URL are dropped, and a channel without a title is shown as
// [models.DefaultChannelTitle].
//
// Outbound calls share a token-bucket limiter ([rate.Limiter]) and honour context cancellation.
//
// # Error Handling
//
//   - [ErrUnauthorized] : HTTP 401 from either call, the access token is no longer usable
//   - [ErrChannelNotFound] : the account has no channel
//   - [shared.ErrAPIRequest] : any other failure, wrapping the API's error message
package services
