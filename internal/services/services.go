// package services defines interface ContentService for reading a user's own channel
//
// YouTube Data API v3
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytdash/internal/models"
)

var (
	// ErrUnauthorized means the content API rejected the access token (HTTP 401).
	ErrUnauthorized = fmt.Errorf("content API rejected access token")

	// ErrChannelNotFound means the signed-in account has no YouTube channel.
	ErrChannelNotFound = fmt.Errorf("no YouTube channel found")
)

// ContentService defines the interface for fetching the signed-in user's uploads.
type ContentService interface {
	// Feed returns the channel of the token owner and its most recent uploads.
	Feed(ctx context.Context, accessToken string) (*models.Feed, error)
}
