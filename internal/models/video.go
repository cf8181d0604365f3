package models

import "time"

// DefaultChannelTitle is shown when the content API omits the channel title.
const DefaultChannelTitle = "My Channel"

// Channel is the signed-in user's own channel.
type Channel struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Video is a sanitized upload.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail_url"`
	PublishedAt  time.Time `json:"published_at"`
}

// URL returns the watch page for the video.
func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// Feed is a channel with its most recent uploads, newest first.
type Feed struct {
	Channel   Channel   `json:"channel"`
	Videos    []Video   `json:"videos"`
	FetchedAt time.Time `json:"fetched_at"`
}
