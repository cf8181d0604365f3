package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/services"
)

type thumbnail struct {
	URL string `json:"url"`
}

type videoItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		PublishedAt string `json:"publishedAt,omitempty"`
		Thumbnails  struct {
			Medium thumbnail `json:"medium"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

// VideosResponse is the body of GET /api/videos.
type VideosResponse struct {
	Items        []videoItem `json:"items"`
	ChannelTitle string      `json:"channelTitle"`
	ChannelID    string      `json:"channelId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newVideosResponse(feed *models.Feed) VideosResponse {
	resp := VideosResponse{
		Items:        make([]videoItem, 0, len(feed.Videos)),
		ChannelTitle: feed.Channel.Title,
		ChannelID:    feed.Channel.ID,
	}
	for _, v := range feed.Videos {
		var item videoItem
		item.ID.VideoID = v.ID
		item.Snippet.Title = v.Title
		item.Snippet.Thumbnails.Medium.URL = v.ThumbnailURL
		if !v.PublishedAt.IsZero() {
			item.Snippet.PublishedAt = v.PublishedAt.Format(time.RFC3339)
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}

// Videos returns the feed as JSON. A session that cannot reach the content
// API is signed out and answered with 401.
func (s *Server) Videos(w http.ResponseWriter, r *http.Request) {
	d, ok := s.open(w, r)
	if !ok {
		return
	}
	defer d.Close()

	st := d.Load(r.Context())
	switch {
	case st.SignedOut:
		s.manager.ClearCookie(w)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Access token required"})
	case errors.Is(st.Err, services.ErrChannelNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No YouTube channel found"})
	case st.Err != nil:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Failed to fetch videos"})
	default:
		writeJSON(w, http.StatusOK, newVideosResponse(st.Feed))
	}
}
