// YouTube Data API [ContentService] implementation
//
// Response types based on https://developers.google.com/youtube/v3/docs
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultYTBaseURL  = "https://www.googleapis.com/youtube/v3"
	defaultPageSize   = 10
	defaultRateLimit  = 5.0
	maxErrorBodyBytes = 4096
)

type youtubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type youtubeThumbnails struct {
	Default *youtubeThumbnail `json:"default"`
	Medium  *youtubeThumbnail `json:"medium"`
	High    *youtubeThumbnail `json:"high"`
}

type youtubeSnippet struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	PublishedAt string            `json:"publishedAt"`
	Thumbnails  youtubeThumbnails `json:"thumbnails"`
}

// YouTubeChannelList is the response of channels.list.
type YouTubeChannelList struct {
	Items []struct {
		ID      string         `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

// YouTubeSearchList is the response of search.list.
type YouTubeSearchList struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

type youtubeError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// YouTubeOptions configures a [YouTubeService].
type YouTubeOptions struct {
	BaseURL    string
	APIKey     string
	PageSize   int
	RateLimit  float64 // requests per second
	HTTPClient *http.Client
}

// YouTubeOptionsFromConfig builds options from the [credentials.youtube] config section.
func YouTubeOptionsFromConfig(cfg shared.YouTubeConfig) YouTubeOptions {
	return YouTubeOptions{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		PageSize:  cfg.PageSize,
		RateLimit: cfg.RateLimit,
	}
}

// YouTubeService implements [ContentService] against the YouTube Data API.
type YouTubeService struct {
	baseURL    string
	apiKey     string
	pageSize   int
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Data API client.
func NewYouTubeService(opts YouTubeOptions) *YouTubeService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultYTBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &YouTubeService{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		pageSize:   opts.PageSize,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		httpClient: opts.HTTPClient,
	}
}

func (y *YouTubeService) doRequest(ctx context.Context, endpoint string, query url.Values, accessToken string, result any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := y.baseURL + endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(resp.Body))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errorMessage(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
	}

	return nil
}

func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil {
		return "unreadable error body"
	}

	var apiErr youtubeError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	if len(data) == 0 {
		return "empty response"
	}
	return string(data)
}

// Channel returns the channel owned by the token owner.
//
// Calls GET /channels?part=id,snippet&mine=true
func (y *YouTubeService) Channel(ctx context.Context, accessToken string) (*models.Channel, error) {
	query := url.Values{}
	query.Set("part", "id,snippet")
	query.Set("mine", "true")

	var list YouTubeChannelList
	if err := y.doRequest(ctx, "/channels", query, accessToken, &list); err != nil {
		return nil, err
	}

	if len(list.Items) == 0 {
		return nil, ErrChannelNotFound
	}

	channel := &models.Channel{ID: list.Items[0].ID, Title: list.Items[0].Snippet.Title}
	if channel.Title == "" {
		channel.Title = models.DefaultChannelTitle
	}
	return channel, nil
}

// Uploads returns the most recent videos of channelID, newest first.
//
// Calls GET /search?channelId=...&part=snippet,id&order=date&type=video.
// Items without a video id or medium thumbnail are dropped.
func (y *YouTubeService) Uploads(ctx context.Context, accessToken, channelID string) ([]models.Video, error) {
	query := url.Values{}
	query.Set("channelId", channelID)
	query.Set("part", "snippet,id")
	query.Set("order", "date")
	query.Set("maxResults", strconv.Itoa(y.pageSize))
	query.Set("type", "video")
	if y.apiKey != "" {
		query.Set("key", y.apiKey)
	}

	var list YouTubeSearchList
	if err := y.doRequest(ctx, "/search", query, accessToken, &list); err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0, len(list.Items))
	for _, item := range list.Items {
		thumb := item.Snippet.Thumbnails.Medium
		if item.ID.VideoID == "" || thumb == nil || thumb.URL == "" {
			continue
		}

		video := models.Video{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			ThumbnailURL: thumb.URL,
		}
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			video.PublishedAt = t
		}
		videos = append(videos, video)
	}

	return videos, nil
}

// Feed looks up the channel and then its uploads.
func (y *YouTubeService) Feed(ctx context.Context, accessToken string) (*models.Feed, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, shared.ErrMissingProviderToken)
	}

	channel, err := y.Channel(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	videos, err := y.Uploads(ctx, accessToken, channel.ID)
	if err != nil {
		return nil, err
	}

	return &models.Feed{Channel: *channel, Videos: videos, FetchedAt: time.Now()}, nil
}
