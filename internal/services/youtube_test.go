package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
	tu "github.com/desertthunder/ytdash/internal/testing"
)

const channelsBody = `{"items":[{"id":"UC123","snippet":{"title":"Desert Thunder"}}]}`

const searchBody = `{
	"items": [
		{"id":{"kind":"youtube#video","videoId":"v1"},"snippet":{"title":"First","publishedAt":"2024-05-01T10:00:00Z","thumbnails":{"medium":{"url":"https://i.ytimg.com/vi/v1/mqdefault.jpg"}}}},
		{"id":{"kind":"youtube#video"},"snippet":{"title":"No id","thumbnails":{"medium":{"url":"https://i.ytimg.com/x.jpg"}}}},
		{"id":{"kind":"youtube#video","videoId":"v3"},"snippet":{"title":"No medium","thumbnails":{"default":{"url":"https://i.ytimg.com/vi/v3/default.jpg"}}}},
		{"id":{"kind":"youtube#video","videoId":"v4"},"snippet":{"title":"Empty medium","thumbnails":{"medium":{"url":""}}}},
		{"id":{"kind":"youtube#video","videoId":"v5"},"snippet":{"title":"","thumbnails":{"medium":{"url":"https://i.ytimg.com/vi/v5/mqdefault.jpg"}}}}
	]
}`

func newTestYouTube(t *testing.T, handler http.HandlerFunc, opts YouTubeOptions) *YouTubeService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	if opts.RateLimit == 0 {
		opts.RateLimit = 1000
	}
	return NewYouTubeService(opts)
}

func TestYouTubeService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewYouTubeService", func(t *testing.T) {
		t.Run("creates service with defaults", func(t *testing.T) {
			svc := NewYouTubeService(YouTubeOptions{})
			if svc.baseURL != defaultYTBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultYTBaseURL, svc.baseURL)
			}
			if svc.pageSize != defaultPageSize {
				t.Errorf("expected page size %d, got %d", defaultPageSize, svc.pageSize)
			}
		})

		t.Run("from config", func(t *testing.T) {
			cfg := shared.DefaultConfig().Credentials.YouTube
			svc := NewYouTubeService(YouTubeOptionsFromConfig(cfg))
			if svc.baseURL != cfg.BaseURL || svc.pageSize != cfg.PageSize {
				t.Errorf("expected config values, got %s and %d", svc.baseURL, svc.pageSize)
			}
		})
	})

	t.Run("Channel", func(t *testing.T) {
		t.Run("resolves own channel", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/channels" {
					t.Errorf("expected path /channels, got %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("part") != "id,snippet" || q.Get("mine") != "true" {
					t.Errorf("unexpected query %v", q)
				}
				if r.Header.Get("Authorization") != "Bearer token" {
					t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
				}
				w.Write([]byte(channelsBody))
			}, YouTubeOptions{})

			channel, err := svc.Channel(ctx, "token")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if channel.ID != "UC123" || channel.Title != "Desert Thunder" {
				t.Errorf("unexpected channel %+v", channel)
			}
		})

		t.Run("missing title", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"items":[{"id":"UC123","snippet":{}}]}`))
			}, YouTubeOptions{})

			channel, err := svc.Channel(ctx, "token")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if channel.Title != models.DefaultChannelTitle {
				t.Errorf("expected %q, got %q", models.DefaultChannelTitle, channel.Title)
			}
		})

		t.Run("no channel", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"items":[]}`))
			}, YouTubeOptions{})

			if _, err := svc.Channel(ctx, "token"); !errors.Is(err, ErrChannelNotFound) {
				t.Errorf("expected ErrChannelNotFound, got %v", err)
			}
		})
	})

	t.Run("Uploads", func(t *testing.T) {
		t.Run("sanitizes items", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(searchBody))
			}, YouTubeOptions{})

			videos, err := svc.Uploads(ctx, "token", "UC123")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(videos) != 2 {
				t.Fatalf("expected 2 videos, got %d: %+v", len(videos), videos)
			}
			if videos[0].ID != "v1" || videos[1].ID != "v5" {
				t.Errorf("unexpected videos %+v", videos)
			}
			if want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC); !videos[0].PublishedAt.Equal(want) {
				t.Errorf("expected published time %v, got %v", want, videos[0].PublishedAt)
			}
			if videos[0].URL() != "https://www.youtube.com/watch?v=v1" {
				t.Errorf("unexpected url %s", videos[0].URL())
			}
		})

		t.Run("query parameters", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" {
					t.Errorf("expected path /search, got %s", r.URL.Path)
				}
				q := r.URL.Query()
				want := map[string]string{
					"channelId":  "UC123",
					"part":       "snippet,id",
					"order":      "date",
					"maxResults": "25",
					"type":       "video",
					"key":        "api-key",
				}
				for k, v := range want {
					if q.Get(k) != v {
						t.Errorf("expected %s=%s, got %q", k, v, q.Get(k))
					}
				}
				w.Write([]byte(`{"items":[]}`))
			}, YouTubeOptions{APIKey: "api-key", PageSize: 25})

			if _, err := svc.Uploads(ctx, "token", "UC123"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("default page size without api key", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("maxResults") != "10" {
					t.Errorf("expected maxResults=10, got %q", q.Get("maxResults"))
				}
				if q.Has("key") {
					t.Error("expected no key parameter")
				}
				w.Write([]byte(`{"items":[]}`))
			}, YouTubeOptions{})

			if _, err := svc.Uploads(ctx, "token", "UC123"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("Feed", func(t *testing.T) {
		t.Run("combines channel and uploads", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/channels":
					w.Write([]byte(channelsBody))
				case "/search":
					if r.URL.Query().Get("channelId") != "UC123" {
						t.Errorf("expected channel id from first call, got %q", r.URL.Query().Get("channelId"))
					}
					w.Write([]byte(searchBody))
				default:
					http.NotFound(w, r)
				}
			}, YouTubeOptions{})

			feed, err := svc.Feed(ctx, "token")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if feed.Channel.Title != "Desert Thunder" || len(feed.Videos) != 2 {
				t.Errorf("unexpected feed %+v", feed)
			}
			if feed.FetchedAt.IsZero() {
				t.Error("expected fetch time")
			}
		})

		t.Run("empty token", func(t *testing.T) {
			svc := NewYouTubeService(YouTubeOptions{})
			_, err := svc.Feed(ctx, "")
			if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, shared.ErrMissingProviderToken) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			channel int
			search  int
			body    string
			want    error
		}{
			{"channel 401", http.StatusUnauthorized, http.StatusOK, `{"error":{"code":401,"message":"Invalid Credentials"}}`, ErrUnauthorized},
			{"search 401", http.StatusOK, http.StatusUnauthorized, `{"error":{"code":401,"message":"Invalid Credentials"}}`, ErrUnauthorized},
			{"channel 403", http.StatusForbidden, http.StatusOK, `{"error":{"code":403,"message":"quotaExceeded"}}`, shared.ErrAPIRequest},
			{"search 500", http.StatusOK, http.StatusInternalServerError, ``, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
					status := tt.channel
					if r.URL.Path == "/search" {
						status = tt.search
					}
					if status != http.StatusOK {
						w.WriteHeader(status)
						w.Write([]byte(tt.body))
						return
					}
					if r.URL.Path == "/channels" {
						w.Write([]byte(channelsBody))
						return
					}
					w.Write([]byte(searchBody))
				}, YouTubeOptions{})

				_, err := svc.Feed(ctx, "token")
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}

		t.Run("401 is not a generic api error", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}, YouTubeOptions{})

			_, err := svc.Feed(ctx, "token")
			if errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("401 should not wrap ErrAPIRequest, got %v", err)
			}
		})

		t.Run("includes api message", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":{"code":403,"message":"quotaExceeded"}}`))
			}, YouTubeOptions{})

			_, err := svc.Channel(ctx, "token")
			if err == nil || !strings.Contains(err.Error(), "quotaExceeded") {
				t.Errorf("expected api message in error, got %v", err)
			}
		})

		t.Run("invalid json", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			}, YouTubeOptions{})

			if _, err := svc.Channel(ctx, "token"); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("transport failure", func(t *testing.T) {
			svc := NewYouTubeService(YouTubeOptions{
				BaseURL:    "http://youtube.invalid",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
			})

			if _, err := svc.Channel(ctx, "token"); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("unreadable error body", func(t *testing.T) {
			svc := NewYouTubeService(YouTubeOptions{
				BaseURL: "http://youtube.invalid",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusBadGateway,
					Body:       &tu.FCloser{},
					Header:     make(http.Header),
				}, nil)},
			})

			_, err := svc.Channel(ctx, "token")
			if !errors.Is(err, shared.ErrAPIRequest) || !strings.Contains(err.Error(), "unreadable") {
				t.Errorf("expected unreadable body error, got %v", err)
			}
		})

		t.Run("cancelled context", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(channelsBody))
			}, YouTubeOptions{RateLimit: 0.001})
			svc.limiter.Allow()

			cctx, cancel := context.WithCancel(ctx)
			cancel()
			if _, err := svc.Channel(cctx, "token"); err == nil {
				t.Error("expected error from cancelled context")
			}
		})
	})
}
