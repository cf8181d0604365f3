package formatter

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/ytdash/internal/models"
	"golang.org/x/time/rate"
)

// ThumbnailOpts configures concurrent thumbnail downloads.
type ThumbnailOpts struct {
	NumWorkers int     // Concurrent downloads (default: 5, max: 10)
	RateLimit  float64 // Requests per second (default: 5)
}

// ThumbnailResult is the outcome of downloading one video's thumbnail.
type ThumbnailResult struct {
	VideoID string
	Path    string // "{dir name}/{id}.jpg", empty on failure
	Error   error
}

type thumbnailJob struct {
	video models.Video
	dest  string
}

// DownloadThumbnails saves the thumbnail of every video to dir/{id}.jpg with a
// rate limited worker pool. Results come back in completion order. Videos
// without a thumbnail URL are skipped.
func DownloadThumbnails(ctx context.Context, client *http.Client, videos []models.Video, dir string, opts ThumbnailOpts) ([]ThumbnailResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan thumbnailJob, len(videos))
	results := make(chan ThumbnailResult, len(videos))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go thumbnailWorker(ctx, &wg, client, limiter, jobs, results)
	}

	for _, video := range videos {
		if video.ThumbnailURL == "" {
			continue
		}
		jobs <- thumbnailJob{video: video, dest: filepath.Join(dir, video.ID+".jpg")}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]ThumbnailResult, 0, len(videos))
	for res := range results {
		collected = append(collected, res)
	}
	return collected, ctx.Err()
}

func thumbnailWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	client *http.Client,
	limiter *rate.Limiter,
	jobs <-chan thumbnailJob,
	results chan<- ThumbnailResult,
) {
	defer wg.Done()

	for job := range jobs {
		res := ThumbnailResult{VideoID: job.video.ID}

		if err := limiter.Wait(ctx); err != nil {
			res.Error = err
			results <- res
			continue
		}

		data, err := DownloadImageContext(ctx, client, job.video.ThumbnailURL)
		if err != nil {
			res.Error = err
			results <- res
			continue
		}

		if err := os.WriteFile(job.dest, data, 0644); err != nil {
			res.Error = fmt.Errorf("failed to save thumbnail: %w", err)
			results <- res
			continue
		}

		res.Path = filepath.ToSlash(filepath.Join(filepath.Base(filepath.Dir(job.dest)), filepath.Base(job.dest)))
		results <- res
	}
}
