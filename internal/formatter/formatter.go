// package formatter provides functions to export a channel feed to various formats (CSV, Markdown, JSON, plain text)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or a common alias (md, txt).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Export renders feed in format.
func Export(feed *models.Feed, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(feed)
	case FormatMarkdown:
		return ExportToMarkdown(feed, nil)
	case FormatJSON:
		return ExportToJSON(feed)
	case FormatText:
		return ExportToText(feed)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

// Write renders feed in format to w.
func Write(w io.Writer, feed *models.Feed, format Format) error {
	data, err := Export(feed, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// ExportToCSV converts a Feed to CSV format with columns: ID, Title, URL, Published, Thumbnail
func ExportToCSV(feed *models.Feed) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "URL", "Published", "Thumbnail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, video := range feed.Videos {
		record := []string{
			video.ID,
			video.Title,
			video.URL(),
			formatDate(video.PublishedAt, time.RFC3339),
			video.ThumbnailURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Feed to Markdown. thumbnails maps video ids to
// local image paths; videos without an entry link the remote thumbnail.
func ExportToMarkdown(feed *models.Feed, thumbnails map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", feed.Channel.Title)
	fmt.Fprintf(&buf, "**Channel**: %s\n", feed.Channel.ID)
	fmt.Fprintf(&buf, "**Videos**: %d\n", len(feed.Videos))
	if !feed.FetchedAt.IsZero() {
		fmt.Fprintf(&buf, "**Updated**: %s\n", feed.FetchedAt.Format(time.RFC1123))
	}
	buf.WriteString("\n## Recent uploads\n\n")

	for i, video := range feed.Videos {
		fmt.Fprintf(&buf, "%d. [%s](%s)", i+1, video.Title, video.URL())
		if date := formatDate(video.PublishedAt, "Jan 2, 2006"); date != "" {
			fmt.Fprintf(&buf, " (%s)", date)
		}
		buf.WriteString("\n")

		image := video.ThumbnailURL
		if local, ok := thumbnails[video.ID]; ok {
			image = local
		}
		if image != "" {
			fmt.Fprintf(&buf, "\n   ![%s](%s)\n\n", video.Title, image)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Feed to plain text format
func ExportToText(feed *models.Feed) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Channel: %s\n", feed.Channel.Title)
	fmt.Fprintf(&buf, "Videos: %d\n\n", len(feed.Videos))

	for i, video := range feed.Videos {
		fmt.Fprintf(&buf, "%d. %s\n   %s", i+1, video.Title, video.URL())
		if date := formatDate(video.PublishedAt, "2006-01-02"); date != "" {
			fmt.Fprintf(&buf, "  %s", date)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a Feed to indented JSON.
func ExportToJSON(feed *models.Feed) ([]byte, error) {
	data, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed: %w", err)
	}
	return append(data, '\n'), nil
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes.
// A nil client uses a 30 second timeout.
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	return DownloadImageContext(context.Background(), client, url)
}

// DownloadImageContext is [DownloadImage] bound to ctx.
func DownloadImageContext(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// WriteFile exports feed to path in format.
//
// Defaults to {channel.ID}_videos.{ext} as the filename.
func WriteFile(feed *models.Feed, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_videos.%s", feed.Channel.ID, extension(format))
	}

	data, err := Export(feed, format)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func extension(format Format) string {
	switch format {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	}
	return string(format)
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	Thumbnails int
	Failures   []ThumbnailResult
}

// WriteMarkdownExport exports a feed to Markdown format in a dedicated directory.
//
// Directory name defaults to the channel ID. When client is non-nil,
// thumbnails are downloaded next to the README; a failed download falls back
// to the remote URL and is reported in Failures.
// Creates a directory structure: {dir}/README.md and optionally {dir}/thumbnails/{id}.jpg
func WriteMarkdownExport(ctx context.Context, feed *models.Feed, outputDir string, client *http.Client) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = feed.Channel.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir}

	thumbnails := make(map[string]string)
	if client != nil {
		downloads, err := DownloadThumbnails(ctx, client, feed.Videos, filepath.Join(outputDir, "thumbnails"), ThumbnailOpts{})
		if err != nil {
			return nil, err
		}

		for _, d := range downloads {
			if d.Error != nil {
				result.Failures = append(result.Failures, d)
				continue
			}
			thumbnails[d.VideoID] = d.Path
			result.Files = append(result.Files, filepath.Join(outputDir, filepath.FromSlash(d.Path)))
			result.Thumbnails++
		}
	}

	mdData, err := ExportToMarkdown(feed, thumbnails)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}
