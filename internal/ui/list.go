package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytdash/internal/models"
)

var _ list.Item = videoItem{}

// videoItem wraps [models.Video] to implement [list.Item].
type videoItem struct {
	video models.Video
}

func (i videoItem) FilterValue() string { return i.video.Title }
func (i videoItem) Title() string       { return i.video.Title }
func (i videoItem) Description() string {
	if i.video.PublishedAt.IsZero() {
		return i.video.URL()
	}
	return i.video.PublishedAt.Format("Jan 2, 2006") + " • " + i.video.URL()
}

func videoItems(videos []models.Video) []list.Item {
	items := make([]list.Item, len(videos))
	for i, v := range videos {
		items[i] = videoItem{video: v}
	}
	return items
}
