package tasks

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/services"
)

// Acquirer hands unmatched tracks to a downloader that fills the library's watched folder.
type Acquirer struct {
	downloader services.Downloader
	enabled    bool
	logger     *log.Logger
}

func NewAcquirer(downloader services.Downloader, enabled bool, logger *log.Logger) *Acquirer {
	return &Acquirer{downloader: downloader, enabled: enabled && downloader != nil, logger: logger}
}

// Acquire requests every track with a URL and reports whether a request was made.
// The download outcome is only logged.
func (a *Acquirer) Acquire(ctx context.Context, tracks []models.SourceTrack) bool {
	if !a.enabled || len(tracks) == 0 {
		return false
	}

	urls := make([]string, 0, len(tracks))
	for _, track := range tracks {
		if url := strings.TrimSpace(track.URL); url != "" {
			urls = append(urls, url)
		}
	}
	if len(urls) == 0 {
		a.logger.Info("no downloadable tracks", "missing", len(tracks))
		return false
	}

	a.logger.Info("downloading missing tracks", "count", len(urls))
	if err := a.downloader.Download(ctx, urls); err != nil {
		a.logger.Error("download failed", "err", err)
	} else {
		a.logger.Info("download finished", "count", len(urls))
	}
	return true
}
