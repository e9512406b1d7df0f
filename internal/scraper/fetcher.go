package scraper

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// VideoLookup resolves a video URL to its title and channel.
type VideoLookup interface {
	Fetch(ctx context.Context, videoURL string) (*domain.VideoInfo, error)
}

// Fetcher implements Scraper: video URLs go through oEmbed, everything else
// through an HTMLSource followed by Extract.
type Fetcher struct {
	html   HTMLSource
	videos VideoLookup
	log    logrus.FieldLogger
}

// NewFetcher creates a Fetcher over the given HTML source and oEmbed lookup.
func NewFetcher(html HTMLSource, videos VideoLookup, logger logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		html:   html,
		videos: videos,
		log:    logger.WithField("component", "fetcher"),
	}
}

// Fetch implements Scraper.
//
// For a video URL the oEmbed lookup is tried first. If the document fetch then
// fails, a video URL gets exactly one more oEmbed attempt before the error is returned.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*domain.PageData, error) {
	log := f.log.WithField("url", pageURL)
	isVideo := IsVideoURL(pageURL)

	if isVideo {
		info, err := f.videos.Fetch(ctx, pageURL)
		if err == nil {
			log.Info("Resolved video through oEmbed")
			return videoPageData(pageURL, info), nil
		}
		log.WithError(err).Warn("oEmbed lookup failed, fetching document")
	}

	raw, err := f.html.FetchHTML(ctx, pageURL)
	if err != nil {
		log.WithError(err).Warn("Document fetch failed")
		if !isVideo {
			return nil, asFetchError(pageURL, err)
		}

		info, vErr := f.videos.Fetch(ctx, pageURL)
		if vErr != nil {
			log.WithError(vErr).Warn("oEmbed retry failed")
			return nil, asFetchError(pageURL, err)
		}
		log.Info("Recovered video metadata on oEmbed retry")
		return videoFallbackPageData(pageURL, info), nil
	}

	page := Extract(raw, pageURL)
	log.WithFields(logrus.Fields{
		"title":       page.Title,
		"content_len": len(page.Content),
	}).Info("Page metadata extracted")
	return page, nil
}

func asFetchError(pageURL string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{URL: pageURL, Reason: "fetch failed", Err: err}
}
