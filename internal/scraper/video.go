package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

var (
	videoURLPattern = regexp.MustCompile(`(?:youtube\.com/(?:watch|shorts)|youtu\.be/)`)
	videoIDPattern  = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`)
)

const (
	videoFavicon       = "https://www.youtube.com/favicon.ico"
	videoThumbnailTmpl = "https://img.youtube.com/vi/%s/hqdefault.jpg"
)

// IsVideoURL reports whether url has the shape of a recognized video-host link.
func IsVideoURL(u string) bool {
	return videoURLPattern.MatchString(u)
}

// VideoID extracts the 11-character video id, or "" when there is none.
func VideoID(u string) string {
	m := videoIDPattern.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[1]
}

// OEmbedClient queries a video host's oEmbed endpoint.
type OEmbedClient struct {
	endpoint string
	client   *http.Client
	log      logrus.FieldLogger
}

// NewOEmbedClient creates a client for the given oEmbed endpoint.
func NewOEmbedClient(endpoint string, client *http.Client, logger logrus.FieldLogger) *OEmbedClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &OEmbedClient{
		endpoint: endpoint,
		client:   client,
		log:      logger.WithField("component", "oembed"),
	}
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// Fetch returns the title and channel for a video URL.
func (c *OEmbedClient) Fetch(ctx context.Context, videoURL string) (*domain.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	q := url.Values{"url": {videoURL}, "format": {"json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, withQuery(c.endpoint, q), http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: videoURL, Reason: "build oembed request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: videoURL, Reason: "oembed request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: videoURL, Reason: "oembed returned non-2xx", StatusCode: resp.StatusCode}
	}

	var body oembedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxOEmbedBodyBytes)).Decode(&body); err != nil {
		return nil, &FetchError{URL: videoURL, Reason: "decode oembed response", Err: err}
	}

	c.log.WithFields(logrus.Fields{"url": videoURL, "channel": body.AuthorName}).Debug("oEmbed resolved")
	return &domain.VideoInfo{Title: body.Title, Channel: body.AuthorName}, nil
}

// videoPageData is the PageData returned when the first oEmbed lookup succeeds.
func videoPageData(videoURL string, info *domain.VideoInfo) *domain.PageData {
	var thumb string
	if id := VideoID(videoURL); id != "" {
		thumb = fmt.Sprintf(videoThumbnailTmpl, id)
	}
	return &domain.PageData{
		URL:      videoURL,
		Title:    info.Title,
		OGImage:  thumb,
		Favicon:  videoFavicon,
		SiteName: info.Channel,
		Video:    info,
	}
}

// videoFallbackPageData is the named fallback used when the document fetch failed
// but the retried oEmbed lookup succeeded.
func videoFallbackPageData(videoURL string, info *domain.VideoInfo) *domain.PageData {
	return &domain.PageData{
		URL:      videoURL,
		Title:    info.Title,
		Favicon:  faviconFor(videoURL),
		SiteName: info.Channel,
		Video:    info,
	}
}
