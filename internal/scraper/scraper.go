package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"smartlink/internal/domain"
)

const (
	// DefaultTimeout bounds any single outbound fetch that doesn't set its own budget.
	DefaultTimeout = 5 * time.Second

	// PageTimeout bounds a proxied fetch of a generic page.
	PageTimeout = 8 * time.Second

	// MaxContentLength is the most body text a PageData ever carries.
	MaxContentLength = 5000

	// MaxProxyBodyBytes caps a proxy envelope; larger pages fail to decode.
	MaxProxyBodyBytes = 5 << 20

	// MaxOEmbedBodyBytes caps an oEmbed response.
	MaxOEmbedBodyBytes = 64 << 10
)

// Scraper defines the interface for fetching metadata from a URL.
type Scraper interface {
	// Fetch resolves a URL to PageData. It returns a *FetchError when the page
	// could not be retrieved; callers decide whether to fall back to HostnameDefaults.
	Fetch(ctx context.Context, url string) (*domain.PageData, error)
}

// HTMLSource retrieves the raw document for a URL.
type HTMLSource interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

func withQuery(endpoint string, q url.Values) string {
	if strings.Contains(endpoint, "?") {
		return endpoint + "&" + q.Encode()
	}
	return endpoint + "?" + q.Encode()
}
