package scraper

import (
	"net/url"

	"smartlink/internal/domain"
)

// HostnameDefaults is the PageData used when nothing could be fetched:
// the hostname stands in for title and site name.
func HostnameDefaults(pageURL string) domain.PageData {
	host := hostOf(pageURL)
	return domain.PageData{
		URL:      pageURL,
		Title:    host,
		SiteName: host,
		Favicon:  faviconFor(pageURL),
	}
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func originOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func faviconFor(pageURL string) string {
	origin := originOf(pageURL)
	if origin == "" {
		return ""
	}
	return origin + "/favicon.ico"
}
