package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"smartlink/internal/domain"
	"smartlink/internal/textutil"
)

var (
	titleSelectors       = []string{`meta[property="og:title"]`, `meta[name="twitter:title"]`, `title`}
	descriptionSelectors = []string{`meta[property="og:description"]`, `meta[name="twitter:description"]`, `meta[name="description"]`}
	imageSelectors       = []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`}
	siteNameSelectors    = []string{`meta[property="og:site_name"]`, `meta[name="application-name"]`}
	faviconSelectors     = []string{`link[rel="icon"]`, `link[rel="shortcut icon"]`, `link[rel="apple-touch-icon"]`}
	keywordSelectors     = []string{`meta[name="keywords"]`, `meta[property="article:tag"]`}
)

// Extract parses already-fetched HTML into PageData. It never performs I/O and
// always succeeds: missing fields fall back to hostname-derived defaults.
func Extract(rawHTML, pageURL string) *domain.PageData {
	defaults := HostnameDefaults(pageURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return &defaults
	}

	page := &domain.PageData{
		URL:         pageURL,
		Title:       firstValue(doc, titleSelectors),
		Description: firstValue(doc, descriptionSelectors),
		SiteName:    firstValue(doc, siteNameSelectors),
		Favicon:     resolveFavicon(pageURL, firstValue(doc, faviconSelectors)),
		Content:     bodyText(doc),
	}

	if img := firstValue(doc, imageSelectors); strings.HasPrefix(img, "http") {
		page.OGImage = img
	}
	if kw := firstValue(doc, keywordSelectors); kw != "" {
		page.MetaKeywords = splitKeywords(kw)
	}

	if page.Title == "" {
		page.Title = defaults.Title
	}
	if page.SiteName == "" {
		page.SiteName = defaults.SiteName
	}
	return page
}

// firstValue returns the first non-empty value among selectors, in priority order.
// The value of an element is its content attribute, then href, then its text.
func firstValue(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if v := elementValue(el); v != "" {
			return v
		}
	}
	return ""
}

func elementValue(el *goquery.Selection) string {
	if v, ok := el.Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := el.Attr("href"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(el.Text())
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func bodyText(doc *goquery.Document) string {
	body := doc.Find("body")
	body.Find("script, style, noscript, template").Remove()
	return textutil.Truncate(textutil.CollapseSpace(body.Text()), MaxContentLength)
}

// resolveFavicon resolves href against the page origin, defaulting to {origin}/favicon.ico.
func resolveFavicon(pageURL, href string) string {
	if href == "" {
		return faviconFor(pageURL)
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	origin := originOf(pageURL)
	if origin == "" {
		return href
	}
	base, err := url.Parse(origin + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return faviconFor(pageURL)
	}
	return base.ResolveReference(ref).String()
}
