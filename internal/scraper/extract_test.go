package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_TitlePriority(t *testing.T) {
	tests := []struct {
		name     string
		htmlDoc  string
		expected string
	}{
		{
			name: "og:title takes precedence over twitter and title tag",
			htmlDoc: `<html><head>
	<meta property="og:title" content="OG Title" />
	<meta name="twitter:title" content="Twitter Title" />
	<title>Site Name</title>
</head><body></body></html>`,
			expected: "OG Title",
		},
		{
			name: "twitter:title takes precedence over title tag",
			htmlDoc: `<html><head>
	<meta name="twitter:title" content="Twitter Title" />
	<title>Site Name</title>
</head><body></body></html>`,
			expected: "Twitter Title",
		},
		{
			name:     "title tag used when no meta tags",
			htmlDoc:  `<html><head><title>  Plain Title  </title></head><body></body></html>`,
			expected: "Plain Title",
		},
		{
			name:     "empty og:title falls through",
			htmlDoc:  `<html><head><meta property="og:title" content="  "><title>Fallback</title></head></html>`,
			expected: "Fallback",
		},
		{
			name:     "hostname when nothing is found",
			htmlDoc:  `<html><head></head><body><p>hello</p></body></html>`,
			expected: "blog.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Extract(tt.htmlDoc, "https://blog.example.com/posts/1")
			assert.Equal(t, tt.expected, page.Title)
		})
	}
}

func TestExtract_DescriptionImageSiteName(t *testing.T) {
	doc := `<html><head>
	<meta name="description" content="generic description">
	<meta name="twitter:description" content="twitter description">
	<meta name="twitter:image" content="https://cdn.example.com/card.png">
	<meta name="application-name" content="Example App">
</head><body></body></html>`

	page := Extract(doc, "https://example.com/a")

	assert.Equal(t, "twitter description", page.Description)
	assert.Equal(t, "https://cdn.example.com/card.png", page.OGImage)
	assert.Equal(t, "Example App", page.SiteName)
}

func TestExtract_RelativeOGImageDropped(t *testing.T) {
	doc := `<html><head><meta property="og:image" content="/img/cover.png"></head></html>`
	page := Extract(doc, "https://example.com/a")
	assert.Empty(t, page.OGImage)
}

func TestExtract_Favicon(t *testing.T) {
	tests := []struct {
		name     string
		head     string
		expected string
	}{
		{"absolute href kept", `<link rel="icon" href="https://cdn.example.com/f.png">`, "https://cdn.example.com/f.png"},
		{"root-relative resolved against origin", `<link rel="icon" href="/static/f.png">`, "https://example.com/static/f.png"},
		{"bare relative resolved against origin", `<link rel="shortcut icon" href="f.ico">`, "https://example.com/f.ico"},
		{"apple touch icon", `<link rel="apple-touch-icon" href="/apple.png">`, "https://example.com/apple.png"},
		{"default when none", ``, "https://example.com/favicon.ico"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "<html><head>" + tt.head + "</head><body></body></html>"
			page := Extract(doc, "https://example.com/deep/path/page.html")
			assert.Equal(t, tt.expected, page.Favicon)
		})
	}
}

func TestExtract_Keywords(t *testing.T) {
	doc := `<html><head><meta name="keywords" content=" go, ,rust ,  zig,"></head></html>`
	page := Extract(doc, "https://example.com")
	assert.Equal(t, []string{"go", "rust", "zig"}, page.MetaKeywords)

	doc = `<html><head><meta property="article:tag" content="과학"></head></html>`
	page = Extract(doc, "https://example.com")
	assert.Equal(t, []string{"과학"}, page.MetaKeywords)

	page = Extract(`<html></html>`, "https://example.com")
	assert.Nil(t, page.MetaKeywords)
}

func TestExtract_BodyContent(t *testing.T) {
	doc := `<html><head><title>t</title></head><body>
	<script>var tracking = 1;</script>
	<h1>Heading</h1>
	<p>First    paragraph
	spanning lines.</p>
	<style>.x{}</style>
</body></html>`

	page := Extract(doc, "https://example.com")
	assert.Equal(t, "Heading First paragraph spanning lines.", page.Content)
}

func TestExtract_BodyContentTruncated(t *testing.T) {
	long := strings.Repeat("가", MaxContentLength+500)
	page := Extract("<html><body><p>"+long+"</p></body></html>", "https://example.com")

	require.NotEmpty(t, page.Content)
	assert.Equal(t, MaxContentLength, len([]rune(page.Content)))
}

func TestHostnameDefaults(t *testing.T) {
	page := HostnameDefaults("https://news.example.org:8443/a/b?c=d")

	assert.Equal(t, "news.example.org", page.Title)
	assert.Equal(t, "news.example.org", page.SiteName)
	assert.Equal(t, "https://news.example.org:8443/favicon.ico", page.Favicon)
	assert.Empty(t, page.Content)
	assert.Nil(t, page.Video)
}
