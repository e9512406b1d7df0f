package domain

// VideoInfo is the subset of oEmbed data kept for video links.
type VideoInfo struct {
	Title   string `json:"title"`
	Channel string `json:"channel"`
}

// PageData is normalized metadata for a fetched page or video.
// It is produced fresh per fetch and never persisted directly.
type PageData struct {
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	OGImage      string     `json:"og_image"`
	Favicon      string     `json:"favicon"`
	SiteName     string     `json:"site_name"`
	Content      string     `json:"content"`
	MetaKeywords []string   `json:"meta_keywords,omitempty"`
	Video        *VideoInfo `json:"video,omitempty"`
}

// IsVideo reports whether the page was resolved through the oEmbed path.
func (p *PageData) IsVideo() bool {
	return p != nil && p.Video != nil
}
