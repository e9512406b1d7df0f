package domain

import "time"

// Link represents a saved bookmark owned by a single user.
type Link struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// CategoryID is a weak reference; deleting the category clears it.
	CategoryID string `json:"category_id,omitempty"`

	// OriginalURL is unique per user.
	OriginalURL   string `json:"original_url"`
	OriginalTitle string `json:"original_title,omitempty"`

	// AI fields are populated only when analysis succeeded.
	AITitle              string   `json:"ai_title,omitempty"`
	AISummary            string   `json:"ai_summary,omitempty"`
	AIKeywords           []string `json:"ai_keywords,omitempty"`
	AICategorySuggestion string   `json:"ai_category_suggestion,omitempty"`

	CustomTitle   string `json:"custom_title,omitempty"`
	CustomSummary string `json:"custom_summary,omitempty"`
	CustomMemo    string `json:"custom_memo,omitempty"`

	FaviconURL    string `json:"favicon_url,omitempty"`
	OGImageURL    string `json:"og_image_url,omitempty"`
	OGDescription string `json:"og_description,omitempty"`
	SiteName      string `json:"site_name,omitempty"`
	ContentType   string `json:"content_type,omitempty"`

	IsFavorite    bool   `json:"is_favorite"`
	IsArchived    bool   `json:"is_archived"`
	IsAnalyzed    bool   `json:"is_analyzed"`
	AnalysisError string `json:"analysis_error,omitempty"`

	ViewCount    int        `json:"view_count"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DisplayTitle picks the title shown to the user: custom, then AI, then original, then URL.
func (l Link) DisplayTitle() string {
	switch {
	case l.CustomTitle != "":
		return l.CustomTitle
	case l.AITitle != "":
		return l.AITitle
	case l.OriginalTitle != "":
		return l.OriginalTitle
	default:
		return l.OriginalURL
	}
}

// LinkFilter narrows a link listing. Nil pointers mean "don't care".
type LinkFilter struct {
	CategoryID  string
	IsFavorite  *bool
	IsArchived  *bool
	ContentType string
	Search      string
	TagIDs      []string
}

// SortField names a sortable link column.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByViewCount SortField = "viewCount"
	SortByTitle     SortField = "title"
)

// LinkSort orders a link listing.
type LinkSort struct {
	Field SortField
	Desc  bool
}

// DefaultLinkSort is newest first.
var DefaultLinkSort = LinkSort{Field: SortByCreatedAt, Desc: true}

// Page selects a window of a listing; Page is 1-based.
type Page struct {
	Page     int
	PageSize int
}

// LinkPage is one page of links plus paging totals.
type LinkPage struct {
	Links      []Link `json:"data"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}
