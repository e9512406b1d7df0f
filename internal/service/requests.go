package service

import (
	"strings"

	"smartlink/internal/domain"
)

// LinkRequest is a link form submission: either a CreateRequest or an EditRequest.
// Each variant carries only the fields valid for its mode.
type LinkRequest interface {
	linkRequest()
}

// CreateRequest adds a new link.
type CreateRequest struct {
	URL         string `json:"url" validate:"required,http_url"`
	Category    string `json:"category" validate:"required,max=50"`
	CustomTitle string `json:"custom_title" validate:"max=200"`
	CustomMemo  string `json:"custom_memo" validate:"max=1000"`

	// Analysis is an earlier analysis of URL the user reviewed before saving.
	Analysis *domain.LinkAnalysis `json:"analysis,omitempty" validate:"-"`
}

// EditRequest changes user-owned fields of an existing link. Nil means unchanged.
type EditRequest struct {
	CategoryID    *string `json:"category_id"`
	CustomTitle   *string `json:"custom_title" validate:"omitnil,max=200"`
	CustomSummary *string `json:"custom_summary" validate:"omitnil,max=500"`
	CustomMemo    *string `json:"custom_memo" validate:"omitnil,max=1000"`
	IsFavorite    *bool   `json:"is_favorite"`
	IsArchived    *bool   `json:"is_archived"`
}

func (CreateRequest) linkRequest() {}
func (EditRequest) linkRequest()   {}

// withAnalysis fills the fields the user left empty from an analysis,
// the way the add-link form pre-fills them.
func (r CreateRequest) withAnalysis(a *domain.LinkAnalysis) CreateRequest {
	r.URL = strings.TrimSpace(r.URL)
	r.Category = strings.TrimSpace(r.Category)
	r.CustomTitle = strings.TrimSpace(r.CustomTitle)
	if a == nil {
		return r
	}
	if r.CustomTitle == "" {
		r.CustomTitle = a.Title
	}
	if r.CustomMemo == "" {
		r.CustomMemo = a.Summary
	}
	if r.Category == "" {
		r.Category = a.CategorySuggestion
	}
	return r
}

func (r CreateRequest) validate(requireTitle bool) error {
	if err := check(r); err != nil {
		return err
	}
	if requireTitle {
		return checkVar("custom_title", r.CustomTitle, "required")
	}
	return nil
}

func (r EditRequest) validate() error {
	return check(r)
}
