package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"

	"smartlink/internal/domain"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	jsonObject  = regexp.MustCompile(`(?s)\{.*\}`)
)

// modelOutput is decoded leniently: a field of the wrong JSON type is treated as absent.
type modelOutput struct {
	Title              json.RawMessage `json:"title"`
	Summary            json.RawMessage `json:"summary"`
	Keywords           json.RawMessage `json:"keywords"`
	CategorySuggestion json.RawMessage `json:"categorySuggestion"`
	ContentType        json.RawMessage `json:"contentType"`
}

// parseAnalysis turns raw model content into a validated LinkAnalysis.
func parseAnalysis(content, url string, isVideo bool) (*domain.LinkAnalysis, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &AnalysisError{Kind: EmptyResponse}
	}

	body := content
	if m := fencedBlock.FindStringSubmatch(content); m != nil {
		body = strings.TrimSpace(m[1])
	}

	obj := jsonObject.FindString(body)
	if obj == "" {
		return nil, &AnalysisError{Kind: NoJSONFound}
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, &AnalysisError{Kind: InvalidJSON, Err: err}
	}

	title := stringValue(out.Title)
	if title == "" {
		title = url
	}
	summary := stringValue(out.Summary)
	keywords := stringList(out.Keywords)

	contentType := domain.ContentTypeArticle
	switch {
	case isVideo:
		contentType = domain.ContentTypeVideo
	case stringValue(out.ContentType) != "":
		contentType = stringValue(out.ContentType)
	}

	return &domain.LinkAnalysis{
		Title:              title,
		Summary:            summary,
		Keywords:           keywords,
		CategorySuggestion: ReconcileCategory(stringValue(out.CategorySuggestion), keywords, summary),
		ContentType:        contentType,
	}, nil
}

// ReconcileCategory maps a suggested category onto a member of domain.AllowedCategories.
//
// An allowed suggestion is kept verbatim. Otherwise the keywords that are
// themselves allowed categories are considered: the first one appearing in the
// summary (case-insensitively) wins, else the first one in keyword order. With no
// qualifying keyword the result is domain.DefaultCategory.
func ReconcileCategory(suggestion string, keywords []string, summary string) string {
	if domain.IsAllowedCategory(suggestion) {
		return suggestion
	}

	var candidates []string
	for _, k := range keywords {
		if domain.IsAllowedCategory(k) {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return domain.DefaultCategory
	}

	lowered := strings.ToLower(summary)
	for _, c := range candidates {
		if strings.Contains(lowered, strings.ToLower(c)) {
			return c
		}
	}
	return candidates[0]
}

func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func stringList(raw json.RawMessage) []string {
	var items []any
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
